package localtext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/barros404/finance-sub003/internal/core/domain"
	"github.com/barros404/finance-sub003/internal/core/ports"
)

// Confidence reported for locally extracted text. Plain UTF-8 needs no
// recognition at all; a PDF text layer can carry encoding artifacts.
const (
	plainTextConfidence = 100.0
	pdfTextConfidence   = 92.0
)

// Extractor recognizes text without an OCR service: UTF-8 documents are read
// as-is and PDFs through their embedded text layer. Scanned images are out of
// its reach and fail as extraction errors.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Recognize(ctx context.Context, doc *domain.Document) (domain.Extraction, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("read source document: %w", err)
	}

	if isPDF(doc, raw) {
		text, err := pdfText(raw)
		if err != nil {
			return domain.Extraction{}, fmt.Errorf("extract pdf text layer: %w", err)
		}
		return domain.Extraction{Text: text, Confidence: pdfTextConfidence}, nil
	}

	if !utf8.Valid(raw) {
		return domain.Extraction{}, fmt.Errorf("unsupported binary format: %s", doc.Filename)
	}
	return domain.Extraction{
		Text:       strings.TrimSpace(string(raw)),
		Confidence: plainTextConfidence,
	}, nil
}

func isPDF(doc *domain.Document, raw []byte) bool {
	if doc.MimeType == "application/pdf" {
		return true
	}
	if strings.EqualFold(filepath.Ext(doc.Filename), ".pdf") {
		return true
	}
	return bytes.HasPrefix(raw, []byte("%PDF-"))
}

func pdfText(raw []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	content, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("buffer pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
