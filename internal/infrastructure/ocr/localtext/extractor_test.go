package localtext

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/barros404/finance-sub003/internal/core/domain"
)

type storageFake struct {
	blobs map[string][]byte
}

func (s *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if s.blobs == nil {
		s.blobs = make(map[string][]byte)
	}
	s.blobs[key] = raw
	return nil
}

func (s *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := s.blobs[key]
	if !ok {
		return nil, errors.New("blob not found: " + key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func TestRecognizePlainTextReadsAsIs(t *testing.T) {
	storage := &storageFake{blobs: map[string][]byte{
		"key-1": []byte("  Combustível viatura 1.500,00\nTransporte 750,00  \n"),
	}}
	extractor := NewExtractor(storage)

	extraction, err := extractor.Recognize(context.Background(), &domain.Document{
		Filename:    "despesas.txt",
		MimeType:    "text/plain",
		StoragePath: "key-1",
	})
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if extraction.Confidence != plainTextConfidence {
		t.Fatalf("plain text must report confidence %v, got %v", plainTextConfidence, extraction.Confidence)
	}
	if !strings.HasPrefix(extraction.Text, "Combustível") || strings.HasSuffix(extraction.Text, " ") {
		t.Fatalf("expected trimmed text, got %q", extraction.Text)
	}
}

func TestRecognizeRejectsBinaryBlobs(t *testing.T) {
	storage := &storageFake{blobs: map[string][]byte{
		"key-1": {0xff, 0xfe, 0x00, 0x81},
	}}
	extractor := NewExtractor(storage)

	_, err := extractor.Recognize(context.Background(), &domain.Document{
		Filename:    "scan.png",
		MimeType:    "image/png",
		StoragePath: "key-1",
	})
	if err == nil || !strings.Contains(err.Error(), "unsupported binary format") {
		t.Fatalf("expected binary rejection, got %v", err)
	}
}

func TestRecognizeCorruptPDFFailsAsExtraction(t *testing.T) {
	storage := &storageFake{blobs: map[string][]byte{
		"key-1": []byte("%PDF-1.4 not really a pdf"),
	}}
	extractor := NewExtractor(storage)

	_, err := extractor.Recognize(context.Background(), &domain.Document{
		Filename:    "fatura.pdf",
		MimeType:    "application/pdf",
		StoragePath: "key-1",
	})
	if err == nil || !strings.Contains(err.Error(), "pdf") {
		t.Fatalf("expected pdf text layer failure, got %v", err)
	}
}

func TestIsPDFDetection(t *testing.T) {
	cases := []struct {
		name string
		doc  domain.Document
		raw  []byte
		want bool
	}{
		{"mime type", domain.Document{MimeType: "application/pdf"}, []byte("x"), true},
		{"extension", domain.Document{Filename: "Fatura.PDF"}, []byte("x"), true},
		{"magic bytes", domain.Document{Filename: "blob.bin"}, []byte("%PDF-1.7"), true},
		{"plain text", domain.Document{Filename: "notas.txt", MimeType: "text/plain"}, []byte("linhas"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isPDF(&tc.doc, tc.raw); got != tc.want {
				t.Fatalf("isPDF() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRecognizeMissingBlob(t *testing.T) {
	extractor := NewExtractor(&storageFake{})
	if _, err := extractor.Recognize(context.Background(), &domain.Document{StoragePath: "missing"}); err == nil {
		t.Fatalf("expected storage open failure")
	}
}
