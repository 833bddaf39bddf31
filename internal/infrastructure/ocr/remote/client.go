package remote

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/barros404/finance-sub003/internal/core/domain"
	"github.com/barros404/finance-sub003/internal/core/ports"
	"github.com/barros404/finance-sub003/internal/infrastructure/resilience"
)

// Client calls an external OCR service over HTTP. The service is a black
// box: it receives the source blob and returns plain text with a global
// confidence score.
type Client struct {
	baseURL    string
	storage    ports.ObjectStorage
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, storage ports.ObjectStorage, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		storage:    storage,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type recognizeRequest struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Content  string `json:"content_base64"`
}

type recognizeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func (c *Client) Recognize(ctx context.Context, doc *domain.Document) (domain.Extraction, error) {
	reader, err := c.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("read source document: %w", err)
	}

	request := recognizeRequest{
		Filename: doc.Filename,
		MimeType: doc.MimeType,
		Content:  base64.StdEncoding.EncodeToString(raw),
	}

	var response recognizeResponse
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/v1/ocr", request, &response, "recognize")
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "ocr.recognize", call, classifyOCRError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.Extraction{}, wrapTemporaryIfNeeded("ocr recognize", err)
	}

	return domain.Extraction{
		Text:       strings.TrimSpace(response.Text),
		Confidence: response.Confidence,
	}, nil
}
