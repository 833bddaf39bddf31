package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
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

func TestRecognizeSendsSourceBlobAsBase64(t *testing.T) {
	var captured recognizeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/ocr" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"text":"  FATURA N 42\nCombustivel 1500  ","confidence":88.5}`))
	}))
	defer server.Close()

	storage := &storageFake{blobs: map[string][]byte{"key-1": []byte("raw bytes")}}
	client := New(server.URL, storage, Options{})

	extraction, err := client.Recognize(context.Background(), &domain.Document{
		Filename:    "fatura.pdf",
		MimeType:    "application/pdf",
		StoragePath: "key-1",
	})
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}

	if captured.Filename != "fatura.pdf" || captured.MimeType != "application/pdf" {
		t.Fatalf("unexpected request metadata: %+v", captured)
	}
	decoded, err := base64.StdEncoding.DecodeString(captured.Content)
	if err != nil || string(decoded) != "raw bytes" {
		t.Fatalf("expected base64 of source blob, got %q (err %v)", captured.Content, err)
	}
	if extraction.Text != "FATURA N 42\nCombustivel 1500" {
		t.Fatalf("expected trimmed text, got %q", extraction.Text)
	}
	if extraction.Confidence != 88.5 {
		t.Fatalf("expected confidence 88.5, got %v", extraction.Confidence)
	}
}

func TestRecognizeIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported mime type", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	storage := &storageFake{blobs: map[string][]byte{"key-1": []byte("raw")}}
	client := New(server.URL, storage, Options{})

	_, err := client.Recognize(context.Background(), &domain.Document{StoragePath: "key-1"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "unsupported mime type") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("client errors must not be temporary, got %v", err)
	}
}

func TestRecognizeServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ocr backend down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	storage := &storageFake{blobs: map[string][]byte{"key-1": []byte("raw")}}
	client := New(server.URL, storage, Options{})

	_, err := client.Recognize(context.Background(), &domain.Document{StoragePath: "key-1"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error for 503, got %v", err)
	}
}

func TestRecognizeMissingBlobFailsBeforeHTTP(t *testing.T) {
	client := New("http://unreachable.invalid", &storageFake{}, Options{})

	_, err := client.Recognize(context.Background(), &domain.Document{StoragePath: "missing"})
	if err == nil || !strings.Contains(err.Error(), "open source document") {
		t.Fatalf("expected storage open failure, got %v", err)
	}
}

func TestClassifyOCRErrorStatusCodes(t *testing.T) {
	if class := classifyOCRError(&HTTPStatusError{StatusCode: http.StatusBadGateway}); !class.Retryable || !class.RecordFailure {
		t.Fatalf("502 must retry and count, got %+v", class)
	}
	if class := classifyOCRError(&HTTPStatusError{StatusCode: http.StatusBadRequest}); class.Retryable || class.RecordFailure {
		t.Fatalf("400 must neither retry nor count, got %+v", class)
	}
	if class := classifyOCRError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("context errors must neither retry nor count, got %+v", class)
	}
}
