package config

import "testing"

func TestLoadPipelineDefaults(t *testing.T) {
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("NATS_QUEUE_GROUP", "")
	t.Setenv("PIPELINE_MAX_RETRIES", "")
	t.Setenv("CLASSIFY_WORKERS", "")
	t.Setenv("LEXICON_MAX_TOKENS", "")
	t.Setenv("OCR_SERVICE_URL", "")

	cfg := Load()
	if cfg.NATSSubject != "documents.process" {
		t.Fatalf("expected default subject documents.process, got %q", cfg.NATSSubject)
	}
	if cfg.NATSQueueGroup != "workers" {
		t.Fatalf("expected default queue group workers, got %q", cfg.NATSQueueGroup)
	}
	if cfg.PipelineMaxRetries != 3 {
		t.Fatalf("expected default max retries 3, got %d", cfg.PipelineMaxRetries)
	}
	if cfg.ClassifyWorkers != 4 {
		t.Fatalf("expected default classify workers 4, got %d", cfg.ClassifyWorkers)
	}
	if cfg.LexiconMaxTokens != 64 {
		t.Fatalf("expected default lexicon bound 64, got %d", cfg.LexiconMaxTokens)
	}
	if cfg.OCRServiceURL != "" {
		t.Fatalf("expected local extraction by default, got %q", cfg.OCRServiceURL)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("PIPELINE_MAX_RETRIES", "5")
	t.Setenv("CLASSIFY_WORKERS", "8")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("OCR_SERVICE_URL", "http://ocr.internal:9000")

	cfg := Load()
	if cfg.PipelineMaxRetries != 5 {
		t.Fatalf("expected max retries 5, got %d", cfg.PipelineMaxRetries)
	}
	if cfg.ClassifyWorkers != 8 {
		t.Fatalf("expected classify workers 8, got %d", cfg.ClassifyWorkers)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.OCRServiceURL != "http://ocr.internal:9000" {
		t.Fatalf("expected ocr url override, got %q", cfg.OCRServiceURL)
	}
}

func TestLoadFallsBackOnUnparsableNumbers(t *testing.T) {
	t.Setenv("PIPELINE_MAX_RETRIES", "muitos")
	t.Setenv("API_RATE_LIMIT_RPS", "rapido")

	cfg := Load()
	if cfg.PipelineMaxRetries != 3 {
		t.Fatalf("expected fallback max retries 3, got %d", cfg.PipelineMaxRetries)
	}
	if cfg.APIRateLimitRPS != 0 {
		t.Fatalf("expected fallback rate limit 0, got %v", cfg.APIRateLimitRPS)
	}
}
