package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Fatalf("expected default port 5000, got %d", cfg.Server.Port)
	}
	if cfg.Fetch.UserAgent != "Mozilla/5.0" || cfg.FetchTimeout() != 10*time.Second {
		t.Fatalf("unexpected fetch defaults: %+v", cfg.Fetch)
	}
	if cfg.Extract.Strategy != "full" || cfg.Extract.MaxChars != 2000 {
		t.Fatalf("unexpected extract defaults: %+v", cfg.Extract)
	}
	if cfg.Classify.Backend != "huggingface" || cfg.Classify.Threshold != 0.1 || cfg.Classify.TopK != 5 {
		t.Fatalf("unexpected classify defaults: %+v", cfg.Classify)
	}
	if cfg.Classify.MaxConcurrency != 1 || cfg.Classify.PreviewChars != 300 {
		t.Fatalf("unexpected guard defaults: %+v", cfg.Classify)
	}
	if cfg.HuggingFace.Model != "joeddav/xlm-roberta-large-xnli" {
		t.Fatalf("unexpected model %q", cfg.HuggingFace.Model)
	}
	if cfg.Taxonomy.Source != "" || cfg.PubSub.TopicName != "" || cfg.Headless.Enabled {
		t.Fatalf("expected optional features disabled by default: %+v", cfg)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout_seconds: 30
fetch:
  timeout_seconds: 5
  user_agent: tagger-test
  respect_robots: true
headless:
  enabled: true
  max_parallel: 2
  settle_ms: 250
  promotion_threshold: 70
extract:
  strategy: trafilatura
  max_chars: 1000
classify:
  backend: gemini
  threshold: 0.25
  top_k: 3
  timeout_seconds: 15
  max_concurrency: 2
gemini:
  api_key: secret
taxonomy:
  source: gs://bucket/labels.yaml
langdetect:
  languages: [ru, en, uk]
pubsub:
  project_id: proj
  topic_name: classifications
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 || cfg.RequestTimeout() != 30*time.Second {
		t.Fatalf("expected server overrides, got %+v", cfg.Server)
	}
	if !cfg.Fetch.RespectRobots || cfg.Fetch.UserAgent != "tagger-test" {
		t.Fatalf("expected fetch overrides, got %+v", cfg.Fetch)
	}
	if !cfg.Headless.Enabled || cfg.Headless.SettleMillis != 250 {
		t.Fatalf("expected headless overrides, got %+v", cfg.Headless)
	}
	if cfg.Classify.Backend != "gemini" || cfg.Gemini.APIKey != "secret" || cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Fatalf("expected gemini backend with default model, got %+v %+v", cfg.Classify, cfg.Gemini)
	}
	if got := cfg.ClassifyTimeout(); got != 15*time.Second {
		t.Fatalf("expected classify timeout 15s, got %v", got)
	}
	if len(cfg.LangDetect.Languages) != 3 || !cfg.LangDetect.Enabled {
		t.Fatalf("expected three languages, got %+v", cfg.LangDetect)
	}
	if cfg.Logging.Development {
		t.Fatal("expected production logging")
	}
}

func TestLoadPortFromEnv(t *testing.T) {
	t.Setenv("PORT", "7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected PORT override, got %d", cfg.Server.Port)
	}
}

func TestLoadPrefixedEnv(t *testing.T) {
	t.Setenv("TAGGER_CLASSIFY_TOP_K", "2")
	t.Setenv("TAGGER_EXTRACT_STRATEGY", "readability")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Classify.TopK != 2 || cfg.Extract.Strategy != "readability" {
		t.Fatalf("expected env overrides, got %+v %+v", cfg.Classify, cfg.Extract)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:     ServerConfig{Port: 5000, RequestTimeoutSeconds: 60},
		Fetch:      FetchConfig{TimeoutSeconds: 10},
		Extract:    ExtractConfig{Strategy: "full", MaxChars: 2000},
		Classify:   ClassifyConfig{Backend: "huggingface", Threshold: 0.1, TopK: 5, TimeoutSeconds: 60, MaxConcurrency: 1},
		LangDetect: LangDetectConfig{Enabled: true, Languages: []string{"ru", "en"}},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "invalid request timeout", mutate: func(c *Config) { c.Server.RequestTimeoutSeconds = 0 }, want: "server.request_timeout_seconds"},
		{name: "invalid fetch timeout", mutate: func(c *Config) { c.Fetch.TimeoutSeconds = 0 }, want: "fetch.timeout_seconds"},
		{name: "headless missing max parallel", mutate: func(c *Config) { c.Headless.Enabled = true }, want: "headless.max_parallel"},
		{name: "negative settle delay", mutate: func(c *Config) { c.Headless.SettleMillis = -1 }, want: "headless.settle_ms"},
		{name: "unknown strategy", mutate: func(c *Config) { c.Extract.Strategy = "boilerpipe" }, want: "extract.strategy"},
		{name: "zero max chars", mutate: func(c *Config) { c.Extract.MaxChars = 0 }, want: "extract.max_chars"},
		{name: "threshold too high", mutate: func(c *Config) { c.Classify.Threshold = 1 }, want: "classify.threshold"},
		{name: "negative threshold", mutate: func(c *Config) { c.Classify.Threshold = -0.1 }, want: "classify.threshold"},
		{name: "zero threshold", mutate: func(c *Config) { c.Classify.Threshold = 0 }, want: "classify.threshold"},
		{name: "zero top k", mutate: func(c *Config) { c.Classify.TopK = 0 }, want: "classify.top_k"},
		{name: "zero classify timeout", mutate: func(c *Config) { c.Classify.TimeoutSeconds = 0 }, want: "classify.timeout_seconds"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Classify.MaxConcurrency = 0 }, want: "classify.max_concurrency"},
		{name: "unknown backend", mutate: func(c *Config) { c.Classify.Backend = "onnx" }, want: "classify.backend"},
		{name: "gemini without key", mutate: func(c *Config) { c.Classify.Backend = "gemini" }, want: "gemini.api_key"},
		{name: "single language", mutate: func(c *Config) { c.LangDetect.Languages = []string{"ru"} }, want: "langdetect.languages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := base
			c.LangDetect.Languages = append([]string(nil), base.LangDetect.Languages...)
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
