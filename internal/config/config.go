// Package config loads and validates tagger configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Headless    HeadlessConfig    `mapstructure:"headless"`
	Extract     ExtractConfig     `mapstructure:"extract"`
	Classify    ClassifyConfig    `mapstructure:"classify"`
	HuggingFace HuggingFaceConfig `mapstructure:"huggingface"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	Taxonomy    TaxonomyConfig    `mapstructure:"taxonomy"`
	LangDetect  LangDetectConfig  `mapstructure:"langdetect"`
	PubSub      PubSubConfig      `mapstructure:"pubsub"`
	GCP         GCPConfig         `mapstructure:"gcp"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// FetchConfig configures the plain HTTP fetcher.
type FetchConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	SettleMillis    int  `mapstructure:"settle_ms"`
	PromotionThresh int  `mapstructure:"promotion_threshold"`
}

// ExtractConfig selects the text extraction strategy.
type ExtractConfig struct {
	Strategy string `mapstructure:"strategy"`
	MaxChars int    `mapstructure:"max_chars"`
}

// ClassifyConfig controls ranking and the classifier guard.
type ClassifyConfig struct {
	Backend        string  `mapstructure:"backend"`
	Threshold      float64 `mapstructure:"threshold"`
	TopK           int     `mapstructure:"top_k"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxConcurrency int     `mapstructure:"max_concurrency"`
	PreviewChars   int     `mapstructure:"preview_chars"`
}

// HuggingFaceConfig points at a zero-shot inference endpoint.
type HuggingFaceConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
	APIToken string `mapstructure:"api_token"`
}

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// TaxonomyConfig locates the label file. Empty means the built-in labels.
type TaxonomyConfig struct {
	Source string `mapstructure:"source"`
}

// LangDetectConfig restricts language detection to a set of ISO 639-1 codes.
type LangDetectConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Languages []string `mapstructure:"languages"`
}

// PubSubConfig holds metadata for classification notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// GCPConfig holds shared Google Cloud client options.
type GCPConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TAGGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "TAGGER_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.request_timeout_seconds", 120)
	v.SetDefault("fetch.timeout_seconds", 10)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0")
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("fetch.max_body_bytes", 10<<20)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.settle_ms", 500)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("extract.strategy", "full")
	v.SetDefault("extract.max_chars", 2000)
	v.SetDefault("classify.backend", "huggingface")
	v.SetDefault("classify.threshold", 0.1)
	v.SetDefault("classify.top_k", 5)
	v.SetDefault("classify.timeout_seconds", 60)
	v.SetDefault("classify.max_concurrency", 1)
	v.SetDefault("classify.preview_chars", 300)
	v.SetDefault("huggingface.endpoint", "https://router.huggingface.co/hf-inference")
	v.SetDefault("huggingface.model", "joeddav/xlm-roberta-large-xnli")
	v.SetDefault("huggingface.api_token", "")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("taxonomy.source", "")
	v.SetDefault("langdetect.enabled", true)
	v.SetDefault("langdetect.languages", []string{"ru", "en"})
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("gcp.credentials_file", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxBodyBytes < 0 {
		return fmt.Errorf("fetch.max_body_bytes must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Headless.SettleMillis < 0 {
		return fmt.Errorf("headless.settle_ms must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(c.Extract.Strategy)) {
	case "", "full", "readability", "trafilatura":
	default:
		return fmt.Errorf("extract.strategy %q is not one of full, readability, trafilatura", c.Extract.Strategy)
	}
	if c.Extract.MaxChars <= 0 {
		return fmt.Errorf("extract.max_chars must be > 0")
	}
	if c.Classify.Threshold <= 0 || c.Classify.Threshold >= 1 {
		return fmt.Errorf("classify.threshold must be in (0,1)")
	}
	if c.Classify.TopK <= 0 {
		return fmt.Errorf("classify.top_k must be > 0")
	}
	if c.Classify.TimeoutSeconds <= 0 {
		return fmt.Errorf("classify.timeout_seconds must be > 0")
	}
	if c.Classify.MaxConcurrency <= 0 {
		return fmt.Errorf("classify.max_concurrency must be > 0")
	}
	if c.Classify.PreviewChars < 0 {
		return fmt.Errorf("classify.preview_chars must be >= 0")
	}
	switch c.Classify.Backend {
	case "huggingface":
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("gemini.api_key must be set when classify.backend is gemini")
		}
	default:
		return fmt.Errorf("classify.backend %q is not one of huggingface, gemini", c.Classify.Backend)
	}
	if c.LangDetect.Enabled && len(c.LangDetect.Languages) < 2 {
		return fmt.Errorf("langdetect.languages needs at least two languages when enabled")
	}
	return nil
}

// FetchTimeout returns the per-fetch network budget.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// ClassifyTimeout returns the per-inference budget.
func (c Config) ClassifyTimeout() time.Duration {
	return time.Duration(c.Classify.TimeoutSeconds) * time.Second
}

// RequestTimeout returns the HTTP server's per-request budget.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}
