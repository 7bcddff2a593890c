// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore, e.g. APPLYPILOT_BATCH__LIMIT sets batch.limit.
const EnvPrefix = "APPLYPILOT_"

// ConfigPathEnv names a YAML config file when no path is passed explicitly.
const ConfigPathEnv = "APPLYPILOT_CONFIG"

// Config is the full application configuration.
type Config struct {
	DatabaseURL    string `koanf:"database_url"`
	APIKey         string `koanf:"api_key"`
	KeyringAccount string `koanf:"keyring_account" validate:"required"`
	DocOutDir      string `koanf:"doc_out_dir" validate:"required"`
	DebugDir       string `koanf:"debug_dir"`
	Verbose        bool   `koanf:"verbose"`

	Browser BrowserConfig `koanf:"browser"`
	Tracker TrackerConfig `koanf:"tracker"`
	Batch   BatchConfig   `koanf:"batch"`
	LLM     LLMConfig     `koanf:"llm"`
	Server  ServerConfig  `koanf:"server"`
}

// BrowserConfig selects and tunes the browser driver.
type BrowserConfig struct {
	// Driver is chromedp for a real headless Chrome or static for plain HTTP + goquery.
	Driver            string        `koanf:"driver" validate:"oneof=chromedp static"`
	Headless          bool          `koanf:"headless"`
	NavigationTimeout time.Duration `koanf:"navigation_timeout" validate:"gt=0"`
	ActionTimeout     time.Duration `koanf:"action_timeout" validate:"gt=0"`
	SubmitWait        time.Duration `koanf:"submit_wait" validate:"gt=0"`
}

// TrackerConfig locates the xlsx workbooks.
type TrackerConfig struct {
	ApplicationsPath string `koanf:"applications_path" validate:"required"`
	LeadsPath        string `koanf:"leads_path" validate:"required"`
}

// BatchConfig holds the defaults for an autopilot batch.
type BatchConfig struct {
	ProfileID    int64         `koanf:"profile_id" validate:"min=1"`
	Limit        int           `koanf:"limit" validate:"min=1,max=50"`
	ResumeMode   string        `koanf:"resume_mode" validate:"oneof=ai static"`
	Submit       bool          `koanf:"submit"`
	Delay        time.Duration `koanf:"delay" validate:"min=0s,max=10s"`
	FailureDelay time.Duration `koanf:"failure_delay" validate:"min=0s"`
	LockPath     string        `koanf:"lock_path" validate:"required"`
	ClaimTTL     time.Duration `koanf:"claim_ttl" validate:"gt=0"`
}

// LLMConfig bounds calls to the text generation service.
type LLMConfig struct {
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"min=0"`
	Burst             int     `koanf:"burst" validate:"min=1"`
	Concurrency       int     `koanf:"concurrency" validate:"min=1,max=16"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int    `koanf:"port" validate:"min=1,max=65535"`
	JWTSecret          string `koanf:"jwt_secret"`
	JWTExpirationHours int    `koanf:"jwt_expiration_hours" validate:"min=1"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		KeyringAccount: "default",
		DocOutDir:      "data/resumes",
		Browser: BrowserConfig{
			Driver:            "chromedp",
			Headless:          true,
			NavigationTimeout: 60 * time.Second,
			ActionTimeout:     15 * time.Second,
			SubmitWait:        15 * time.Second,
		},
		Tracker: TrackerConfig{
			ApplicationsPath: "data/applications.xlsx",
			LeadsPath:        "data/leads.xlsx",
		},
		Batch: BatchConfig{
			ProfileID:    1,
			Limit:        10,
			ResumeMode:   "static",
			Submit:       true,
			Delay:        3 * time.Second,
			FailureDelay: time.Second,
			LockPath:     "data/autopilot.lock",
			ClaimTTL:     30 * time.Minute,
		},
		LLM: LLMConfig{
			RequestsPerSecond: 1,
			Burst:             2,
			Concurrency:       4,
		},
		Server: ServerConfig{
			Port:               8080,
			JWTExpirationHours: 24,
		},
	}
}

// Load builds a Config by layering, lowest precedence first:
//  1. defaults
//  2. the YAML file at path, or at $APPLYPILOT_CONFIG when path is empty
//  3. APPLYPILOT_* environment variables
//  4. the unprefixed DATABASE_URL, GEMINI_API_KEY and JWT_SECRET variables, for
//     keys still unset
//
// Command-line flags are applied by the caller on top of the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnvFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvFallbacks() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Server.JWTSecret == "" {
		c.Server.JWTSecret = os.Getenv("JWT_SECRET")
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}
