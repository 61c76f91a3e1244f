package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/raysh454/appreviewer/internal/analyzer"
	"github.com/raysh454/appreviewer/internal/llm"
	"github.com/raysh454/appreviewer/internal/render"
	"github.com/raysh454/appreviewer/internal/scoring"
	"github.com/raysh454/appreviewer/internal/upload"
)

// Config holds every runtime option. Values come from DefaultConfig, then an
// optional YAML file, then .env and the process environment.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	CORSOrigin string `yaml:"cors_origin"`
	LogLevel   string `yaml:"log_level"`
	Version    string `yaml:"-"`

	// Uploads
	UploadDir         string   `yaml:"upload_dir"`
	DatabasePath      string   `yaml:"database_path"`
	MaxFileSize       int64    `yaml:"max_file_size"`
	AllowedExtensions []string `yaml:"allowed_extensions"`

	// Analysis
	AnalyzerMode    string          `yaml:"analyzer_mode"` // "heuristic" | "llm"
	AnalyzerTimeout time.Duration   `yaml:"analyzer_timeout"`
	Weights         scoring.Weights `yaml:"weights"`
	LLM             llm.Config      `yaml:"llm"`
	Render          render.Config   `yaml:"render"`

	// Status registry. An empty RedisURL keeps statuses in memory.
	RedisURL  string        `yaml:"redis_url"`
	StatusTTL time.Duration `yaml:"status_ttl"`
}

// DefaultConfig returns a Config populated with sensible development defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:        ":8000",
		CORSOrigin:        "*",
		LogLevel:          "info",
		Version:           "dev",
		UploadDir:         "uploads",
		DatabasePath:      filepath.Join("uploads", "appreviewer.db"),
		MaxFileSize:       upload.DefaultMaxFileSize,
		AllowedExtensions: upload.DefaultExtensions(),
		AnalyzerMode:      analyzer.ModeHeuristic,
		AnalyzerTimeout:   90 * time.Second,
		Weights:           scoring.DefaultWeights(),
		LLM: llm.Config{
			Provider: llm.ProviderClaude,
			Timeout:  60 * time.Second,
		},
		Render:    render.DefaultConfig(),
		StatusTTL: 24 * time.Hour,
	}
}

// LoadConfig builds the configuration. path may be empty; a missing .env file
// is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("APPREVIEWER_LISTEN_ADDR", &c.ListenAddr)
	str("APPREVIEWER_CORS_ORIGIN", &c.CORSOrigin)
	str("APPREVIEWER_LOG_LEVEL", &c.LogLevel)
	str("APPREVIEWER_UPLOAD_DIR", &c.UploadDir)
	str("APPREVIEWER_DATABASE_PATH", &c.DatabasePath)
	str("APPREVIEWER_ANALYZER_MODE", &c.AnalyzerMode)
	str("LLM_PROVIDER", &c.LLM.Provider)
	str("APPREVIEWER_LLM_MODEL", &c.LLM.Model)
	str("APPREVIEWER_LLM_BASE_URL", &c.LLM.BaseURL)
	str("REDIS_URL", &c.RedisURL)

	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderOpenAI:
		str("OPENAI_API_KEY", &c.LLM.APIKey)
	default:
		str("ANTHROPIC_API_KEY", &c.LLM.APIKey)
	}
	str("APPREVIEWER_LLM_API_KEY", &c.LLM.APIKey)

	if v := getenv("APPREVIEWER_ALLOWED_EXTENSIONS"); v != "" {
		var exts []string
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				if !strings.HasPrefix(e, ".") {
					e = "." + e
				}
				exts = append(exts, strings.ToLower(e))
			}
		}
		c.AllowedExtensions = exts
	}
	if v := getenv("APPREVIEWER_MAX_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("APPREVIEWER_MAX_FILE_SIZE: %w", err)
		}
		c.MaxFileSize = n
	}
	for key, dst := range map[string]*time.Duration{
		"APPREVIEWER_ANALYZER_TIMEOUT": &c.AnalyzerTimeout,
		"APPREVIEWER_STATUS_TTL":       &c.StatusTTL,
	} {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	if v := getenv("APPREVIEWER_RENDER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("APPREVIEWER_RENDER: %w", err)
		}
		c.Render.Enabled = b
	}
	return nil
}

// Validate checks limits, weights and the analyzer mode.
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("allowed_extensions must not be empty")
	}
	if c.AnalyzerTimeout <= 0 {
		return fmt.Errorf("analyzer_timeout must be positive, got %s", c.AnalyzerTimeout)
	}
	switch c.AnalyzerMode {
	case analyzer.ModeHeuristic:
	case analyzer.ModeLLM:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("analyzer_mode %q: %w", c.AnalyzerMode, llm.ErrNoAPIKey)
		}
	default:
		return fmt.Errorf("unknown analyzer_mode %q", c.AnalyzerMode)
	}
	return nil
}

// Validator returns the upload limits derived from c.
func (c *Config) Validator() upload.Validator {
	return upload.Validator{MaxSize: c.MaxFileSize, Extensions: c.AllowedExtensions}
}
