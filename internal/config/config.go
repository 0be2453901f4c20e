package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"alfredoptarigan/cv-editor/internal/logger"
)

type Config struct {
	Server    ServerConfig
	CVAPI     CVAPIConfig
	Poll      PollConfig
	Upload    UploadConfig
	Workspace WorkspaceConfig
	Catalog   CatalogConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port          string `env:"PORT" env-default:"3000"`
	Env           string `env:"ENV" env-default:"development"`
	SessionCookie string `env:"SESSION_COOKIE" env-default:"cv_session"`
}

type CVAPIConfig struct {
	BaseURL   string        `env:"CVAPI_BASE_URL" env-default:"https://8bhp1g0nti.execute-api.eu-central-1.amazonaws.com"`
	Timeout   time.Duration `env:"CVAPI_TIMEOUT" env-default:"30s"`
	DebugMode bool          `env:"CVAPI_DEBUG_MODE" env-default:"false"`
}

type PollConfig struct {
	Interval    time.Duration `env:"POLL_INTERVAL" env-default:"5s"`
	MaxAttempts int           `env:"POLL_MAX_ATTEMPTS" env-default:"120"`
	Timeout     time.Duration `env:"POLL_TIMEOUT" env-default:"15m"`
}

type UploadConfig struct {
	Concurrency int   `env:"UPLOAD_CONCURRENCY" env-default:"3"`
	MaxFileSize int64 `env:"MAX_FILE_SIZE" env-default:"10485760"`
}

type WorkspaceConfig struct {
	TTL time.Duration `env:"WORKSPACE_TTL" env-default:"2h"`
}

type CatalogConfig struct {
	Path string `env:"CATALOG_PATH"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"pretty"`
}

// Load reads envFile (when present) into the environment and builds the
// configuration from it.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		logger.Info().Str("file", envFile).Msg("No .env file found. Using environment and defaults.")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.CVAPI.BaseURL == "" {
		return fmt.Errorf("CVAPI_BASE_URL is required")
	}
	if !strings.HasPrefix(c.CVAPI.BaseURL, "http://") && !strings.HasPrefix(c.CVAPI.BaseURL, "https://") {
		return fmt.Errorf("CVAPI_BASE_URL must be an http(s) URL, got %q", c.CVAPI.BaseURL)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}
	if c.Upload.Concurrency <= 0 {
		return fmt.Errorf("UPLOAD_CONCURRENCY must be positive")
	}
	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// DebugModeHeader is the value sent in the upload request's debug_mode header.
func (c *CVAPIConfig) DebugModeHeader() string {
	if c.DebugMode {
		return "true"
	}
	return "false"
}
