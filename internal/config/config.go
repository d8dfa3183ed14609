package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"sibeo/internal/common"
)

// defaultInstructorCode is the verification code handed out by the admins
const defaultInstructorCode = "292929"

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: common.DefaultAPIBaseURL,
			Timeout: common.DefaultTimeout.String(),
		},
		Session: SessionConfig{
			Backend: "local",
			Dir:     defaultSessionDir(),
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Web: WebConfig{
			Addr: common.DefaultWebListenAddr,
		},
		Auth: AuthConfig{
			InstructorCode: defaultInstructorCode,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from .env, an optional YAML file and environment variables
func Load() (*Config, error) {
	// .env is optional; a missing file is not an error
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path := os.Getenv("SIBEO_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.API.BaseURL = getEnvString("SIBEO_API_BASE_URL", c.API.BaseURL)
	c.API.Timeout = getEnvString("SIBEO_API_TIMEOUT", c.API.Timeout)

	c.Session.Backend = getEnvString("SIBEO_SESSION_BACKEND", c.Session.Backend)
	c.Session.Dir = getEnvString("SIBEO_SESSION_DIR", c.Session.Dir)
	c.Session.S3.Bucket = getEnvString("SIBEO_S3_BUCKET", c.Session.S3.Bucket)
	c.Session.S3.Region = getEnvString("SIBEO_S3_REGION", c.Session.S3.Region)
	c.Session.S3.Prefix = getEnvString("SIBEO_S3_PREFIX", c.Session.S3.Prefix)
	c.Session.S3.Endpoint = getEnvString("SIBEO_S3_ENDPOINT", c.Session.S3.Endpoint)

	c.Web.Addr = getEnvString("SIBEO_WEB_ADDR", c.Web.Addr)
	c.Web.FlashSecret = getEnvString("SIBEO_FLASH_SECRET", c.Web.FlashSecret)

	c.Auth.InstructorCodeHash = getEnvString("SIBEO_INSTRUCTOR_CODE_HASH", c.Auth.InstructorCodeHash)
	c.Auth.InstructorCode = getEnvString("SIBEO_INSTRUCTOR_CODE", c.Auth.InstructorCode)

	c.Log.Level = getEnvString("SIBEO_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvString("SIBEO_LOG_FORMAT", c.Log.Format)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultSessionDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return common.DefaultSessionDir
	}
	return filepath.Join(home, common.DefaultSessionDir)
}

// APITimeout returns the parsed request timeout; zero disables it
func (c *Config) APITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return common.DefaultTimeout
	}
	return d
}

// String returns a pretty-printed JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api base url: %q", c.API.BaseURL)
	}

	if d, err := time.ParseDuration(c.API.Timeout); err != nil || d < 0 {
		return fmt.Errorf("invalid api timeout: %q", c.API.Timeout)
	}

	switch c.Session.Backend {
	case "local":
		if c.Session.Dir == "" {
			return fmt.Errorf("session dir is required for the local backend")
		}
	case "s3":
		if c.Session.S3.Bucket == "" {
			return fmt.Errorf("session s3 bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("invalid session backend: %s", c.Session.Backend)
	}

	if c.Auth.InstructorCodeHash == "" && c.Auth.InstructorCode == "" {
		return fmt.Errorf("an instructor verification code or hash is required")
	}

	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}
