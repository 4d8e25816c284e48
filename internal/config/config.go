// Package config provides Viper-based configuration management for portcullis
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/naveenspark/portcullis/internal/auth"
)

// EnvPrefix prefixes every environment override, e.g. PORTCULLIS_API_URL.
const EnvPrefix = "PORTCULLIS"

// Config represents the complete portcullis configuration
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Web     WebConfig     `mapstructure:"web"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig points at the backend
type APIConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WebConfig points at the browser dashboard
type WebConfig struct {
	URL string `mapstructure:"url"`
}

// AuthConfig selects and tunes the auth service
type AuthConfig struct {
	Mode       string        `mapstructure:"mode"`
	TokenFile  string        `mapstructure:"token_file"`
	MockSecret string        `mapstructure:"mock_secret"`
	MockTTL    time.Duration `mapstructure:"mock_ttl"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load reads configuration from file and environment variables.
// A missing config file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.config/portcullis")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if secret := readSecretFile(EnvPrefix + "_AUTH_MOCK_SECRET_FILE"); secret != "" {
		cfg.Auth.MockSecret = secret
	}
	cfg.Auth.TokenFile = expandHome(cfg.Auth.TokenFile)
	cfg.Logging.File = expandHome(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", "https://api.portcullis.dev")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("web.url", "https://portcullis.dev/dashboard")
	v.SetDefault("auth.mode", string(auth.ModeRemote))
	v.SetDefault("auth.token_file", "~/.portcullis/token")
	v.SetDefault("auth.mock_secret", "portcullis-dev-secret")
	v.SetDefault("auth.mock_ttl", 24*time.Hour)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "~/.portcullis/portcullis.log")
}

// Validate checks the configuration for values the client cannot run with
func (c *Config) Validate() error {
	mode := auth.Mode(c.Auth.Mode)
	if !mode.Valid() {
		return fmt.Errorf("auth.mode must be %q or %q, got %q", auth.ModeRemote, auth.ModeMock, c.Auth.Mode)
	}
	if mode == auth.ModeRemote {
		u, err := url.Parse(c.API.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("api.url must be an absolute http(s) URL, got %q", c.API.URL)
		}
	}
	if mode == auth.ModeMock && c.Auth.MockSecret == "" {
		return errors.New("auth.mock_secret cannot be empty in mock mode")
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.Auth.MockTTL <= 0 {
		return errors.New("auth.mock_ttl must be positive")
	}
	if c.Auth.TokenFile == "" {
		return errors.New("auth.token_file cannot be empty")
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// AuthService returns the settings auth.New needs.
func (c *Config) AuthService() auth.Config {
	return auth.Config{
		Mode:       auth.Mode(c.Auth.Mode),
		APIURL:     strings.TrimRight(c.API.URL, "/"),
		Timeout:    c.API.Timeout,
		MockSecret: c.Auth.MockSecret,
		MockTTL:    c.Auth.MockTTL,
	}
}

// SlogLevel parses Level into a slog level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging.level: %w", err)
	}
	return lvl, nil
}

// readSecretFile returns the trimmed content of the file named by env, if any.
func readSecretFile(env string) string {
	path := os.Getenv(env)
	if path == "" {
		return ""
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(content))
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
