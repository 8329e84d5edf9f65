package elearn

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the binaries need to talk to the platform.
type Config struct {
	API   APIConfig   `mapstructure:"api"`
	AI    AIConfig    `mapstructure:"ai"`
	Store StoreConfig `mapstructure:"store"`
	Web   WebConfig   `mapstructure:"web"`
	Log   LogConfig   `mapstructure:"log"`
}

// APIConfig points at the platform REST API.
type APIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the configured request timeout.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AIConfig configures the local generation fallback. It is optional;
// without an API key the fixed fallback question set is used instead.
type AIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// StoreConfig locates the local credential and history store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// WebConfig configures the web front end.
type WebConfig struct {
	Addr          string `mapstructure:"addr"`
	CookieSecret  string `mapstructure:"cookie_secret"`
	TemplateDir   string `mapstructure:"template_dir"`
	TranscriptDir string `mapstructure:"transcript_dir"`
}

// LogConfig configures the shared logger.
type LogConfig struct {
	File    string `mapstructure:"file"`
	Verbose bool   `mapstructure:"verbose"`
}

// LoadConfig reads config.yaml from path (if present) and the ELEARN_*
// environment, and fills in defaults for anything left unset.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("ELEARN")
	v.AutomaticEnv()

	v.BindEnv("api.base_url", "ELEARN_API_URL")
	v.BindEnv("ai.api_key", "OPENAI_API_KEY")
	v.BindEnv("ai.model", "OPENAI_MODEL")
	v.BindEnv("store.path", "ELEARN_STORE_PATH")
	v.BindEnv("web.addr", "ELEARN_WEB_ADDR")
	v.BindEnv("web.cookie_secret", "ELEARN_COOKIE_SECRET")
	v.BindEnv("log.verbose", "ELEARN_VERBOSE")

	v.SetDefault("api.base_url", "http://localhost:5000/api")
	v.SetDefault("api.timeout_seconds", 30)
	v.SetDefault("store.path", "elearn.db")
	v.SetDefault("web.addr", ":8180")
	v.SetDefault("web.template_dir", "templates")
	v.SetDefault("web.transcript_dir", "log")
	v.SetDefault("log.file", "")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
