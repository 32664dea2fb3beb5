package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sslingest/pkg/apierrors"
)

// Config holds the full application configuration
type Config struct {
	API    APIConfig    `mapstructure:"api"`
	DB     DBConfig     `mapstructure:"db"`
	Ingest IngestConfig `mapstructure:"ingest"`
}

// APIConfig controls how the SSL Labs API is called
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	UserAgent  string        `mapstructure:"user_agent"`
}

// DBConfig holds postgres connection settings
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// IngestConfig holds pipeline behavior settings
type IngestConfig struct {
	WaitBetween  time.Duration `mapstructure:"wait_between"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
}

// Load reads configuration from sslingest.yaml (searched in ., ./configs and
// ~/.config/sslingest) with SSLINGEST_* environment overrides. A missing
// config file is fine; defaults and env then apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sslingest")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "sslingest"))
		}
	}

	v.SetEnvPrefix("SSLINGEST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// An explicitly named file must exist; a missing default file is fine
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, apierrors.NewConfigError("config", path, err.Error())
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apierrors.NewConfigError("config", path, err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://api.ssllabs.com/api/v3")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.max_retries", 5)
	v.SetDefault("api.user_agent", "sslingest/1.0")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "sslingest")
	v.SetDefault("db.password", "sslingest")
	v.SetDefault("db.name", "sslingest")

	v.SetDefault("ingest.wait_between", "1s")
	v.SetDefault("ingest.poll_interval", "10s")
	v.SetDefault("ingest.poll_timeout", "15m")
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return apierrors.NewConfigError("api.base_url", c.API.BaseURL, "must not be empty")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return apierrors.NewConfigError("api.base_url", c.API.BaseURL, "must be an http(s) URL")
	}
	if c.API.MaxRetries < 1 {
		return apierrors.NewConfigError("api.max_retries", c.API.MaxRetries, "must be at least 1")
	}
	if c.API.Timeout <= 0 {
		return apierrors.NewConfigError("api.timeout", c.API.Timeout, "must be positive")
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		return apierrors.NewConfigError("db.port", c.DB.Port, "must be a valid port")
	}
	return nil
}
