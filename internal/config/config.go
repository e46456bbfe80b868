package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config contains all runtime settings for the task list service.
type Config struct {
	BindAddr         string        `mapstructure:"bind_addr" validate:"required"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout" validate:"gte=1s"`
	MetricsNamespace string        `mapstructure:"metrics_namespace" validate:"required"`

	DatabaseURL string `mapstructure:"database_url" validate:"required"`
	StaticDir   string `mapstructure:"static_dir"`

	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"min=1,dive,required"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=json text"`

	OpenBrowser bool `mapstructure:"open_browser"`
}

var validate = validator.New()

// Load reads APP_* environment variables (and DATABASE_URL), an optional
// config file named by APP_CONFIG_FILE, and applies defaults.
// Environment variables win over the file.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("bind_addr", "127.0.0.1:5000")
	v.SetDefault("shutdown_timeout", 15*time.Second)
	v.SetDefault("metrics_namespace", "tasklist")
	v.SetDefault("database_url", "sqlite://tasks.db")
	v.SetDefault("static_dir", "")
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("open_browser", false)

	if err := v.BindEnv("database_url", "DATABASE_URL", "APP_DATABASE_URL"); err != nil {
		return Config{}, fmt.Errorf("bind DATABASE_URL: %w", err)
	}

	if path := strings.TrimSpace(v.GetString("config_file")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.BindAddr = strings.TrimSpace(cfg.BindAddr)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.StaticDir = strings.TrimSpace(cfg.StaticDir)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// splitList flattens comma separated entries; env values arrive as a single
// string while config files may carry a real list.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
