package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration, read from config.yml with
// environment variables as the fallback (DATABASE_PATH overrides
// database.path and so on).
type Config struct {
	Server struct {
		Host string
		Port int
		Mode string // gin mode: "debug" or "release"
	}
	Database struct {
		Path string
	}
	Retention struct {
		Enabled   bool
		Months    int
		Interval  time.Duration
		ExportDir string
	}
	Analyzer struct {
		GatewayURL string
		APIKey     string
		Model      string
	}
	Log struct {
		Mode string // "dev" or "prod"
	}
	Auth struct {
		// AllowedUserIDs restricts who may call the tools. Empty means open.
		AllowedUserIDs []int64
	}
}

// Load reads config.yml from the given directory (or the working directory
// when empty). A missing file is not an error: every key falls back to an
// environment variable with dots replaced by underscores.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	cfg.Server.Host = v.GetString("server.host")
	cfg.Server.Port = v.GetInt("server.port")
	cfg.Server.Mode = v.GetString("server.mode")
	cfg.Database.Path = v.GetString("database.path")
	cfg.Retention.Enabled = v.GetBool("retention.enabled")
	cfg.Retention.Months = v.GetInt("retention.months")
	cfg.Retention.Interval = v.GetDuration("retention.interval")
	cfg.Retention.ExportDir = v.GetString("retention.export_dir")
	cfg.Analyzer.GatewayURL = v.GetString("analyzer.gateway_url")
	cfg.Analyzer.APIKey = v.GetString("analyzer.api_key")
	cfg.Analyzer.Model = v.GetString("analyzer.model")
	cfg.Log.Mode = v.GetString("log.mode")
	for _, id := range v.GetIntSlice("auth.allowed_user_ids") {
		cfg.Auth.AllowedUserIDs = append(cfg.Auth.AllowedUserIDs, int64(id))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.path", "./data/diet.db")
	v.SetDefault("retention.enabled", true)
	v.SetDefault("retention.months", 2)
	v.SetDefault("retention.interval", 24*time.Hour)
	v.SetDefault("retention.export_dir", "")
	v.SetDefault("analyzer.gateway_url", "http://localhost:9876/openrouter-gateway")
	v.SetDefault("analyzer.api_key", "")
	v.SetDefault("analyzer.model", "anthropic/claude-3.5-sonnet")
	v.SetDefault("log.mode", "prod")
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.Retention.Months <= 0 {
		return fmt.Errorf("config: retention months must be positive, got %d", c.Retention.Months)
	}
	if c.Retention.Interval < time.Minute {
		return fmt.Errorf("config: retention interval %s is too short", c.Retention.Interval)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("config: database path is required")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// UserAllowed reports whether the user may call tools. An empty allow-list
// means everyone is allowed.
func (c *Config) UserAllowed(userID int64) bool {
	if len(c.Auth.AllowedUserIDs) == 0 {
		return true
	}
	for _, id := range c.Auth.AllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
