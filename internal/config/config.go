// Package config loads runtime configuration from a YAML file, a .env file
// and HOLDFOLIO_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. HOLDFOLIO_SERVER_ADDR.
const EnvPrefix = "HOLDFOLIO"

// MaxImportBatchSize is the most use rows one insert statement may carry.
// SQLite binds at most 32766 variables per statement and each row takes five.
const MaxImportBatchSize = 32766 / 5

// Config captures the runtime configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Import    ImportConfig    `mapstructure:"import"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins       []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	// JWTSecret signs session tokens. When empty a secret is generated and
	// kept in the database.
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	AllowSignup bool          `mapstructure:"allow_signup"`
}

type ImportConfig struct {
	MaxBytes  int64 `mapstructure:"max_bytes"`
	BatchSize int   `mapstructure:"batch_size"`
}

type DashboardConfig struct {
	Days int `mapstructure:"days"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Options controls the config loader behavior.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load returns the merged configuration sourced from YAML and environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else if cfg := os.Getenv(EnvPrefix + "_CONFIG_FILE"); cfg != "" {
		v.SetConfigFile(cfg)
		explicitFile = true
	}

	if !explicitFile {
		v.SetConfigName("holdfolio")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures values are usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr must be provided")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path must be provided")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be > 0")
	}
	if c.Import.MaxBytes <= 0 {
		return fmt.Errorf("import.max_bytes must be > 0")
	}
	if c.Import.BatchSize <= 0 || c.Import.BatchSize > MaxImportBatchSize {
		return fmt.Errorf("import.batch_size must be between 1 and %d", MaxImportBatchSize)
	}
	if c.Dashboard.Days <= 0 || c.Dashboard.Days > 366 {
		return fmt.Errorf("dashboard.days must be between 1 and 366")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}

	c.Server.CORSOrigins = normalizeStringSlice(c.Server.CORSOrigins)
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_header_timeout", "5s")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("database.path", "holdfolio.sqlite3")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "168h")
	v.SetDefault("auth.allow_signup", true)

	v.SetDefault("import.max_bytes", 5<<20)
	v.SetDefault("import.batch_size", 500)

	v.SetDefault("dashboard.days", 30)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

func normalizeStringSlice(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
