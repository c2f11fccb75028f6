package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Fetch     FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Parse     ParseConfig  `yaml:"parse" mapstructure:"parse"`
	Store     StoreConfig  `yaml:"store" mapstructure:"store"`
	Export    ExportConfig `yaml:"export" mapstructure:"export"`
	Server    ServerConfig `yaml:"server" mapstructure:"server"`
	Log       LogConfig    `yaml:"log" mapstructure:"log"`
	SitesFile string       `yaml:"sites_file" mapstructure:"sites_file"`
}

// FetchConfig configures the shared HTTP session used for one run.
type FetchConfig struct {
	Concurrency  int               `yaml:"concurrency" mapstructure:"concurrency"` // 0 = min(32, NumCPU+4)
	TimeoutSecs  int               `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent    string            `yaml:"user_agent" mapstructure:"user_agent"`
	Proxy        string            `yaml:"proxy" mapstructure:"proxy"`
	RateLimit    float64           `yaml:"rate_limit" mapstructure:"rate_limit"` // requests/sec, 0 = unlimited
	Burst        int               `yaml:"burst" mapstructure:"burst"`
	MaxBodyBytes int64             `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	Headers      map[string]string `yaml:"headers" mapstructure:"headers"`
}

// Timeout returns the per-request timeout.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ParseConfig configures the extraction pool.
type ParseConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"` // 0 = GOMAXPROCS
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ExportConfig configures tabular output.
type ExportConfig struct {
	CSVDelimiter string `yaml:"csv_delimiter" mapstructure:"csv_delimiter"`
	Sheet        string `yaml:"sheet" mapstructure:"sheet"`
	StartRow     int    `yaml:"start_row" mapstructure:"start_row"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("fetch.concurrency", 0)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.proxy", "")
	v.SetDefault("fetch.rate_limit", 0)
	v.SetDefault("fetch.burst", 1)
	v.SetDefault("fetch.max_body_bytes", 10<<20)
	v.SetDefault("parse.concurrency", 0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "product-scraper.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("export.csv_delimiter", ";")
	v.SetDefault("export.sheet", "Sheet1")
	v.SetDefault("export.start_row", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.request_timeout_secs", 300)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("sites_file", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "search" and "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "search":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Fetch.Concurrency < 0 || c.Fetch.Concurrency > 256 {
		problems = append(problems, "fetch.concurrency must be between 0 and 256")
	}
	if c.Parse.Concurrency < 0 {
		problems = append(problems, "parse.concurrency must be >= 0")
	}
	if c.Fetch.TimeoutSecs <= 0 {
		problems = append(problems, "fetch.timeout_secs must be > 0")
	}
	if c.Fetch.RateLimit < 0 {
		problems = append(problems, "fetch.rate_limit must be >= 0")
	}
	if len([]rune(c.Export.CSVDelimiter)) != 1 {
		problems = append(problems, "export.csv_delimiter must be a single character")
	}
	if c.Export.StartRow < 1 {
		problems = append(problems, "export.start_row must be >= 1")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
