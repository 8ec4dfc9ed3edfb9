package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Server struct {
	Port              string `mapstructure:"port"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
}

// Upstream configures the price endpoint and how it is called.
type Upstream struct {
	// Endpoint is the full provider URL including any credential. A value
	// persisted through the settings API takes precedence.
	Endpoint             string `mapstructure:"endpoint"`
	TimeoutSec           int    `mapstructure:"timeout_sec"`
	CacheTTLHours        int    `mapstructure:"cache_ttl_hours"`
	MaxRequestsPerMinute int    `mapstructure:"max_requests_per_minute"`
	Burst                int    `mapstructure:"burst"`
	UserAgent            string `mapstructure:"user_agent"`
}

func (u Upstream) Timeout() time.Duration  { return time.Duration(u.TimeoutSec) * time.Second }
func (u Upstream) CacheTTL() time.Duration { return time.Duration(u.CacheTTLHours) * time.Hour }

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Store selects the persistence backend: memory, redis, sqlite or postgres.
type Store struct {
	Driver      string `mapstructure:"driver"`
	Redis       Redis  `mapstructure:"redis"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	DatabaseURL string `mapstructure:"database_url"`
}

// Refresh controls the background refresh loop. IntervalHours 0 disables it.
type Refresh struct {
	IntervalHours int `mapstructure:"interval_hours"`
	MaxElapsedSec int `mapstructure:"max_elapsed_sec"`
}

func (r Refresh) Interval() time.Duration   { return time.Duration(r.IntervalHours) * time.Hour }
func (r Refresh) MaxElapsed() time.Duration { return time.Duration(r.MaxElapsedSec) * time.Second }

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Server   Server    `mapstructure:"server"`
	Upstream Upstream  `mapstructure:"upstream"`
	Store    Store     `mapstructure:"store"`
	Refresh  Refresh   `mapstructure:"refresh"`
	Log      LogConfig `mapstructure:"log"`
}

var dotenvOnce sync.Once

// LoadDotenvOnce loads .env (or ENV_FILE) into the process environment the
// first time it is called. Set NO_DOTENV=1 to skip.
func LoadDotenvOnce() {
	dotenvOnce.Do(func() {
		if os.Getenv("NO_DOTENV") == "1" {
			return
		}
		path := os.Getenv("ENV_FILE")
		if path == "" {
			path = ".env"
		}
		if err := godotenv.Load(path); err == nil {
			zap.L().Debug("config: loaded env file", zap.String("path", path))
		}
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout_sec", 20)
	v.SetDefault("upstream.endpoint", "")
	v.SetDefault("upstream.timeout_sec", 15)
	v.SetDefault("upstream.cache_ttl_hours", 12)
	v.SetDefault("upstream.max_requests_per_minute", 30)
	v.SetDefault("upstream.burst", 2)
	v.SetDefault("upstream.user_agent", "metalprice/1.0")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.sqlite_path", "metalprice.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("refresh.interval_hours", 12)
	v.SetDefault("refresh.max_elapsed_sec", 600)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from a JSON file and the environment. path may be
// empty, in which case CONFIG_FILE or ./config.json is used if present.
// Environment variables use the METALPRICE_ prefix, e.g.
// METALPRICE_UPSTREAM_ENDPOINT.
func Load(path string) (*Config, error) {
	LoadDotenvOnce()

	v := viper.New()
	v.SetConfigType("json")
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("METALPRICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "redis", "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for postgres")
		}
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Upstream.TimeoutSec <= 0 {
		return eris.New("config: upstream.timeout_sec must be positive")
	}
	if c.Upstream.CacheTTLHours <= 0 {
		return eris.New("config: upstream.cache_ttl_hours must be positive")
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
