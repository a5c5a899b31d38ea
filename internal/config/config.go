package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/storefront/internal/log"
)

type Application struct {
	Env     string `mapstructure:"env"      json:"env"`
	Host    string `mapstructure:"host"     json:"host"`
	LogPath string `mapstructure:"log_path" json:"log_path"`
	Port    int    `mapstructure:"port"     json:"port"`
}

type Catalog struct {
	BaseURL              string        `mapstructure:"base_url"               json:"base_url"`
	Timeout              time.Duration `mapstructure:"timeout"                json:"timeout"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval" json:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `mapstructure:"retry_max_interval"     json:"retry_max_interval"`
	RetryMaxAttempts     int           `mapstructure:"retry_max_attempts"     json:"retry_max_attempts"`
}

type Storage struct {
	Driver    string `mapstructure:"driver"     json:"driver"`
	KeyPrefix string `mapstructure:"key_prefix" json:"key_prefix"`
}

type Cache struct {
	Host     string `mapstructure:"host"     json:"host"`
	Password string `mapstructure:"password" json:"-"`
	Database int    `mapstructure:"database" json:"database"`
	Port     uint16 `mapstructure:"port"     json:"port"`
}

type Database struct {
	Name           string `mapstructure:"name"            json:"name"`
	Host           string `mapstructure:"host"            json:"host"`
	MigrationPath  string `mapstructure:"migration_path"  json:"migration_path"`
	Password       string `mapstructure:"password"        json:"-"`
	Username       string `mapstructure:"username"        json:"username"`
	MaxConnections int32  `mapstructure:"max_connections" json:"max_connections"`
	MinConnections int32  `mapstructure:"min_connections" json:"min_connections"`
	Port           uint16 `mapstructure:"port"            json:"port"`
	Enabled        bool   `mapstructure:"enabled"         json:"enabled"`
}

type Cart struct {
	ArchivePolicy string `mapstructure:"archive_policy" json:"archive_policy"`
}

type Otel struct {
	Host           string        `mapstructure:"host"            json:"host"`
	ExportInterval time.Duration `mapstructure:"export_interval" json:"export_interval"`
	Port           int           `mapstructure:"port"            json:"port"`
	Enabled        bool          `mapstructure:"enabled"         json:"enabled"`
}

type Config struct {
	Application `mapstructure:"application" json:"application"`
	Catalog     `mapstructure:"catalog"     json:"catalog"`
	Storage     `mapstructure:"storage"     json:"storage"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Database    `mapstructure:"db"          json:"db"`
	Cart        `mapstructure:"cart"        json:"cart"`
	Otel        `mapstructure:"otel"        json:"otel"`
}

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"

	ArchiveOnLogout   = "logout"
	ArchiveOnMutation = "mutation"
)

var (
	once   sync.Once
	config *Config
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.env", "development")
	v.SetDefault("application.host", "localhost")
	v.SetDefault("application.port", 8080)
	v.SetDefault("application.log_path", "")

	v.SetDefault("catalog.base_url", "https://api.escuelajs.co/api/v1")
	v.SetDefault("catalog.timeout", 15*time.Second)
	v.SetDefault("catalog.retry_max_attempts", 3)
	v.SetDefault("catalog.retry_initial_interval", time.Second)
	v.SetDefault("catalog.retry_max_interval", 8*time.Second)

	v.SetDefault("storage.driver", StorageMemory)
	v.SetDefault("storage.key_prefix", "")

	v.SetDefault("cache.host", "localhost")
	v.SetDefault("cache.port", 6379)
	v.SetDefault("cache.database", 0)

	v.SetDefault("db.enabled", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "storefront")
	v.SetDefault("db.username", "postgres")
	v.SetDefault("db.migration_path", "file://migrations")
	v.SetDefault("db.max_connections", 10)
	v.SetDefault("db.min_connections", 1)

	v.SetDefault("cart.archive_policy", ArchiveOnLogout)

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.host", "otel-collector")
	v.SetDefault("otel.port", 4317)
	v.SetDefault("otel.export_interval", 5*time.Second)
}

// Load reads env/<filename>.yaml (if present) on top of the defaults and
// applies environment overrides such as CATALOG_BASE_URL.
func Load(c context.Context, filename string, paths ...string) (*Config, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "config Load").
		Str("filename", filename).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "loading dotenv").Logger()
	logger.Trace().Msg("loading dotenv")
	if err := godotenv.Load(); err != nil {
		logger.Debug().Err(err).Msg("no .env file loaded")
	} else {
		logger.Info().Msg("loaded dotenv")
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(filename)
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./env"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	logger = logger.With().Str(log.KeyProcess, "reading config").Logger()
	logger.Info().Msg("reading config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			err = fmt.Errorf("failed reading config with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		logger.Warn().Msg("config file not found, using defaults")
	} else {
		logger.Info().Msg("read config")
	}

	logger = logger.With().Str(log.KeyProcess, "unmarshaling config").Logger()
	logger.Info().Msg("unmarshaling config")
	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		err = fmt.Errorf("failed unmarshaling config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Any(log.KeyConfig, cfg).Msg("unmarshaled config")

	return &cfg, nil
}

func InitConfig(c context.Context, filename string) *Config {
	once.Do(func() {
		cfg, err := Load(c, filename)
		if err != nil {
			zerolog.Ctx(c).Fatal().Err(err).Msg(err.Error())
		}
		config = cfg
	})
	return config
}
