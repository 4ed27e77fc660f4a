package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/example/memodeck/pkg/validator"
)

// Config holds everything the application needs at startup. Values come
// from an optional config file, environment variables, and defaults, in
// that order of precedence.
type Config struct {
	Env   string      `mapstructure:"env" validate:"oneof=development production"`
	DB    DBConfig    `mapstructure:"db" validate:"required"`
	Study StudyConfig `mapstructure:"study" validate:"required"`
	Stats StatsConfig `mapstructure:"stats" validate:"required"`
}

type DBConfig struct {
	// Driver is sqlite3 for local single-user setups or postgres when
	// the collection lives on a shared server.
	Driver string `mapstructure:"driver" validate:"oneof=sqlite3 postgres"`
	DSN    string `mapstructure:"dsn" validate:"required"`

	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1,max=100"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"min=0"`
}

type StudyConfig struct {
	// SessionSize caps how many cards a single study session may hold.
	SessionSize int `mapstructure:"session_size" validate:"min=1,max=500"`
	// NewCardOrder is either random or sequential.
	NewCardOrder string `mapstructure:"new_card_order" validate:"oneof=random sequential"`
}

type StatsConfig struct {
	// SyncInterval is how often stored deck counters are reconciled
	// against the card table.
	SyncInterval time.Duration `mapstructure:"sync_interval" validate:"min=1m"`
}

// Init loads .env if present, then reads configs/<CONFIG_NAME>.yml when
// it exists, applies environment overrides, and validates the result.
func Init() (*Config, error) {
	// A missing .env is fine, it only matters for local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("env", "production")
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "data/memodeck.db")
	v.SetDefault("db.max_open_conns", 1)
	v.SetDefault("db.conn_max_lifetime", time.Hour)
	v.SetDefault("study.session_size", 20)
	v.SetDefault("study.new_card_order", "random")
	v.SetDefault("stats.sync_interval", time.Hour)

	bindings := map[string]string{
		"env":                  "APP_ENV",
		"db.driver":            "DB_DRIVER",
		"db.dsn":               "DB_DSN",
		"study.session_size":   "STUDY_SESSION_SIZE",
		"study.new_card_order": "STUDY_NEW_CARD_ORDER",
		"stats.sync_interval":  "STATS_SYNC_INTERVAL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	configName := os.Getenv("CONFIG_NAME")
	if configName == "" {
		configName = "default"
	}
	v.AddConfigPath("configs")
	v.SetConfigName(configName)

	if err := v.ReadInConfig(); err != nil {
		// The file is optional, defaults plus env cover the rest.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.ValidateStruct(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
