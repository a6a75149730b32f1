// README: Config loader: viper defaults, SHIFT_* environment overrides and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix  = "SHIFT"
	envFileVar = "SHIFT_CONFIG_FILE"
)

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MigrationURL string `mapstructure:"migration_url"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type DatasetConfig struct {
	Path string `mapstructure:"path"`
}

// OracleConfig selects the routing oracle behind the travel estimator.
// Provider is one of osrm, google or none.
type OracleConfig struct {
	Provider      string        `mapstructure:"provider"`
	BaseURL       string        `mapstructure:"base_url"`
	Profile       string        `mapstructure:"profile"`
	GoogleAPIKey  string        `mapstructure:"google_api_key"`
	Region        string        `mapstructure:"region"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
}

type GridConfig struct {
	MinLat float64 `mapstructure:"min_lat"`
	MaxLat float64 `mapstructure:"max_lat"`
	MinLng float64 `mapstructure:"min_lng"`
	MaxLng float64 `mapstructure:"max_lng"`
	Size   int     `mapstructure:"size"`
}

type DispatchConfig struct {
	Episodes     int     `mapstructure:"episodes"`
	MaxSteps     int     `mapstructure:"max_steps"`
	Alpha        float64 `mapstructure:"alpha"`
	Gamma        float64 `mapstructure:"gamma"`
	TrainExplore float64 `mapstructure:"train_explore"`
	Explore      float64 `mapstructure:"explore"`
	Seed         int64   `mapstructure:"seed"`
	Parallelism  int     `mapstructure:"parallelism"`
	DropoffPool  int     `mapstructure:"dropoff_pool"`
	PickupPool   int     `mapstructure:"pickup_pool"`
	// Warm trains the Q-learning dispatcher at startup instead of on the
	// first request.
	Warm bool `mapstructure:"warm"`
}

type HistoryConfig struct {
	RetentionDays int    `mapstructure:"retention_days"`
	PruneSchedule string `mapstructure:"prune_schedule"`
}

type FirebaseConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AIConfig struct {
	GeminiKey string `mapstructure:"gemini_key"`
	Model     string `mapstructure:"model"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Environment string         `mapstructure:"environment"`
	HTTP        HTTPConfig     `mapstructure:"http"`
	DB          DBConfig       `mapstructure:"db"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Dataset     DatasetConfig  `mapstructure:"dataset"`
	Oracle      OracleConfig   `mapstructure:"oracle"`
	Grid        GridConfig     `mapstructure:"grid"`
	Dispatch    DispatchConfig `mapstructure:"dispatch"`
	History     HistoryConfig  `mapstructure:"history"`
	Firebase    FirebaseConfig `mapstructure:"firebase"`
	AI          AIConfig       `mapstructure:"ai"`
	Log         LogConfig      `mapstructure:"log"`
}

// Retention is the history retention period.
func (c Config) Retention() time.Duration {
	return time.Duration(c.History.RetentionDays) * 24 * time.Hour
}

func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.migration_url", "file://db/migration")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.cache_ttl", 24*time.Hour)

	v.SetDefault("dataset.path", "data/demand.csv")

	v.SetDefault("oracle.provider", "osrm")
	v.SetDefault("oracle.base_url", "https://router.project-osrm.org")
	v.SetDefault("oracle.profile", "driving")
	v.SetDefault("oracle.google_api_key", "")
	v.SetDefault("oracle.region", "sg")
	v.SetDefault("oracle.timeout", 3*time.Second)
	v.SetDefault("oracle.rate_per_second", 10.0)
	v.SetDefault("oracle.burst", 5)

	v.SetDefault("grid.min_lat", 1.2)
	v.SetDefault("grid.max_lat", 1.5)
	v.SetDefault("grid.min_lng", 103.6)
	v.SetDefault("grid.max_lng", 104.1)
	v.SetDefault("grid.size", 20)

	v.SetDefault("dispatch.episodes", 50)
	v.SetDefault("dispatch.max_steps", 10)
	v.SetDefault("dispatch.alpha", 0.1)
	v.SetDefault("dispatch.gamma", 0.9)
	v.SetDefault("dispatch.train_explore", 0.5)
	v.SetDefault("dispatch.explore", 0.1)
	v.SetDefault("dispatch.seed", 0)
	v.SetDefault("dispatch.parallelism", 8)
	v.SetDefault("dispatch.dropoff_pool", 20)
	v.SetDefault("dispatch.pickup_pool", 7)
	v.SetDefault("dispatch.warm", true)

	v.SetDefault("history.retention_days", 90)
	v.SetDefault("history.prune_schedule", "@daily")

	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.credentials_file", "")

	v.SetDefault("ai.gemini_key", "")
	v.SetDefault("ai.model", "gemini-1.5-flash")

	v.SetDefault("log.level", "info")
}

// Load reads defaults, then the file named by SHIFT_CONFIG_FILE if set, then
// SHIFT_* environment variables (SHIFT_ORACLE_BASE_URL for oracle.base_url).
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(envFileVar); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Oracle.Provider {
	case "osrm":
		if c.Oracle.BaseURL == "" {
			errs = append(errs, errors.New("oracle.base_url is required for the osrm provider"))
		}
	case "google":
		if c.Oracle.GoogleAPIKey == "" {
			errs = append(errs, errors.New("oracle.google_api_key is required for the google provider"))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf("oracle.provider %q must be osrm, google or none", c.Oracle.Provider))
	}
	if c.Dataset.Path == "" {
		errs = append(errs, errors.New("dataset.path is required"))
	}
	if c.Grid.Size <= 0 || c.Grid.MinLat >= c.Grid.MaxLat || c.Grid.MinLng >= c.Grid.MaxLng {
		errs = append(errs, errors.New("grid bounds or size are invalid"))
	}
	if c.Dispatch.Episodes <= 0 || c.Dispatch.MaxSteps <= 0 {
		errs = append(errs, errors.New("dispatch.episodes and dispatch.max_steps must be positive"))
	}
	if c.History.RetentionDays <= 0 {
		errs = append(errs, errors.New("history.retention_days must be positive"))
	}
	return errors.Join(errs...)
}
