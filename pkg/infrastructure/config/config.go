package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config groups every runtime setting. Values come from an optional
// config file, overridden by MRP_* environment variables.
type Config struct {
	App      AppConfig
	Log      LogConfig
	HTTP     HTTPConfig
	DB       DBConfig
	Planning PlanningConfig
	Actions  ActionsConfig
	Matching MatchingConfig
	Rounding RoundingConfig
}

type AppConfig struct {
	Env string // development, production
}

type LogConfig struct {
	Level string
}

// HTTPConfig configures the API server
type HTTPConfig struct {
	Host string
	Port int
}

// Addr returns host:port
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DBConfig points at the SQLite file holding plans and match lines. Empty means in-memory stores.
type DBConfig struct {
	Path string
}

// PlanningConfig controls the planning horizon and worker fan-out
type PlanningConfig struct {
	BucketDays     int
	HorizonBuckets int
	Parallelism    int
	// CommitRetries bounds how often a run re-merges onto a plan that moved on while it ran
	CommitRetries int
}

// ActionsConfig sets the thresholds below which differences raise no message
type ActionsConfig struct {
	RescheduleThresholdDays  int
	QuantityTolerancePercent decimal.Decimal
}

// MatchingConfig configures the three-way match reconciler
type MatchingConfig struct {
	DefaultTolerancePercent decimal.Decimal
	MaxRetries              int
	AutoReleaseMatched      bool
}

type RoundingConfig struct {
	MoneyPlaces int32
}

// Load reads configuration from path (optional) and the environment
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("mrp")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		_ = v.ReadInConfig() // optional
	}

	v.SetEnvPrefix("MRP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	actionTol, err := getDecimal(v, "actions.quantity_tolerance_percent")
	if err != nil {
		return nil, err
	}
	matchTol, err := getDecimal(v, "matching.default_tolerance_percent")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{Env: v.GetString("app.env")},
		Log: LogConfig{Level: v.GetString("log.level")},
		HTTP: HTTPConfig{
			Host: v.GetString("http.host"),
			Port: v.GetInt("http.port"),
		},
		DB: DBConfig{Path: v.GetString("db.path")},
		Planning: PlanningConfig{
			BucketDays:     v.GetInt("planning.bucket_days"),
			HorizonBuckets: v.GetInt("planning.horizon_buckets"),
			Parallelism:    v.GetInt("planning.parallelism"),
			CommitRetries:  v.GetInt("planning.commit_retries"),
		},
		Actions: ActionsConfig{
			RescheduleThresholdDays:  v.GetInt("actions.reschedule_threshold_days"),
			QuantityTolerancePercent: actionTol,
		},
		Matching: MatchingConfig{
			DefaultTolerancePercent: matchTol,
			MaxRetries:              v.GetInt("matching.max_retries"),
			AutoReleaseMatched:      v.GetBool("matching.auto_release_matched"),
		},
		Rounding: RoundingConfig{MoneyPlaces: v.GetInt32("rounding.money_places")},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the planner cannot run with
func (c *Config) Validate() error {
	if c.Planning.BucketDays <= 0 {
		return fmt.Errorf("planning.bucket_days must be positive, got %d", c.Planning.BucketDays)
	}
	if c.Planning.HorizonBuckets <= 0 {
		return fmt.Errorf("planning.horizon_buckets must be positive, got %d", c.Planning.HorizonBuckets)
	}
	if c.Planning.Parallelism <= 0 {
		return fmt.Errorf("planning.parallelism must be positive, got %d", c.Planning.Parallelism)
	}
	if c.Planning.CommitRetries <= 0 {
		return fmt.Errorf("planning.commit_retries must be positive, got %d", c.Planning.CommitRetries)
	}
	if c.Actions.RescheduleThresholdDays < 0 {
		return fmt.Errorf("actions.reschedule_threshold_days cannot be negative")
	}
	if c.Matching.DefaultTolerancePercent.IsNegative() {
		return fmt.Errorf("matching.default_tolerance_percent cannot be negative")
	}
	if c.Matching.MaxRetries < 1 {
		return fmt.Errorf("matching.max_retries must be at least 1, got %d", c.Matching.MaxRetries)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("db.path", "")
	v.SetDefault("planning.bucket_days", 7)
	v.SetDefault("planning.horizon_buckets", 26)
	v.SetDefault("planning.parallelism", 4)
	v.SetDefault("planning.commit_retries", 3)
	v.SetDefault("actions.reschedule_threshold_days", 3)
	v.SetDefault("actions.quantity_tolerance_percent", "5")
	v.SetDefault("matching.default_tolerance_percent", "5")
	v.SetDefault("matching.max_retries", 3)
	v.SetDefault("matching.auto_release_matched", false)
	v.SetDefault("rounding.money_places", 2)
}

func getDecimal(v *viper.Viper, key string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.GetString(key))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q: %w", key, v.GetString(key), err)
	}
	return d, nil
}
