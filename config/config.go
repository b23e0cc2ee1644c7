package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv string `mapstructure:"APP_ENV"`
	Port   string `mapstructure:"PORT"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`

	GameServiceToken string `mapstructure:"GAME_SERVICE_TOKEN"`
	AuthServiceURL   string `mapstructure:"AUTH_SERVICE_URL"`
	AllowedOrigins   string `mapstructure:"ALLOWED_ORIGINS"`

	SpinCost               int64 `mapstructure:"SPIN_COST"`
	SpinMaxAttempts        int   `mapstructure:"SPIN_MAX_ATTEMPTS"`
	SpinRateLimitPerMinute int   `mapstructure:"SPIN_RATE_LIMIT_PER_MINUTE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	UploadDir           string `mapstructure:"UPLOAD_DIR"`
	CloudflareAccountID string `mapstructure:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID       string `mapstructure:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret   string `mapstructure:"R2_ACCESS_KEY_SECRET"`
	R2BucketName        string `mapstructure:"R2_BUCKET_NAME"`
	CDNBaseURL          string `mapstructure:"CDN_BASE_URL"`

	QuestSweepInterval time.Duration `mapstructure:"QUEST_SWEEP_INTERVAL"`
	LogFile            string        `mapstructure:"LOG_FILE"`
}

var defaults = map[string]interface{}{
	"APP_ENV":                    "development",
	"PORT":                       "5200",
	"DATABASE_DRIVER":            "postgres",
	"ALLOWED_ORIGINS":            "http://localhost:3000",
	"SPIN_COST":                  50,
	"SPIN_MAX_ATTEMPTS":          5,
	"SPIN_RATE_LIMIT_PER_MINUTE": 30,
	"UPLOAD_DIR":                 "uploads",
	"QUEST_SWEEP_INTERVAL":       time.Minute,
}

// keys without a default still need binding so Unmarshal sees them
var optional = []string{
	"DATABASE_URL", "GAME_SERVICE_TOKEN", "AUTH_SERVICE_URL", "REDIS_URL",
	"CLOUDFLARE_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_ACCESS_KEY_SECRET",
	"R2_BUCKET_NAME", "CDN_BASE_URL", "LOG_FILE",
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()
	return FromViper(viper.New())
}

// FromViper applies defaults and env binding to v, then decodes and validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	for _, k := range optional {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL environment variable not set"))
	}
	if c.GameServiceToken == "" {
		errs = append(errs, errors.New("GAME_SERVICE_TOKEN environment variable not set"))
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver))
	}
	if c.SpinCost <= 0 {
		errs = append(errs, fmt.Errorf("SPIN_COST must be positive, got %d", c.SpinCost))
	}
	if c.SpinMaxAttempts < 1 || c.SpinMaxAttempts > 10 {
		errs = append(errs, fmt.Errorf("SPIN_MAX_ATTEMPTS must be between 1 and 10, got %d", c.SpinMaxAttempts))
	}
	if c.SpinRateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("SPIN_RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.SpinRateLimitPerMinute))
	}
	if c.QuestSweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("QUEST_SWEEP_INTERVAL must be positive, got %s", c.QuestSweepInterval))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Origins splits ALLOWED_ORIGINS and trims each entry.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) UseR2() bool {
	return c.R2BucketName != ""
}
