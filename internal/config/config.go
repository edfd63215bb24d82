package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Log        LogConfig        `mapstructure:"log"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
}

type AppConfig struct {
	Environment string `mapstructure:"environment"`
	DemoMode    bool   `mapstructure:"demo_mode"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CacheConfig struct {
	DashboardTTL time.Duration `mapstructure:"dashboard_ttl"`
}

type JobsConfig struct {
	DashboardRefreshInterval time.Duration `mapstructure:"dashboard_refresh_interval"`
	ExpiryAlertInterval      time.Duration `mapstructure:"expiry_alert_interval"`
}

type ComplianceConfig struct {
	DashboardTopN      int `mapstructure:"dashboard_top_n"`
	ExecTopN           int `mapstructure:"exec_top_n"`
	DashboardPrecincts int `mapstructure:"dashboard_precincts"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", EnvDevelopment)
	v.SetDefault("app.demo_mode", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.session_ttl", "12h")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.access_key", "minioadmin")
	v.SetDefault("storage.secret_key", "minioadmin")
	v.SetDefault("storage.bucket", "certifications")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("cache.dashboard_ttl", "5m")
	v.SetDefault("jobs.dashboard_refresh_interval", "5m")
	v.SetDefault("jobs.expiry_alert_interval", "24h")
	v.SetDefault("compliance.dashboard_top_n", 8)
	v.SetDefault("compliance.exec_top_n", 10)
	v.SetDefault("compliance.dashboard_precincts", 5)
}

// legacyEnv keeps the short variable names deployments already use.
var legacyEnv = map[string]string{
	"auth.jwt_secret":    "JWT_SECRET",
	"storage.endpoint":   "MINIO_ENDPOINT",
	"storage.access_key": "MINIO_ACCESS_KEY",
	"storage.secret_key": "MINIO_SECRET_KEY",
	"storage.use_ssl":    "MINIO_USE_SSL",
	"storage.bucket":     "MINIO_BUCKET",
	"server.port":        "PORT",
}

// Load reads defaults, then an optional config.yaml, then .env, then the environment.
// Later sources win.
func Load(searchPaths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(searchPaths) == 0 {
		searchPaths = []string{".", "./configs"}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.App.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("app.environment must be one of development, production, test (got %q)", c.App.Environment))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.Auth.JWTSecret == "" && c.App.Environment == EnvProduction {
		errs = append(errs, errors.New("auth.jwt_secret is required in production"))
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 && c.App.Environment == EnvProduction {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 32 characters in production"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("auth.session_ttl must be positive"))
	}
	if c.Jobs.DashboardRefreshInterval <= 0 || c.Jobs.ExpiryAlertInterval <= 0 {
		errs = append(errs, errors.New("job intervals must be positive"))
	}
	if c.Compliance.DashboardTopN <= 0 || c.Compliance.ExecTopN <= 0 || c.Compliance.DashboardPrecincts <= 0 {
		errs = append(errs, errors.New("compliance list sizes must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// SafeInfo is a secret-free summary for diagnostics.
func (c *Config) SafeInfo() map[string]interface{} {
	return map[string]interface{}{
		"environment":         c.App.Environment,
		"demo_mode":           c.App.DemoMode,
		"database_url_set":    c.Database.URL != "",
		"redis_addr":          c.Redis.Addr,
		"jwt_secret_set":      c.Auth.JWTSecret != "",
		"session_ttl":         c.Auth.SessionTTL.String(),
		"storage_endpoint":    c.Storage.Endpoint,
		"storage_bucket":      c.Storage.Bucket,
		"log_level":           c.Log.Level,
		"dashboard_cache_ttl": c.Cache.DashboardTTL.String(),
	}
}
