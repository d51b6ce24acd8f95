package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Mode     string `mapstructure:"mode"`      // gin mode: debug/release/test
	ReadOnly bool   `mapstructure:"read_only"` // reject writes, keep reads
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// OperatorConfig is a statically configured login that does not live in the users table.
type OperatorConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type AuthConfig struct {
	JWTSecret       string           `mapstructure:"jwt_secret"`
	TokenTTLMinutes int              `mapstructure:"token_ttl_minutes"`
	Operators       []OperatorConfig `mapstructure:"operators"`
	AdminUsers      []string         `mapstructure:"admin_users"`
	RateQPS         float64          `mapstructure:"rate_qps"`
	RateBurst       int              `mapstructure:"rate_burst"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
	AuditListKey          string `mapstructure:"audit_list_key"`
	AuditListMax          int    `mapstructure:"audit_list_max"`
}

// AuditConfig controls the request log sink.
type AuditConfig struct {
	File          string   `mapstructure:"file"`
	MaxSizeMB     int      `mapstructure:"max_size_mb"` // rotate once the active segment reaches this size
	MaxBackups    int      `mapstructure:"max_backups"` // rotated segments kept on disk
	MaxAgeDays    int      `mapstructure:"max_age_days"`
	Compress      bool     `mapstructure:"compress"`
	Console       bool     `mapstructure:"console"`
	Mask          string   `mapstructure:"mask"`
	SensitiveKeys []string `mapstructure:"sensitive_keys"`
	BufferSize    int      `mapstructure:"buffer_size"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// Environment variables support
	// e.g. SUPPORTGATE_AUTH_JWT_SECRET
	v.SetEnvPrefix("supportgate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Audit.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate keeps the rotating sink bounded; lumberjack reads 0 as unlimited.
func (a AuditConfig) validate() error {
	if a.MaxSizeMB <= 0 {
		return fmt.Errorf("audit.max_size_mb must be positive, got %d", a.MaxSizeMB)
	}
	if a.MaxBackups <= 0 {
		return fmt.Errorf("audit.max_backups must be positive, got %d", a.MaxBackups)
	}
	return nil
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_only", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("auth.jwt_secret", "change-me")
	v.SetDefault("auth.token_ttl_minutes", 30)
	v.SetDefault("auth.operators", []map[string]string{{"username": "admin", "password": "secret"}})
	v.SetDefault("auth.admin_users", []string{"admin"})
	v.SetDefault("auth.rate_qps", 20.0)
	v.SetDefault("auth.rate_burst", 40)

	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)

	v.SetDefault("redis.idempotency_ttl_seconds", 86400)
	v.SetDefault("redis.audit_list_key", "request_logs")
	v.SetDefault("redis.audit_list_max", 10000)

	v.SetDefault("audit.file", "logs/app.json.log")
	v.SetDefault("audit.max_size_mb", 10)
	v.SetDefault("audit.max_backups", 5)
	v.SetDefault("audit.max_age_days", 0)
	v.SetDefault("audit.compress", false)
	v.SetDefault("audit.console", true)
	v.SetDefault("audit.mask", "***MASKED***")
	v.SetDefault("audit.sensitive_keys", []string{
		"password", "passwd", "secret", "token", "api_key", "authorization", "refresh_token",
	})
	v.SetDefault("audit.buffer_size", 1000)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
