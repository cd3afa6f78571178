package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	Log       LogConfig       `mapstructure:"log"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Progress  ProgressConfig  `mapstructure:"progress"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool   `mapstructure:"-"`
	MigrateOnly  bool   `mapstructure:"-"`
	Path         string `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`

	// 重算接口按用户单独限流
	RefreshPerMinute int `mapstructure:"refresh_per_minute"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
	Path      string
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int `mapstructure:"pool_size"`
}

type LogConfig struct {
	// 为空时按 server.mode 取 debug 或 info
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ProgressConfig 进度引擎参数，可热加载
type ProgressConfig struct {
	DiagnosticQuizID     uint          `mapstructure:"diagnostic_quiz_id"`
	ScheduleGapThreshold float64       `mapstructure:"schedule_gap_threshold"`
	OnboardingWeight     float64       `mapstructure:"onboarding_weight"`
	RefreshInterval      time.Duration `mapstructure:"refresh_interval_minutes"`
	StaleAfter           time.Duration `mapstructure:"stale_after_minutes"`
	CacheTTL             time.Duration `mapstructure:"cache_ttl_minutes"`
	LockTTL              time.Duration `mapstructure:"lock_ttl_seconds"`
	StaleBatchSize       int           `mapstructure:"stale_batch_size"`
	SyncConcurrency      int           `mapstructure:"sync_concurrency"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "progress.db")

	v.SetDefault("redis.pool_size", 50)

	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("rate_limit.max_requests", 100000)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("rate_limit.refresh_per_minute", 30)

	v.SetDefault("progress.schedule_gap_threshold", 30)
	v.SetDefault("progress.onboarding_weight", 5)
	v.SetDefault("progress.refresh_interval_minutes", 10)
	v.SetDefault("progress.stale_after_minutes", 60)
	v.SetDefault("progress.cache_ttl_minutes", 30)
	v.SetDefault("progress.lock_ttl_seconds", 30)
	v.SetDefault("progress.stale_batch_size", 200)
	v.SetDefault("progress.sync_concurrency", 4)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("COURSE_PROGRESS")
	v.AutomaticEnv()

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")
	v.BindEnv("database.path", "DATABASE_PATH")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Progress
	v.BindEnv("progress.diagnostic_quiz_id", "DIAGNOSTIC_QUIZ_ID")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Path = path

	cfg.Progress.RefreshInterval = cfg.Progress.RefreshInterval * time.Minute
	cfg.Progress.StaleAfter = cfg.Progress.StaleAfter * time.Minute
	cfg.Progress.CacheTTL = cfg.Progress.CacheTTL * time.Minute
	cfg.Progress.LockTTL = cfg.Progress.LockTTL * time.Second

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Progress.ScheduleGapThreshold < 0 || cfg.Progress.ScheduleGapThreshold > 100 {
		return nil, fmt.Errorf("progress.schedule_gap_threshold must be within [0,100], got %v", cfg.Progress.ScheduleGapThreshold)
	}
	if cfg.Progress.OnboardingWeight < 0 || cfg.Progress.OnboardingWeight >= 100 {
		return nil, fmt.Errorf("progress.onboarding_weight must be within [0,100), got %v", cfg.Progress.OnboardingWeight)
	}

	return &cfg, nil
}
