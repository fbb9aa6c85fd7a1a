package config

import (
	"EcoWatch/pkg/cache"
	"EcoWatch/pkg/logger"
	"EcoWatch/pkg/util"
	"log"
	"os"
	"time"
)

// config/config.go
type Config struct {
	Addr          string `env:"ADDR"`
	Mode          string `env:"MODE"`
	DBDriver      string `env:"DB_DRIVER"`
	DSN           string `env:"DSN"`
	DBLogLevel    string `env:"DB_LOG_LEVEL"`
	APIPrefix     string `env:"API_PREFIX"`
	MetricsPath   string `env:"METRICS_PATH"`
	SessionSecret string `env:"SESSION_SECRET"`
	SessionName   string `env:"SESSION_NAME"`
	APISecretKey  string `env:"API_SECRET_KEY"`
	Log           logger.LogConfig
	Cache         cache.Config

	// 环境数据
	DefaultCity     string        `env:"DEFAULT_CITY"`
	FreshnessTTL    time.Duration `env:"FRESHNESS_TTL"`
	ProviderBaseURL string        `env:"PROVIDER_BASE_URL"`
	ProviderAPIKey  string        `env:"PROVIDER_API_KEY"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT"`
	WaterSourceURL  string        `env:"WATER_SOURCE_URL"`
	SyntheticSeed   int64         `env:"SYNTHETIC_SEED"`
	WaterWatch      float64       `env:"WATER_WATCH_LEVEL"`
	WaterWarning    float64       `env:"WATER_WARNING_LEVEL"`
	WaterCritical   float64       `env:"WATER_CRITICAL_LEVEL"`
	RefreshSchedule string        `env:"REFRESH_SCHEDULE"`

	RateLimit      string `env:"RATE_LIMIT"`
	RateLimitStore string `env:"RATE_LIMIT_STORE"`

	Storage         StorageConfig
	GeoIPPath       string `env:"GEOIP_DB"`
	LanguageDefault string `env:"LANGUAGE_DEFAULT"`

	BackupEnabled  bool   `env:"BACKUP_ENABLED"`
	BackupPath     string `env:"BACKUP_PATH"`
	BackupSchedule string `env:"BACKUP_SCHEDULE"`
}

// StorageConfig 头像等文件的存储配置，Type 为 local|minio|cos
type StorageConfig struct {
	Type        string `env:"STORAGE_TYPE"`
	LocalDir    string `env:"STORAGE_LOCAL_DIR"`
	PublicBase  string `env:"STORAGE_PUBLIC_BASE"`
	MinioAddr   string `env:"MINIO_ENDPOINT"`
	MinioKey    string `env:"MINIO_ACCESS_KEY"`
	MinioSecret string `env:"MINIO_SECRET_KEY"`
	MinioBucket string `env:"MINIO_BUCKET"`
	MinioSSL    bool   `env:"MINIO_USE_SSL"`
	COSBucket   string `env:"COS_BUCKET_URL"`
	COSSecretID string `env:"COS_SECRET_ID"`
	COSSecret   string `env:"COS_SECRET_KEY"`
}

var GlobalConfig *Config

func Load() (*Config, error) {
	// 1. 根据环境加载 .env 文件
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	// 2. 加载全局配置
	cfg := &Config{
		Addr:          util.GetEnvOr("ADDR", ":8000"),
		Mode:          util.GetEnvOr("MODE", "debug"),
		DBDriver:      util.GetEnvOr("DB_DRIVER", "sqlite"),
		DSN:           util.GetEnv("DSN"),
		DBLogLevel:    util.GetEnvOr("DB_LOG_LEVEL", "warn"),
		APIPrefix:     util.GetEnvOr("API_PREFIX", "/api"),
		MetricsPath:   util.GetEnvOr("METRICS_PATH", "/metrics"),
		SessionSecret: util.GetEnvOr("SESSION_SECRET", "ecowatch-dev-secret"),
		SessionName:   util.GetEnvOr("SESSION_NAME", "ecowatch"),
		APISecretKey:  util.GetEnv("API_SECRET_KEY"),
		Log: logger.LogConfig{
			Level:      util.GetEnvOr("LOG_LEVEL", "info"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		Cache: cache.Config{
			Type: util.GetEnvOr("CACHE_TYPE", "local"),
			Redis: cache.RedisConfig{
				Addr:         util.GetEnvOr("REDIS_ADDR", "localhost:6379"),
				Password:     util.GetEnv("REDIS_PASSWORD"),
				DB:           int(util.GetIntEnv("REDIS_DB")),
				PoolSize:     int(util.GetIntEnvOr("REDIS_POOL_SIZE", 10)),
				DialTimeout:  util.GetDurationEnvOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
				ReadTimeout:  util.GetDurationEnvOr("REDIS_READ_TIMEOUT", 3*time.Second),
				WriteTimeout: util.GetDurationEnvOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
			},
			Local: cache.LocalConfig{
				MaxSize:           int(util.GetIntEnvOr("LOCAL_CACHE_MAX_SIZE", 1000)),
				DefaultExpiration: util.GetDurationEnvOr("LOCAL_CACHE_DEFAULT_EXPIRATION", 5*time.Minute),
				CleanupInterval:   util.GetDurationEnvOr("LOCAL_CACHE_CLEANUP_INTERVAL", 10*time.Minute),
			},
		},
		DefaultCity:     util.GetEnvOr("DEFAULT_CITY", "Chennai"),
		FreshnessTTL:    util.GetDurationEnvOr("FRESHNESS_TTL", 30*time.Minute),
		ProviderBaseURL: util.GetEnv("PROVIDER_BASE_URL"),
		ProviderAPIKey:  util.GetEnv("PROVIDER_API_KEY"),
		ProviderTimeout: util.GetDurationEnvOr("PROVIDER_TIMEOUT", 5*time.Second),
		WaterSourceURL:  util.GetEnv("WATER_SOURCE_URL"),
		SyntheticSeed:   util.GetIntEnvOr("SYNTHETIC_SEED", 42),
		WaterWatch:      util.GetFloatEnvOr("WATER_WATCH_LEVEL", 3.0),
		WaterWarning:    util.GetFloatEnvOr("WATER_WARNING_LEVEL", 4.5),
		WaterCritical:   util.GetFloatEnvOr("WATER_CRITICAL_LEVEL", 6.0),
		RefreshSchedule: util.GetEnvOr("REFRESH_SCHEDULE", "@every 30m"),
		RateLimit:       util.GetEnvOr("RATE_LIMIT", "100-M"),
		RateLimitStore:  util.GetEnvOr("RATE_LIMIT_STORE", "memory"),
		Storage: StorageConfig{
			Type:        util.GetEnvOr("STORAGE_TYPE", "local"),
			LocalDir:    util.GetEnvOr("STORAGE_LOCAL_DIR", "uploads"),
			PublicBase:  util.GetEnvOr("STORAGE_PUBLIC_BASE", "/uploads"),
			MinioAddr:   util.GetEnv("MINIO_ENDPOINT"),
			MinioKey:    util.GetEnv("MINIO_ACCESS_KEY"),
			MinioSecret: util.GetEnv("MINIO_SECRET_KEY"),
			MinioBucket: util.GetEnv("MINIO_BUCKET"),
			MinioSSL:    util.GetBoolEnv("MINIO_USE_SSL"),
			COSBucket:   util.GetEnv("COS_BUCKET_URL"),
			COSSecretID: util.GetEnv("COS_SECRET_ID"),
			COSSecret:   util.GetEnv("COS_SECRET_KEY"),
		},
		GeoIPPath:       util.GetEnv("GEOIP_DB"),
		LanguageDefault: util.GetEnvOr("LANGUAGE_DEFAULT", "en"),
		BackupEnabled:   util.GetBoolEnv("BACKUP_ENABLED"),
		BackupPath:      util.GetEnvOr("BACKUP_PATH", "backups"),
		BackupSchedule:  util.GetEnvOr("BACKUP_SCHEDULE", "0 3 * * *"),
	}
	GlobalConfig = cfg
	return cfg, nil
}
