package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	GDPR     GDPRConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GDPRConfig tunes the personal-data lifecycle engine.
type GDPRConfig struct {
	// RetentionOverrides maps entity type names (lowercase) to retention
	// months, replacing the built-in defaults for those types.
	RetentionOverrides map[string]int
	// PurgeSchedule is a standard cron expression; empty disables the
	// scheduled purge.
	PurgeSchedule string
	// PurgeBatchSize caps how many rows a single per-type purge
	// transaction may erase.
	PurgeBatchSize int
	// PurgeLockTTL bounds how long a purge run may hold the run lock.
	PurgeLockTTL time.Duration
	// ComplianceCacheTTL controls how long generated compliance reports
	// are served from cache.
	ComplianceCacheTTL time.Duration
	// BackupMaxAge is the recency window the backup verifier accepts for
	// the newest backup artifact.
	BackupMaxAge time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.GDPR = GDPRConfig{
		RetentionOverrides: parseRetentionOverrides(v.GetString("GDPR_RETENTION_OVERRIDES")),
		PurgeSchedule:      v.GetString("GDPR_PURGE_SCHEDULE"),
		PurgeBatchSize:     v.GetInt("GDPR_PURGE_BATCH_SIZE"),
		PurgeLockTTL:       parseDuration(v.GetString("GDPR_PURGE_LOCK_TTL"), 30*time.Minute),
		ComplianceCacheTTL: parseDuration(v.GetString("GDPR_COMPLIANCE_CACHE_TTL"), 10*time.Minute),
		BackupMaxAge:       parseDuration(v.GetString("GDPR_BACKUP_MAX_AGE"), 26*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "kita")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GDPR_RETENTION_OVERRIDES", "")
	v.SetDefault("GDPR_PURGE_SCHEDULE", "")
	v.SetDefault("GDPR_PURGE_BATCH_SIZE", 500)
	v.SetDefault("GDPR_PURGE_LOCK_TTL", "30m")
	v.SetDefault("GDPR_COMPLIANCE_CACHE_TTL", "10m")
	v.SetDefault("GDPR_BACKUP_MAX_AGE", "26h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

// parseRetentionOverrides reads "user=36,message=12" style pairs. Pairs with
// a non-numeric or zero month count are skipped.
func parseRetentionOverrides(raw string) map[string]int {
	if raw == "" {
		return nil
	}
	overrides := make(map[string]int)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		months := 0
		valid := parts[1] != ""
		for _, r := range parts[1] {
			if r < '0' || r > '9' {
				valid = false
				break
			}
			months = months*10 + int(r-'0')
		}
		if valid && months > 0 {
			overrides[strings.ToLower(parts[0])] = months
		}
	}
	if len(overrides) == 0 {
		return nil
	}
	return overrides
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
