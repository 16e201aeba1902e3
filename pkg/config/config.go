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

	Upstream UpstreamConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
	Poller   PollerConfig
	Reports  ReportsConfig
}

// UpstreamConfig locates the legacy EduLearn REST backend. Its route shape
// varies by deployment, so the client probes candidate endpoints per call.
type UpstreamConfig struct {
	BaseURL       string
	Timeout       time.Duration
	MaxCandidates int
	// ServiceToken authenticates background polling. Empty disables the poller
	// even when ENABLE_REQUEST_POLLER is set.
	ServiceToken string
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

// CacheConfig tunes Redis-backed caching of normalized snapshots.
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// PollerConfig governs the background refresh of the request-list snapshot.
type PollerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// ReportsConfig tunes report-card rendering.
type ReportsConfig struct {
	SchoolName    string
	SummaryTTL    time.Duration
	DownloadLimit int64
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

	cfg.Upstream = UpstreamConfig{
		BaseURL:       v.GetString("UPSTREAM_BASE_URL"),
		Timeout:       parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 15*time.Second),
		MaxCandidates: v.GetInt("UPSTREAM_MAX_CANDIDATES"),
		ServiceToken:  v.GetString("UPSTREAM_SERVICE_TOKEN"),
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

	cfg.Cache = CacheConfig{
		Enabled:    v.GetBool("ENABLE_CACHE"),
		DefaultTTL: parseDuration(v.GetString("CACHE_DEFAULT_TTL"), 10*time.Minute),
	}

	cfg.Poller = PollerConfig{
		Enabled:  v.GetBool("ENABLE_REQUEST_POLLER"),
		Interval: parseDuration(v.GetString("REQUEST_POLL_INTERVAL"), 12*time.Second),
	}

	cfg.Reports = ReportsConfig{
		SchoolName:    v.GetString("REPORTS_SCHOOL_NAME"),
		SummaryTTL:    parseDuration(v.GetString("REPORTS_SUMMARY_TTL"), 5*time.Minute),
		DownloadLimit: v.GetInt64("REPORTS_DOWNLOAD_LIMIT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("UPSTREAM_BASE_URL", "https://backend-for-edulearn.onrender.com/api/v1")
	v.SetDefault("UPSTREAM_TIMEOUT", "15s")
	v.SetDefault("UPSTREAM_MAX_CANDIDATES", 8)
	v.SetDefault("UPSTREAM_SERVICE_TOKEN", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_DEFAULT_TTL", "10m")

	v.SetDefault("ENABLE_REQUEST_POLLER", false)
	v.SetDefault("REQUEST_POLL_INTERVAL", "12s")

	v.SetDefault("REPORTS_SCHOOL_NAME", "EduLearn")
	v.SetDefault("REPORTS_SUMMARY_TTL", "5m")
	v.SetDefault("REPORTS_DOWNLOAD_LIMIT", 25*1024*1024)
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
