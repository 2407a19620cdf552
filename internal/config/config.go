package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	LogLevel               string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	NATSSubjectPrefix      string
	APIKey                 string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	MaxUploadMB            int
	StorageFetchTimeout    time.Duration
	AssignmentCacheTTL     time.Duration
	AIAPIKey               string
	AIBaseURL              string
	AIModel                string
	AIMaxTokens            int
	AITemperature          float32
	AITimeout              time.Duration
	GradingLockTTL         time.Duration
	GradingRateLimit       int
	GradingRateWindow      time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CLEARMARK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "ClearMark API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3000")
	v.SetDefault("log.level", "info")
	v.SetDefault("nats.subject_prefix", "clearmark")
	v.SetDefault("cloudinary.folder", "clearmark")
	v.SetDefault("upload.max_mb", 20)
	v.SetDefault("storage.fetch_timeout", "30s")
	v.SetDefault("assignment.cache_ttl", "2m")
	v.SetDefault("ai.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.max_tokens", 8192)
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("ai.timeout", "90s")
	v.SetDefault("grading.lock_ttl", "3m")
	v.SetDefault("grading.rate_limit", 10)
	v.SetDefault("grading.rate_window", "1m")

	durations := map[string]time.Duration{}
	for _, key := range []string{"storage.fetch_timeout", "assignment.cache_ttl", "ai.timeout", "grading.lock_ttl", "grading.rate_window"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("invalid %s: must be positive", key)
		}
		durations[key] = parsed
	}

	if budget := durations["ai.timeout"] + durations["storage.fetch_timeout"]; durations["grading.lock_ttl"] <= budget {
		return Config{}, fmt.Errorf("invalid grading.lock_ttl: must exceed ai.timeout plus storage.fetch_timeout (%s)", budget)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		LogLevel:               strings.ToLower(v.GetString("log.level")),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		NATSSubjectPrefix:      v.GetString("nats.subject_prefix"),
		APIKey:                 v.GetString("api_key"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		MaxUploadMB:            v.GetInt("upload.max_mb"),
		StorageFetchTimeout:    durations["storage.fetch_timeout"],
		AssignmentCacheTTL:     durations["assignment.cache_ttl"],
		AIAPIKey:               v.GetString("ai.api_key"),
		AIBaseURL:              v.GetString("ai.base_url"),
		AIModel:                v.GetString("ai.model"),
		AIMaxTokens:            v.GetInt("ai.max_tokens"),
		AITemperature:          float32(v.GetFloat64("ai.temperature")),
		AITimeout:              durations["ai.timeout"],
		GradingLockTTL:         durations["grading.lock_ttl"],
		GradingRateLimit:       v.GetInt("grading.rate_limit"),
		GradingRateWindow:      durations["grading.rate_window"],
	}

	if cfg.APIKey == "" && cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("an api key or jwt secret must be provided")
	}

	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 20
	}

	if cfg.GradingRateLimit <= 0 {
		cfg.GradingRateLimit = 10
	}

	return cfg, nil
}
