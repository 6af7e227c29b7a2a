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
	AppName                 string
	AppEnv                  string
	AppPort                 string
	DatabaseURL             string
	SQLitePath              string
	DatabaseMaxOpenConns    int
	DatabaseMaxIdleConns    int
	DatabaseConnMaxLifetime time.Duration
	DatabaseSlowQuery       time.Duration
	RedisURL                string
	NATSURL                 string
	EventsChannel           string
	JWTSecret               string
	JWTAlgorithm            string
	JWTTTL                  time.Duration
	CloudinaryCloudName     string
	CloudinaryAPIKey        string
	CloudinaryAPISecret     string
	CloudinaryUploadFolder  string
	UploadMaxSizeMB         int
	ChatCacheTTL            time.Duration
	AuthRateLimitMax        int
	AuthRateLimitWindow     time.Duration
	CORSAllowOrigins        string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// CloudinaryEnabled reports whether attachment uploads can be served.
func (c Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("MEDLINK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "MedLink API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.sqlite_path", "medlink.db")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.slow_query", "200ms")
	v.SetDefault("events.channel", "medlink")
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.ttl", "60m")
	v.SetDefault("cloudinary.folder", "medlink/chat")
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("chat.cache_ttl", "30m")
	v.SetDefault("rate_limit.auth_max", 10)
	v.SetDefault("rate_limit.auth_window", "1m")
	v.SetDefault("http.allow_origins", "*")

	jwtTTL, err := parseDuration(v, "jwt.ttl")
	if err != nil {
		return Config{}, err
	}
	chatTTL, err := parseDuration(v, "chat.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	authWindow, err := parseDuration(v, "rate_limit.auth_window")
	if err != nil {
		return Config{}, err
	}
	connLifetime, err := parseDuration(v, "database.conn_max_lifetime")
	if err != nil {
		return Config{}, err
	}
	slowQuery, err := parseDuration(v, "database.slow_query")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                 v.GetString("app.name"),
		AppEnv:                  v.GetString("app.env"),
		AppPort:                 v.GetString("app.port"),
		DatabaseURL:             v.GetString("database.url"),
		SQLitePath:              v.GetString("database.sqlite_path"),
		DatabaseMaxOpenConns:    v.GetInt("database.max_open_conns"),
		DatabaseMaxIdleConns:    v.GetInt("database.max_idle_conns"),
		DatabaseConnMaxLifetime: connLifetime,
		DatabaseSlowQuery:       slowQuery,
		RedisURL:                v.GetString("redis.url"),
		NATSURL:                 v.GetString("nats.url"),
		EventsChannel:           v.GetString("events.channel"),
		JWTSecret:               v.GetString("jwt.secret"),
		JWTAlgorithm:            strings.ToUpper(strings.TrimSpace(v.GetString("jwt.algorithm"))),
		JWTTTL:                  jwtTTL,
		CloudinaryCloudName:     v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:        v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:     v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder:  v.GetString("cloudinary.folder"),
		UploadMaxSizeMB:         v.GetInt("upload.max_size_mb"),
		ChatCacheTTL:            chatTTL,
		AuthRateLimitMax:        v.GetInt("rate_limit.auth_max"),
		AuthRateLimitWindow:     authWindow,
		CORSAllowOrigins:        v.GetString("http.allow_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return Config{}, fmt.Errorf("unsupported jwt algorithm %q", cfg.JWTAlgorithm)
	}

	if cfg.JWTTTL <= 0 {
		return Config{}, fmt.Errorf("jwt ttl must be positive")
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 10
	}

	if cfg.AuthRateLimitMax <= 0 {
		cfg.AuthRateLimitMax = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
