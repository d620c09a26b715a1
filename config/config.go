package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Env Environment

	// Server configuration
	ServerPort     string
	ServerHost     string
	CORSOrigins    []string
	TrustedProxies []string

	// Database configuration
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	SQLitePath    string
	MigrationsDir string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// JWT configuration
	JWTSecret string
	JWTTTL    time.Duration

	Storage   StorageConfig
	RabbitMQ  RabbitMQConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

// StorageConfig selects where recipe images are written and how they are served
type StorageConfig struct {
	Backend           string // "local" or "s3"
	MediaRoot         string
	MediaURL          string
	BaseURL           string
	S3Bucket          string
	AWSRegion         string
	S3Endpoint        string
	S3Presign         bool
	S3PublicRead      bool
	MaxUploadBytes    int64
	MaxImageDimension uint
}

// RabbitMQConfig configures domain event publishing. An empty URL disables it.
type RabbitMQConfig struct {
	URL   string
	Queue string
}

// LogConfig configures the application logger and its shipping hooks
type LogConfig struct {
	Level          string
	Format         string
	ElkEnable      bool
	ElkURL         string
	ElkIndex       string
	LogstashEnable bool
	LogstashURL    string
}

// RateLimitConfig holds per-route request budgets
type RateLimitConfig struct {
	TokenRequests  int
	UploadRequests int
	Window         time.Duration
}

// secrets that may be provided as docker secrets instead of env vars
var secretKeys = map[string]string{
	"db.password":                   "db_password",
	"db.user":                       "db_user",
	"jwt.secret":                    "jwt_secret",
	"redis.password":                "redis_password",
	"rabbitmq.url":                  "rabbitmq_url",
	"storage.aws_secret_access_key": "aws_secret_access_key",
}

// LoadConfig reads config.yml (if present), environment variables and docker secrets
func LoadConfig() (*Config, error) {
	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	env := GetEnvironment()
	switch env {
	case Development, Test, CI, Production:
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	for key, secret := range secretKeys {
		if v.GetString(key) == "" {
			if value := readSecret(secret); value != "" {
				v.Set(key, value)
			}
		}
	}

	cfg := fromViper(v)
	cfg.Env = env

	// the AWS SDK reads credentials from the environment
	if secret := v.GetString("storage.aws_secret_access_key"); secret != "" && os.Getenv("AWS_SECRET_ACCESS_KEY") == "" {
		os.Setenv("AWS_SECRET_ACCESS_KEY", secret)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	if dir := os.Getenv("CONFIG_PATH"); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("server.trusted_proxies", "")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.name", "recipes")
	v.SetDefault("db.ssl_mode", "disable")
	v.SetDefault("db.sqlite_path", "recipes.db")
	v.SetDefault("db.migrations_dir", "migrations")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.media_root", "vol/web/media")
	v.SetDefault("storage.media_url", "/static/media")
	v.SetDefault("storage.max_upload_bytes", 10<<20)
	v.SetDefault("storage.max_image_dimension", 2048)
	v.SetDefault("storage.aws_region", "us-east-1")
	v.SetDefault("rabbitmq.queue", "recipe-events")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.elk.index", "recipe-api")
	v.SetDefault("ratelimit.token_requests", 20)
	v.SetDefault("ratelimit.upload_requests", 30)
	v.SetDefault("ratelimit.window", "1m")
	return v
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		ServerPort:     v.GetString("server.port"),
		ServerHost:     v.GetString("server.host"),
		CORSOrigins:    splitList(v.GetString("server.cors_origins")),
		TrustedProxies: splitList(v.GetString("server.trusted_proxies")),

		DBDriver:      strings.ToLower(v.GetString("db.driver")),
		DBHost:        v.GetString("db.host"),
		DBPort:        v.GetString("db.port"),
		DBUser:        v.GetString("db.user"),
		DBPassword:    v.GetString("db.password"),
		DBName:        v.GetString("db.name"),
		DBSSLMode:     v.GetString("db.ssl_mode"),
		SQLitePath:    v.GetString("db.sqlite_path"),
		MigrationsDir: v.GetString("db.migrations_dir"),

		RedisHost:     v.GetString("redis.host"),
		RedisPort:     v.GetString("redis.port"),
		RedisPassword: v.GetString("redis.password"),
		RedisDB:       v.GetInt("redis.db"),
		RedisURL:      v.GetString("redis.url"),

		JWTSecret: v.GetString("jwt.secret"),
		JWTTTL:    v.GetDuration("jwt.ttl"),

		Storage: StorageConfig{
			Backend:           strings.ToLower(v.GetString("storage.backend")),
			MediaRoot:         v.GetString("storage.media_root"),
			MediaURL:          v.GetString("storage.media_url"),
			BaseURL:           strings.TrimRight(v.GetString("storage.base_url"), "/"),
			S3Bucket:          v.GetString("storage.s3_bucket"),
			AWSRegion:         v.GetString("storage.aws_region"),
			S3Endpoint:        v.GetString("storage.s3_endpoint"),
			S3Presign:         v.GetBool("storage.s3_presign"),
			S3PublicRead:      v.GetBool("storage.s3_public_read"),
			MaxUploadBytes:    v.GetInt64("storage.max_upload_bytes"),
			MaxImageDimension: uint(v.GetInt("storage.max_image_dimension")),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   v.GetString("rabbitmq.url"),
			Queue: v.GetString("rabbitmq.queue"),
		},
		Log: LogConfig{
			Level:          v.GetString("log.level"),
			Format:         v.GetString("log.format"),
			ElkEnable:      v.GetBool("log.elk.enable"),
			ElkURL:         v.GetString("log.elk.url"),
			ElkIndex:       v.GetString("log.elk.index"),
			LogstashEnable: v.GetBool("log.logstash.enable"),
			LogstashURL:    v.GetString("log.logstash.url"),
		},
		RateLimit: RateLimitConfig{
			TokenRequests:  v.GetInt("ratelimit.token_requests"),
			UploadRequests: v.GetInt("ratelimit.upload_requests"),
			Window:         v.GetDuration("ratelimit.window"),
		},
	}
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// PostgresDSN builds the lib/pq style connection string
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
