package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Queue      QueueConfig
	Narration  NarrationConfig
	Rasterizer RasterizerConfig
	Pipeline   PipelineConfig
	Auth       AuthConfig
	Tracing    TracingConfig
	Cleanup    CleanupConfig
	Webhook    WebhookConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	MetricsPort     int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
	URLExpiry       time.Duration
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// NarrationConfig holds speech synthesis configuration
type NarrationConfig struct {
	APIKey          string
	BaseURL         string
	AudioFormat     string
	MaxChars        int
	MaxAttempts     int
	BaseDelay       time.Duration
	InterSlideDelay time.Duration
	RequestTimeout  time.Duration
}

// RasterizerConfig holds slide rendering configuration
type RasterizerConfig struct {
	Width           int
	Height          int
	MaxAttempts     int
	BaseDelay       time.Duration
	InterSlideDelay time.Duration
	RenderTimeout   time.Duration
}

// PipelineConfig holds export pipeline configuration
type PipelineConfig struct {
	ScratchDir  string
	FFmpegPath  string
	FFprobePath string
	MaxAttempts int
	BaseDelay   time.Duration
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string
}

// TracingConfig holds distributed tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	JaegerEndpoint string
}

// CleanupConfig holds scratch file sweep configuration
type CleanupConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// WebhookConfig holds export event notification configuration
type WebhookConfig struct {
	URL         string
	Secret      string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.metricsPort", 9090)
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "echodeck")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Storage defaults
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "exports")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)
	viper.SetDefault("storage.urlExpiry", "1h")

	// Queue defaults
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")

	// Narration defaults
	viper.SetDefault("narration.apiKey", "")
	viper.SetDefault("narration.baseURL", "https://api.openai.com/v1")
	viper.SetDefault("narration.audioFormat", "mp3")
	viper.SetDefault("narration.maxChars", 4000)
	viper.SetDefault("narration.maxAttempts", 3)
	viper.SetDefault("narration.baseDelay", "1s")
	viper.SetDefault("narration.interSlideDelay", "500ms")
	viper.SetDefault("narration.requestTimeout", "60s")

	// Rasterizer defaults
	viper.SetDefault("rasterizer.width", 1920)
	viper.SetDefault("rasterizer.height", 1080)
	viper.SetDefault("rasterizer.maxAttempts", 3)
	viper.SetDefault("rasterizer.baseDelay", "1s")
	viper.SetDefault("rasterizer.interSlideDelay", "200ms")
	viper.SetDefault("rasterizer.renderTimeout", "30s")

	// Pipeline defaults
	viper.SetDefault("pipeline.scratchDir", "/tmp/echodeck")
	viper.SetDefault("pipeline.ffmpegPath", "ffmpeg")
	viper.SetDefault("pipeline.ffprobePath", "ffprobe")
	viper.SetDefault("pipeline.maxAttempts", 3)
	viper.SetDefault("pipeline.baseDelay", "2s")

	// Auth defaults
	viper.SetDefault("auth.jwtSecret", "")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "echodeck")
	viper.SetDefault("tracing.jaegerEndpoint", "http://localhost:14268/api/traces")

	// Cleanup defaults
	viper.SetDefault("cleanup.interval", "30m")
	viper.SetDefault("cleanup.maxAge", "6h")

	// Webhook defaults
	viper.SetDefault("webhook.url", "")
	viper.SetDefault("webhook.secret", "")
	viper.SetDefault("webhook.timeout", "30s")
	viper.SetDefault("webhook.maxAttempts", 3)
	viper.SetDefault("webhook.baseDelay", "5s")
}
