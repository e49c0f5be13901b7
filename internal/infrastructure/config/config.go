package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SPAMGUARD_SERVER_PORT
const EnvPrefix = "SPAMGUARD"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Classify  ClassifyConfig  `mapstructure:"classify"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig holds PostgreSQL configuration for verdict history
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ArtifactsConfig describes where the fitted model and vectorizer live
type ArtifactsConfig struct {
	Dir            string `mapstructure:"dir"`
	ModelFile      string `mapstructure:"model_file"`
	VectorizerFile string `mapstructure:"vectorizer_file"`

	// Source is one of "none", "http", "gdrive" or "s3"
	Source string `mapstructure:"source"`

	ModelURL      string `mapstructure:"model_url"`
	VectorizerURL string `mapstructure:"vectorizer_url"`

	ModelDriveID      string `mapstructure:"model_drive_id"`
	VectorizerDriveID string `mapstructure:"vectorizer_drive_id"`

	S3 S3Config `mapstructure:"s3"`

	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	FetchRetries uint64        `mapstructure:"fetch_retries"`
	FetchBackoff time.Duration `mapstructure:"fetch_backoff"`
}

// S3Config holds S3 (or MinIO) artifact bucket configuration
type S3Config struct {
	Endpoint      string `mapstructure:"endpoint"`
	Region        string `mapstructure:"region"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Bucket        string `mapstructure:"bucket"`
	ModelKey      string `mapstructure:"model_key"`
	VectorizerKey string `mapstructure:"vectorizer_key"`
}

// CacheConfig holds verdict cache configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// ClassifyConfig holds classification request limits
type ClassifyConfig struct {
	MaxBatchSize int `mapstructure:"max_batch_size"`
}

// ModelPath returns the local model artifact path
func (c *ArtifactsConfig) ModelPath() string {
	return joinPath(c.Dir, c.ModelFile)
}

// VectorizerPath returns the local vectorizer artifact path
func (c *ArtifactsConfig) VectorizerPath() string {
	return joinPath(c.Dir, c.VectorizerFile)
}

func joinPath(dir, file string) string {
	if dir == "" || strings.HasPrefix(file, "/") {
		return file
	}
	return strings.TrimRight(dir, "/") + "/" + file
}

// Load reads configuration from defaults, an optional config file, .env and
// SPAMGUARD_* environment variables, in increasing precedence
func Load() (*Config, error) {
	// Best-effort: .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.Artifacts.Source {
	case "none", "http", "gdrive", "s3":
	default:
		return fmt.Errorf("invalid artifacts.source %q", c.Artifacts.Source)
	}
	if c.Artifacts.ModelFile == "" || c.Artifacts.VectorizerFile == "" {
		return errors.New("artifacts.model_file and artifacts.vectorizer_file are required")
	}
	if c.Classify.MaxBatchSize < 1 {
		return fmt.Errorf("classify.max_batch_size must be positive, got %d", c.Classify.MaxBatchSize)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "spamguard")
	v.SetDefault("database.password", "spamguard")
	v.SetDefault("database.dbname", "spamguard")
	v.SetDefault("database.sslmode", "disable")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Artifact defaults
	v.SetDefault("artifacts.dir", "artifacts")
	v.SetDefault("artifacts.model_file", "model.json")
	v.SetDefault("artifacts.vectorizer_file", "vectorizer.json")
	v.SetDefault("artifacts.source", "none")
	v.SetDefault("artifacts.model_url", "")
	v.SetDefault("artifacts.vectorizer_url", "")
	v.SetDefault("artifacts.model_drive_id", "")
	v.SetDefault("artifacts.vectorizer_drive_id", "")
	v.SetDefault("artifacts.s3.endpoint", "")
	v.SetDefault("artifacts.s3.region", "us-east-1")
	v.SetDefault("artifacts.s3.access_key", "")
	v.SetDefault("artifacts.s3.secret_key", "")
	v.SetDefault("artifacts.s3.bucket", "")
	v.SetDefault("artifacts.s3.model_key", "model.json")
	v.SetDefault("artifacts.s3.vectorizer_key", "vectorizer.json")
	v.SetDefault("artifacts.fetch_timeout", 2*time.Minute)
	v.SetDefault("artifacts.fetch_retries", 3)
	v.SetDefault("artifacts.fetch_backoff", 500*time.Millisecond)

	// Cache and request defaults
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("classify.max_batch_size", 100)
}
