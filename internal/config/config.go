package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Storage      StorageConfig
	Logging      LoggingConfig
	Push         PushConfig
	NATS         NATSConfig
	Notify       NotifyConfig
	GeminiAPIKey string
}

type ServerConfig struct {
	Host         string
	Port         int
	Env          string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	AccessSecret    string
	AccessExpiryMin int
}

type StorageConfig struct {
	Type string
	// SeedFile is a JSON array of user summaries loaded into memory storage.
	SeedFile string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type PushConfig struct {
	QueueSize      int
	OverflowPolicy string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	Broker         string
	RedisChannel   string
}

type NATSConfig struct {
	URL     string
	Subject string
}

type NotifyConfig struct {
	QueueSize int
}

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	BrokerLocal = "local"
	BrokerRedis = "redis"
	BrokerNATS  = "nats"

	OverflowDropOldest = "drop_oldest"
	OverflowDisconnect = "disconnect"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("ENV", "development")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("STORAGE_TYPE", StoragePostgres)
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("JWT_ACCESS_EXPIRY_MIN", 60)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("PUSH_QUEUE_SIZE", 64)
	v.SetDefault("PUSH_OVERFLOW_POLICY", OverflowDropOldest)
	v.SetDefault("PUSH_PING_INTERVAL", 30*time.Second)
	v.SetDefault("PUSH_WRITE_TIMEOUT", 10*time.Second)
	v.SetDefault("PUSH_BROKER", BrokerLocal)
	v.SetDefault("PUSH_REDIS_CHANNEL", "matchcore:envelopes")
	v.SetDefault("NATS_URL", "nats://127.0.0.1:4222")
	v.SetDefault("NATS_SUBJECT", "matchcore.envelopes")
	v.SetDefault("NOTIFY_QUEUE_SIZE", 1024)
}

// Load loads configuration from environment variables or .env file
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom reads the given env file (if present) and the process environment.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	// Try to read from .env file, but don't fail if it doesn't exist
	_ = v.ReadInConfig()

	config := &Config{
		Server: ServerConfig{
			Host:         v.GetString("SERVER_HOST"),
			Port:         v.GetInt("SERVER_PORT"),
			Env:          v.GetString("ENV"),
			CORSOrigins:  splitList(v.GetString("CORS_ORIGINS")),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSL_MODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			AccessSecret:    v.GetString("JWT_ACCESS_SECRET"),
			AccessExpiryMin: v.GetInt("JWT_ACCESS_EXPIRY_MIN"),
		},
		Storage: StorageConfig{
			Type:     strings.ToLower(v.GetString("STORAGE_TYPE")),
			SeedFile: v.GetString("STORAGE_SEED_FILE"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Push: PushConfig{
			QueueSize:      v.GetInt("PUSH_QUEUE_SIZE"),
			OverflowPolicy: strings.ToLower(v.GetString("PUSH_OVERFLOW_POLICY")),
			PingInterval:   v.GetDuration("PUSH_PING_INTERVAL"),
			WriteTimeout:   v.GetDuration("PUSH_WRITE_TIMEOUT"),
			Broker:         strings.ToLower(v.GetString("PUSH_BROKER")),
			RedisChannel:   v.GetString("PUSH_REDIS_CHANNEL"),
		},
		NATS: NATSConfig{
			URL:     v.GetString("NATS_URL"),
			Subject: v.GetString("NATS_SUBJECT"),
		},
		Notify: NotifyConfig{
			QueueSize: v.GetInt("NOTIFY_QUEUE_SIZE"),
		},
		GeminiAPIKey: v.GetString("GEMINI_API_KEY"),
	}

	// Validate critical configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates critical configuration values
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StoragePostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if c.JWT.AccessSecret == "" {
		return fmt.Errorf("JWT access secret is required")
	}
	if len(c.JWT.AccessSecret) < 32 {
		return fmt.Errorf("JWT access secret must be at least 32 characters")
	}
	if c.Push.QueueSize <= 0 {
		return fmt.Errorf("push queue size must be positive")
	}
	switch c.Push.OverflowPolicy {
	case OverflowDropOldest, OverflowDisconnect:
	default:
		return fmt.Errorf("unknown push overflow policy %q", c.Push.OverflowPolicy)
	}
	switch c.Push.Broker {
	case BrokerLocal, BrokerRedis, BrokerNATS:
	default:
		return fmt.Errorf("unknown push broker %q", c.Push.Broker)
	}
	if c.Notify.QueueSize <= 0 {
		return fmt.Errorf("notify queue size must be positive")
	}
	return nil
}

func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetRedisAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
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
