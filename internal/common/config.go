package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Extract  ExtractConfig
	LLM      LLMConfig
}

// DatabaseConfig holds archive-store configuration. The archive keeps every
// processed page and decoded ticket. Driver selects between the embedded
// SQLite file and a shared Postgres instance.
type DatabaseConfig struct {
	Driver           string
	SQLitePath       string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr     string
	InboxDir     string
	PollInterval time.Duration
}

// ExtractConfig holds extraction pipeline configuration
type ExtractConfig struct {
	OutputDir    string
	MaxPages     int
	RepairRounds int
	IgnoreFields []string
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("ARCHIVE_DRIVER", "sqlite"),
			SQLitePath:       getEnv("ARCHIVE_SQLITE_PATH", "./tickets.db"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:     getEnv("GRPC_ADDR", ":8080"),
			InboxDir:     getEnv("INBOX_DIR", ""),
			PollInterval: getEnvAsDuration("INBOX_POLL_INTERVAL", 30*time.Second),
		},
		Extract: ExtractConfig{
			OutputDir:    getEnv("OUTPUT_DIR", "./out"),
			MaxPages:     getEnvAsInt("MAX_PAGES", 0),
			RepairRounds: getEnvAsInt("REPAIR_ROUNDS", 1),
			IgnoreFields: getEnvAsList("IGNORE_FIELDS", []string{"Delivery Date", "Delivery Time"}),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
	}
}

// IgnoreSet returns the configured ignore fields as a set keyed by field path.
func (c *ExtractConfig) IgnoreSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.IgnoreFields))
	for _, f := range c.IgnoreFields {
		if f = strings.TrimSpace(f); f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return NewAppError("CONFIG_ERROR", "ARCHIVE_DRIVER must be sqlite or postgres", ErrInvalidInput)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required when ARCHIVE_DRIVER=postgres", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	return nil
}
