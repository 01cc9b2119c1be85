package config

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process settings read from the environment.
type Config struct {
	HTTPPort        string
	GRPCPort        string // empty disables the gRPC transport
	LogLevel        string
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
	ClickHouseDSN   string
	PostgresDSN     string
}

// Load reads an optional .env file and then the environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return &Config{
		HTTPPort:        envOrDefault("PHISHGUARD_HTTP_PORT", "3000"),
		GRPCPort:        os.Getenv("PHISHGUARD_GRPC_PORT"),
		LogLevel:        envOrDefault("PHISHGUARD_LOG_LEVEL", "info"),
		MaxBodyBytes:    maxBodyBytes(),
		ShutdownTimeout: time.Duration(envOrDefaultInt("PHISHGUARD_SHUTDOWN_TIMEOUT_S", 10)) * time.Second,
		ClickHouseDSN:   os.Getenv("CLICKHOUSE_DSN"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
	}, nil
}

// maxBodyBytes caps the body limit at math.MaxUint32 so recorded message
// sizes fit the uint32 message_size column.
func maxBodyBytes() int64 {
	n := int64(envOrDefaultInt("PHISHGUARD_MAX_BODY_BYTES", 1<<20))
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return n
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return defaultVal
}
