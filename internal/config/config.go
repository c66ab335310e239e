package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const defaultGreeting = "Hello! I'm your AI assistant. Upload a PDF document for analysis or ask me a question."

type Config struct {
	Port              int
	BackendURL        string
	RelayURL          string
	LogLevel          string
	NatsURL           string
	NatsToken         string
	DatabaseURL       string
	Greeting          string
	SessionIdleTTL    time.Duration
	BackendTimeout    time.Duration
	UploadMemoryBytes int64
}

func Load() Config {
	port := envInt("DOCCHAT_PORT", 8080)
	return Config{
		Port:              port,
		BackendURL:        envStr("BACKEND_URL", envStr("NEXT_PUBLIC_BACKEND_URL", "")),
		RelayURL:          envStr("RELAY_URL", fmt.Sprintf("http://127.0.0.1:%d", port)),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		NatsURL:           envStr("NATS_URL", ""),
		NatsToken:         envStr("NATS_TOKEN", ""),
		DatabaseURL:       envStr("DATABASE_URL", ""),
		Greeting:          envStr("DOCCHAT_GREETING", defaultGreeting),
		SessionIdleTTL:    envDuration("SESSION_IDLE_TTL", 30*time.Minute),
		BackendTimeout:    envDuration("BACKEND_TIMEOUT", 0),
		UploadMemoryBytes: int64(envInt("UPLOAD_MEMORY_BYTES", 32<<20)),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return fallback
}
