package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            int
	LogLevel        string
	MasterAPIKey    string
	OpenAIAPIKey    string
	OpenAIModel     string
	FallbackAPIKey  string
	FallbackModel   string
	CallbackURL     string
	DatabaseURL     string
	SessionsFile    string
	NatsURL         string
	NatsToken       string
	ReasonerTimeout time.Duration
}

func Load() Config {
	return Config{
		Port:            envInt("SENTINEL_PORT", 8780),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		MasterAPIKey:    envStr("HONEYPOT_API_KEY", "sentinel-master-key"),
		OpenAIAPIKey:    envStr("OPENAI_API_KEY", ""),
		OpenAIModel:     envStr("SENTINEL_MODEL", "gpt-4o"),
		FallbackAPIKey:  envStr("SENTINEL_FALLBACK_KEY", ""),
		FallbackModel:   envStr("SENTINEL_FALLBACK_MODEL", "gpt-4o-mini"),
		CallbackURL:     envStr("CALLBACK_URL", "https://hackathon.guvi.in/api/updateHoneyPotFinalResult"),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		SessionsFile:    envStr("SENTINEL_SESSIONS_FILE", "sessions.json"),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		ReasonerTimeout: envDuration("SENTINEL_REASONER_TIMEOUT", 45*time.Second),
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
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
