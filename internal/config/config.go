package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Backend REST API base URL (assignments, project masters, master data).
	APIBaseURL string
	// Filter range fetches to one manager's assignments; empty loads all.
	EmployeeID string
	// Database change-feed websocket URL; empty disables the channel and the
	// engine degrades to broadcast + polling.
	ChangeFeedURL string
	// Whether the managed change-feed notifies the connection that caused a
	// change. When false the in-process bus is wired as the redundant path.
	ChangeFeedNotifiesSelf bool
	// Redis for the cross-device broadcast channel; empty disables it.
	RedisURL         string
	BroadcastChannel string
	// Sync engine timing.
	PollInterval time.Duration
	SettleDelay  time.Duration
	CreateDelay  time.Duration
	MaxGateHold  time.Duration
	// Logrus level name: debug, info, warn, error.
	LogLevel string
}

func Load() Config {
	return Config{
		APIBaseURL:             getenv("DANDORI_API_URL", "http://localhost:8790"),
		EmployeeID:             getenv("DANDORI_EMPLOYEE_ID", ""),
		ChangeFeedURL:          getenv("DANDORI_CHANGEFEED_URL", "ws://localhost:8790/changefeed"),
		ChangeFeedNotifiesSelf: getenvBool("DANDORI_CHANGEFEED_NOTIFIES_SELF", false),
		RedisURL:               getenv("REDIS_URL", "redis://localhost:6379/0"),
		BroadcastChannel:       getenv("DANDORI_BROADCAST_CHANNEL", "dandori:assignments"),
		PollInterval:           time.Duration(getenvInt("DANDORI_POLL_INTERVAL_SECONDS", 300)) * time.Second,
		SettleDelay:            time.Duration(getenvInt("DANDORI_GATE_SETTLE_MS", 500)) * time.Millisecond,
		CreateDelay:            time.Duration(getenvInt("DANDORI_GATE_CREATE_MS", 5000)) * time.Millisecond,
		MaxGateHold:            time.Duration(getenvInt("DANDORI_GATE_MAX_HOLD_SECONDS", 30)) * time.Second,
		LogLevel:               getenv("DANDORI_LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
