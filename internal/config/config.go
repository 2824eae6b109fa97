// Package config loads the simulator configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnv returns the value of key from the environment, or defaultValue if unset or empty.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return defaultValue
}

// GetEnvDuration returns the duration for key, or defaultValue if unset/invalid.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return d
}

// GetEnvInt returns the int for key, or defaultValue if unset/invalid.
func GetEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return n
}

// GetEnvInt64 returns the int64 for key, or defaultValue if unset/invalid.
func GetEnvInt64(key string, defaultValue int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(os.Getenv(key)), 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetEnvBool returns the bool for key, or defaultValue if unset/invalid.
func GetEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return b
}

// SimulatorConfig holds configuration for the simulator service (used by
// cmd/simulator and internal/controller).
type SimulatorConfig struct {
	HTTPAddr         string
	ShutdownTimeout  time.Duration
	LogLevel         string
	SessionCacheSize int
	ScenarioDir      string
	ScenarioWatch    bool
	// Seed for the attacker's random source; 0 seeds from the clock.
	Seed             int64
	// RealtimeEvents enables random alerts and team messages after
	// successful commands.
	RealtimeEvents   bool

	AnalyticsEnabled  bool
	AnalyticsEndpoint string
	AnalyticsAPIKey   string
	AnalyticsTimeout  time.Duration
}

// DefaultSimulatorConfig returns simulator config from environment.
func DefaultSimulatorConfig() SimulatorConfig {
	ep := GetEnv("ANALYTICS_ENDPOINT", "")
	key := GetEnv("ANALYTICS_API_KEY", "")
	size := GetEnvInt("SESSION_CACHE_SIZE", 1000)
	if size <= 0 {
		size = 1000
	}
	return SimulatorConfig{
		HTTPAddr:          GetEnv("HTTP_ADDR", ":8080"),
		ShutdownTimeout:   GetEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogLevel:          GetEnv("LOG_LEVEL", "info"),
		SessionCacheSize:  size,
		ScenarioDir:       GetEnv("SCENARIO_DIR", ""),
		ScenarioWatch:     GetEnvBool("SCENARIO_WATCH", true),
		Seed:              GetEnvInt64("SIM_SEED", 0),
		RealtimeEvents:    GetEnvBool("SIM_REALTIME_EVENTS", true),
		AnalyticsEnabled:  ep != "" && key != "",
		AnalyticsEndpoint: ep,
		AnalyticsAPIKey:   key,
		AnalyticsTimeout:  GetEnvDuration("ANALYTICS_TIMEOUT", 30*time.Second),
	}
}
