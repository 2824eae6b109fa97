package config

import (
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Run("returns default when unset", func(t *testing.T) {
		got := GetEnv("SIM_TEST_GETENV_UNSET", "default")
		if got != "default" {
			t.Errorf("GetEnv(unset) = %q, want %q", got, "default")
		}
	})

	t.Run("returns value when set", func(t *testing.T) {
		t.Setenv("SIM_TEST_GETENV_SET", "myvalue")
		got := GetEnv("SIM_TEST_GETENV_SET", "default")
		if got != "myvalue" {
			t.Errorf("GetEnv(set) = %q, want %q", got, "myvalue")
		}
	})

	t.Run("returns default when empty", func(t *testing.T) {
		t.Setenv("SIM_TEST_GETENV_EMPTY", "")
		got := GetEnv("SIM_TEST_GETENV_EMPTY", "default")
		if got != "default" {
			t.Errorf("GetEnv(empty) = %q, want %q", got, "default")
		}
	})

	t.Run("trims space", func(t *testing.T) {
		t.Setenv("SIM_TEST_GETENV_TRIM", "  trimmed  ")
		got := GetEnv("SIM_TEST_GETENV_TRIM", "default")
		if got != "trimmed" {
			t.Errorf("GetEnv(trim) = %q, want %q", got, "trimmed")
		}
	})
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		def   time.Duration
		want  time.Duration
	}{
		{"empty", "", 10 * time.Second, 10 * time.Second},
		{"valid", "30s", time.Second, 30 * time.Second},
		{"invalid", "not-a-duration", 7 * time.Second, 7 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SIM_TEST_DURATION", tt.value)
			if got := GetEnvDuration("SIM_TEST_DURATION", tt.def); got != tt.want {
				t.Errorf("GetEnvDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestGetEnvNumbersAndBools(t *testing.T) {
	t.Setenv("SIM_TEST_INT", " 42 ")
	if got := GetEnvInt("SIM_TEST_INT", 1); got != 42 {
		t.Errorf("GetEnvInt = %d, want 42", got)
	}
	t.Setenv("SIM_TEST_INT", "forty")
	if got := GetEnvInt("SIM_TEST_INT", 1); got != 1 {
		t.Errorf("GetEnvInt(invalid) = %d, want 1", got)
	}

	t.Setenv("SIM_TEST_INT64", "-9000000000")
	if got := GetEnvInt64("SIM_TEST_INT64", 0); got != -9000000000 {
		t.Errorf("GetEnvInt64 = %d", got)
	}

	t.Setenv("SIM_TEST_BOOL", "false")
	if got := GetEnvBool("SIM_TEST_BOOL", true); got {
		t.Error("GetEnvBool(false) = true")
	}
	t.Setenv("SIM_TEST_BOOL", "maybe")
	if got := GetEnvBool("SIM_TEST_BOOL", true); !got {
		t.Error("GetEnvBool(invalid) should return default")
	}
}

func TestDefaultSimulatorConfig(t *testing.T) {
	t.Setenv("ANALYTICS_ENDPOINT", "")
	t.Setenv("ANALYTICS_API_KEY", "")
	t.Setenv("SESSION_CACHE_SIZE", "")
	t.Setenv("SIM_SEED", "")
	t.Setenv("SIM_REALTIME_EVENTS", "")
	cfg := DefaultSimulatorConfig()
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.AnalyticsEnabled {
		t.Error("AnalyticsEnabled should be false when env unset")
	}
	if cfg.SessionCacheSize != 1000 {
		t.Errorf("SessionCacheSize = %d", cfg.SessionCacheSize)
	}
	if cfg.Seed != 0 {
		t.Errorf("Seed = %d", cfg.Seed)
	}
	if !cfg.RealtimeEvents {
		t.Error("RealtimeEvents should default to true")
	}
}

func TestDefaultSimulatorConfig_FromEnv(t *testing.T) {
	t.Setenv("ANALYTICS_ENDPOINT", "https://lms.example.com")
	t.Setenv("ANALYTICS_API_KEY", "secret")
	t.Setenv("SESSION_CACHE_SIZE", "-5")
	t.Setenv("SIM_SEED", "7")
	t.Setenv("SCENARIO_WATCH", "false")
	t.Setenv("SIM_REALTIME_EVENTS", "false")
	cfg := DefaultSimulatorConfig()
	if !cfg.AnalyticsEnabled {
		t.Error("AnalyticsEnabled should be true when endpoint and key are set")
	}
	if cfg.SessionCacheSize != 1000 {
		t.Errorf("SessionCacheSize = %d, want fallback 1000", cfg.SessionCacheSize)
	}
	if cfg.Seed != 7 {
		t.Errorf("Seed = %d, want 7", cfg.Seed)
	}
	if cfg.ScenarioWatch {
		t.Error("ScenarioWatch should be false")
	}
	if cfg.RealtimeEvents {
		t.Error("RealtimeEvents should be false")
	}
}
