package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// clearEnv unsets every variable Load reads, restoring them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "FEEDRANK_ENV", "ENV", "GO_ENV", "DATABASE_URL", "REDIS_ADDR",
		"CALIBRATION_PATH", "SCORE_CACHE_TTL_MINUTES",
		"TRACING_ENABLED", "TRACING_ENDPOINT", "TRACING_EXPORTER", "TRACING_SAMPLING",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, errs := Load("")
	if len(errs) != 0 {
		t.Fatalf("Load() errors: %v", errs)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.Env != DefaultEnv {
		t.Errorf("Env = %q, want %q", cfg.Env, DefaultEnv)
	}
	if cfg.ScoreCacheTTLMinutes != DefaultScoreCacheTTLMinutes {
		t.Errorf("ScoreCacheTTLMinutes = %d, want %d", cfg.ScoreCacheTTLMinutes, DefaultScoreCacheTTLMinutes)
	}
	if cfg.TracingEnabled {
		t.Error("TracingEnabled should default to false")
	}
	if cfg.IsProduction() {
		t.Error("default env should not be production")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("FEEDRANK_ENV", "production")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, errs := Load("")
	if len(errs) != 0 {
		t.Fatalf("Load() errors: %v", errs)
	}

	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if !cfg.TracingEnabled {
		t.Error("TracingEnabled = false, want true")
	}
}

func TestLoadInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")

	_, errs := Load("")
	found := false
	for _, err := range errs {
		if errors.Is(err, ErrInvalidPort) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected ErrInvalidPort in %v", errs)
	}
}

func TestLoadYAMLFileWithEnvPrecedence(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	payload := "port: 7070\nredis_addr: file-redis:6379\ncalibration_path: /etc/feedrank/calibration.json\n"
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REDIS_ADDR", "env-redis:6379")

	cfg, errs := Load(path)
	if len(errs) != 0 {
		t.Fatalf("Load() errors: %v", errs)
	}

	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want file value 7070", cfg.Port)
	}
	if cfg.RedisAddr != "env-redis:6379" {
		t.Errorf("RedisAddr = %q, env must win over file", cfg.RedisAddr)
	}
	if cfg.CalibrationPath != "/etc/feedrank/calibration.json" {
		t.Errorf("CalibrationPath = %q", cfg.CalibrationPath)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	if _, errs := Load("/nonexistent/config.yaml"); len(errs) == 0 {
		t.Error("expected an error for a missing config file")
	}
}

func TestValidateBounds(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{name: "port too low", cfg: Config{Port: 0, ScoreCacheTTLMinutes: 1}, want: ErrPortOutOfRange},
		{name: "port too high", cfg: Config{Port: 70000, ScoreCacheTTLMinutes: 1}, want: ErrPortOutOfRange},
		{name: "bad ttl", cfg: Config{Port: 8080, ScoreCacheTTLMinutes: 0}, want: ErrInvalidTTL},
		{name: "bad sampling", cfg: Config{Port: 8080, ScoreCacheTTLMinutes: 1, TracingSampling: 1.5}, want: ErrInvalidSampling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.cfg.Validate()
			found := false
			for _, err := range errs {
				if errors.Is(err, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() = %v, want %v", errs, tt.want)
			}
		})
	}
}
