package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("READ_TIMEOUT", "10s")
	t.Setenv("WRITE_TIMEOUT", "20s")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("LLM_TIMEOUT", "45s")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-test")
	t.Setenv("RATE_LIMIT", "10")
	t.Setenv("RATE_LIMIT_INTERVAL", "2s")
	t.Setenv("IGNORE_PLAYLIST", "true")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("DB_PATH", "/tmp/summary-test.db")

	cfg := LoadConfig()

	if cfg.ServerPort != "9090" {
		t.Errorf("expected 9090, got %s", cfg.ServerPort)
	}
	if cfg.ReadTimeout != 10*time.Second {
		t.Errorf("expected 10s, got %s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 20*time.Second {
		t.Errorf("expected 20s, got %s", cfg.WriteTimeout)
	}
	if cfg.FetchTimeout != 3*time.Second {
		t.Errorf("expected 3s, got %s", cfg.FetchTimeout)
	}
	if cfg.LLMTimeout != 45*time.Second {
		t.Errorf("expected 45s, got %s", cfg.LLMTimeout)
	}
	if cfg.OpenAIAPIKey != "sk-test" {
		t.Errorf("expected sk-test, got %s", cfg.OpenAIAPIKey)
	}
	if cfg.OpenAIModel != "gpt-test" {
		t.Errorf("expected gpt-test, got %s", cfg.OpenAIModel)
	}
	if cfg.RateLimit != 10 {
		t.Errorf("expected 10, got %d", cfg.RateLimit)
	}
	if cfg.RateLimitInterval != 2*time.Second {
		t.Errorf("expected 2s, got %s", cfg.RateLimitInterval)
	}
	if !cfg.IgnorePlaylist {
		t.Error("expected IgnorePlaylist to be true")
	}
	if !cfg.CacheEnabled || cfg.DBPath != "/tmp/summary-test.db" {
		t.Errorf("unexpected cache settings: enabled=%v path=%s", cfg.CacheEnabled, cfg.DBPath)
	}
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("READ_TIMEOUT", "soon")
	t.Setenv("RATE_LIMIT", "many")
	t.Setenv("CACHE_ENABLED", "perhaps")

	cfg := LoadConfig()

	if cfg.ReadTimeout != 15*time.Second {
		t.Errorf("expected default 15s, got %s", cfg.ReadTimeout)
	}
	if cfg.RateLimit != 5 {
		t.Errorf("expected default 5, got %d", cfg.RateLimit)
	}
	if cfg.CacheEnabled {
		t.Error("expected cache to stay disabled")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"no port", func(c *Config) { c.ServerPort = "" }, true},
		{"zero fetch timeout", func(c *Config) { c.FetchTimeout = 0 }, true},
		{"zero llm timeout", func(c *Config) { c.LLMTimeout = 0 }, true},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }, true},
		{"cache without path", func(c *Config) { c.CacheEnabled = true; c.DBPath = "" }, true},
		{"no api key", func(c *Config) { c.OpenAIAPIKey = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("YTS_DOTENV_PROBE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("YTS_DOTENV_PROBE") })

	LoadDotEnv(path)

	if got := GetEnv("YTS_DOTENV_PROBE", ""); got != "from-file" {
		t.Errorf("expected from-file, got %q", got)
	}

	// A missing file is not an error.
	LoadDotEnv(filepath.Join(dir, "missing.env"))
}
