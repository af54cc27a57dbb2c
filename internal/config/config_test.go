package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"gopkg.in/yaml.v2"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Studio.APIKey != "${STUDIO_API_KEY}" {
		t.Errorf("expected studio API key placeholder, got %q", cfg.Studio.APIKey)
	}
	if cfg.Scheduler.BookConcurrency != 3 || cfg.Scheduler.PageConcurrency != 3 {
		t.Errorf("unexpected concurrency defaults: %+v", cfg.Scheduler)
	}
	image, enhance := cfg.Scheduler.Delays()
	if image != time.Second || enhance != 500*time.Millisecond {
		t.Errorf("delays = %v, %v", image, enhance)
	}
	if cfg.Defaults.PageCount != 10 || cfg.Defaults.Audience != "kids" {
		t.Errorf("unexpected idea defaults: %+v", cfg.Defaults)
	}
	if cfg.Studio.Timeout() != 5*time.Minute {
		t.Errorf("timeout = %v", cfg.Studio.Timeout())
	}
	if cfg.Server.Addr() != "127.0.0.1:8080" {
		t.Errorf("addr = %s", cfg.Server.Addr())
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		path := writeConfig(t, `
studio:
  base_url: "http://studio.test"
scheduler:
  page_concurrency: 5
`)
		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Studio.BaseURL != "http://studio.test" {
			t.Errorf("expected http://studio.test, got %s", cfg.Studio.BaseURL)
		}
		if cfg.Scheduler.PageConcurrency != 5 {
			t.Errorf("page concurrency = %d, want 5", cfg.Scheduler.PageConcurrency)
		}
		// Keys left out of the file keep their defaults.
		if cfg.Scheduler.BookConcurrency != 3 {
			t.Errorf("book concurrency = %d, want 3", cfg.Scheduler.BookConcurrency)
		}
		if mgr.ConfigFileUsed() != path {
			t.Errorf("ConfigFileUsed() = %s", mgr.ConfigFileUsed())
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfig(t, "studio:\n  base_url: \"http://file\"\n")
		t.Setenv("COLORBOOK_STUDIO_BASE_URL", "http://env")

		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.Get().Studio.BaseURL; got != "http://env" {
			t.Errorf("base url = %s, want http://env", got)
		}
	})

	t.Run("rejects malformed file", func(t *testing.T) {
		path := writeConfig(t, "studio: [unclosed")
		if _, err := NewManager(path); err == nil {
			t.Error("expected error for malformed config")
		}
	})
}

func TestManager_Set(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	var calls atomic.Int32
	mgr.OnChange(func(cfg *Config) { calls.Add(1) })

	if err := mgr.Set("scheduler.image_delay_ms", 250); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := mgr.Get().Scheduler.ImageDelayMs; got != 250 {
		t.Errorf("image delay = %d, want 250", got)
	}
	if calls.Load() != 1 {
		t.Errorf("callbacks = %d, want 1", calls.Load())
	}

	if err := mgr.Set("nope.key", 1); !errors.Is(err, ErrNoDefault) {
		t.Errorf("Set(unknown) error = %v, want ErrNoDefault", err)
	}
	if err := mgr.Set("bad key", 1); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Set(invalid) error = %v, want ErrInvalidKey", err)
	}

	e, err := mgr.Entry("scheduler.image_delay_ms")
	if err != nil {
		t.Fatalf("Entry() error = %v", err)
	}
	if e.Value != 250 || e.Description == "" {
		t.Errorf("Entry() = %+v", e)
	}
}

func TestManager_Entries(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	entries := mgr.Entries()
	if len(entries) != len(DefaultEntries()) {
		t.Fatalf("got %d entries, want %d", len(entries), len(DefaultEntries()))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Key >= entries[i].Key {
			t.Fatalf("entries not sorted at %s", entries[i].Key)
		}
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"studio.base_url", false},
		{"export.include-title", false},
		{"", true},
		{".studio", true},
		{"studio.", true},
		{"studio base", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestDefaultEntries_UniqueKeys(t *testing.T) {
	seen := map[string]bool{}
	for _, e := range DefaultEntries() {
		if seen[e.Key] {
			t.Errorf("duplicate key %s", e.Key)
		}
		seen[e.Key] = true
		if err := ValidateKey(e.Key); err != nil {
			t.Errorf("invalid default key %s: %v", e.Key, err)
		}
	}
	if _, err := GetDefault("missing"); !errors.Is(err, ErrNoDefault) {
		t.Errorf("GetDefault(missing) error = %v", err)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config does not parse: %v", err)
	}
	if cfg.Stages.ImageSize != "1024x1536" {
		t.Errorf("image size = %s", cfg.Stages.ImageSize)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() on written default error = %v", err)
	}
	if mgr.Get().Export.HandoffTTL() != time.Hour {
		t.Errorf("handoff ttl = %v", mgr.Get().Export.HandoffTTL())
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "studio:\n  base_url: \"http://initial\"\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Studio.BaseURL)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("studio:\n  base_url: \"http://updated\"\n"), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, _ := lastValue.Load().(string); v == "http://updated" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}
	if got := mgr.Get().Studio.BaseURL; got != "http://updated" {
		t.Errorf("config not updated: expected http://updated, got %s", got)
	}
}
