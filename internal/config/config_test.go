package config

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/dom"
	"github.com/vango-dev/vtree/pkg/watch"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
	}
	if cfg.Diff.Format != DefaultDiffFormat {
		t.Errorf("Diff.Format = %q, want %q", cfg.Diff.Format, DefaultDiffFormat)
	}
	if cfg.Watch.Listen != DefaultListen {
		t.Errorf("Watch.Listen = %q, want %q", cfg.Watch.Listen, DefaultListen)
	}
	if cfg.SlowUpdate() != dom.DefaultSlowUpdate {
		t.Errorf("SlowUpdate() = %v, want %v", cfg.SlowUpdate(), dom.DefaultSlowUpdate)
	}
	if cfg.Debounce() != watch.DefaultDebounce {
		t.Errorf("Debounce() = %v, want %v", cfg.Debounce(), watch.DefaultDebounce)
	}
	if !cfg.MetricsEnabled() {
		t.Error("metrics should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("Expected error for missing config")
	}
	var ve *errors.VTreeError
	if !stderrors.As(err, &ve) || ve.Code != errors.ECodeFileNotFound {
		t.Errorf("missing config error = %v, want %s", err, errors.ECodeFileNotFound)
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	configJSON := `{
  "log": {
    "level": "debug"
  },
  "diff": {
    "format": "jsonpatch"
  },
  "apply": {
    "strictRegistry": true,
    "slowUpdate": "5ms"
  },
  "watch": {
    "listen": ":9000",
    "debounce": "250ms",
    "maxLag": 4,
    "metrics": false
  }
}
`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, want %v", cfg.LogLevel(), slog.LevelDebug)
	}
	if cfg.Diff.Format != "jsonpatch" {
		t.Errorf("Diff.Format = %q, want %q", cfg.Diff.Format, "jsonpatch")
	}
	if cfg.Diff.Color != DefaultColor {
		t.Errorf("Diff.Color = %q, want default %q", cfg.Diff.Color, DefaultColor)
	}
	if !cfg.Apply.StrictRegistry {
		t.Error("Apply.StrictRegistry should be true")
	}
	if cfg.SlowUpdate() != 5*time.Millisecond {
		t.Errorf("SlowUpdate() = %v, want 5ms", cfg.SlowUpdate())
	}
	if cfg.Watch.Listen != ":9000" {
		t.Errorf("Watch.Listen = %q, want %q", cfg.Watch.Listen, ":9000")
	}
	if cfg.Debounce() != 250*time.Millisecond {
		t.Errorf("Debounce() = %v, want 250ms", cfg.Debounce())
	}
	if cfg.Watch.SendBuffer != 64 {
		t.Errorf("Watch.SendBuffer = %d, want default 64", cfg.Watch.SendBuffer)
	}
	if cfg.MetricsEnabled() {
		t.Error("metrics should be disabled")
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
}

func TestLoadOrDefault(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadOrDefault(tmpDir)
	if err != nil {
		t.Fatalf("LoadOrDefault error: %v", err)
	}
	if cfg.Watch.Listen != DefaultListen || cfg.Path() != "" {
		t.Errorf("expected defaults, got %+v", cfg)
	}

	// A broken file is still an error
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrDefault(tmpDir); err == nil {
		t.Error("expected error for broken config")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{\n  \"log\": {\n    \"level\": debug\n  }\n}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	var ve *errors.VTreeError
	if !stderrors.As(err, &ve) {
		t.Fatalf("error = %v, want VTreeError", err)
	}
	if ve.Code != errors.ECodeConfigParse {
		t.Errorf("Code = %q, want %q", ve.Code, errors.ECodeConfigParse)
	}
	if ve.Location == nil || ve.Location.Line != 3 {
		t.Errorf("Location = %v, want line 3", ve.Location)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte(`{"diff": {"format": "xml"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(errors.Classify(err).Detail, "diff.format") {
		t.Errorf("detail should name the field: %v", errors.Classify(err).Detail)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"diff format", func(c *Config) { c.Diff.Format = "yaml" }, "diff.format"},
		{"color", func(c *Config) { c.Diff.Color = "sometimes" }, "diff.color"},
		{"slow update", func(c *Config) { c.Apply.SlowUpdate = "soon" }, "apply.slowUpdate"},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = "-1s" }, "watch.debounce"},
		{"heartbeat", func(c *Config) { c.Watch.Heartbeat = "0s" }, "watch.heartbeat"},
		{"listen", func(c *Config) { c.Watch.Listen = "localhost" }, "watch.listen"},
		{"max lag", func(c *Config) { c.Watch.MaxLag = -1 }, "watch.maxLag"},
		{"send buffer", func(c *Config) { c.Watch.SendBuffer = -5 }, "watch.sendBuffer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			ve := errors.Classify(err)
			if ve.Code != errors.ECodeConfigInvalid {
				t.Errorf("Code = %q, want %q", ve.Code, errors.ECodeConfigInvalid)
			}
			if !strings.HasPrefix(ve.Detail, tt.field+" is ") {
				t.Errorf("Detail = %q, want prefix %q", ve.Detail, tt.field)
			}
		})
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := New()
	if err := cfg.Save(); err == nil {
		t.Error("Save without a path should fail")
	}

	cfg.Watch.Listen = "0.0.0.0:8080"
	cfg.Apply.StrictRegistry = true
	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "}\n") {
		t.Error("saved file should end with a newline")
	}

	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Watch.Listen != "0.0.0.0:8080" {
		t.Errorf("Watch.Listen = %q, want %q", loaded.Watch.Listen, "0.0.0.0:8080")
	}
	if !loaded.Apply.StrictRegistry {
		t.Error("Apply.StrictRegistry should round trip")
	}

	loaded.Log.Level = "warn"
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	again, err := Load(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if again.LogLevel() != slog.LevelWarn {
		t.Errorf("LogLevel() = %v, want %v", again.LogLevel(), slog.LevelWarn)
	}
}

func TestWatchHubConfig(t *testing.T) {
	cfg := New()
	cfg.Watch.Heartbeat = "5s"
	cfg.Watch.MaxLag = 3
	cfg.Watch.SendBuffer = 8

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := cfg.WatchHubConfig(logger, nil)
	if hub.HeartbeatInterval != 5*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 5s", hub.HeartbeatInterval)
	}
	if hub.MaxLag != 3 {
		t.Errorf("MaxLag = %d, want 3", hub.MaxLag)
	}
	if hub.SendBuffer != 8 {
		t.Errorf("SendBuffer = %d, want 8", hub.SendBuffer)
	}
	if hub.Logger != logger {
		t.Error("Logger should be passed through")
	}
	if hub.WriteTimeout != watch.DefaultConfig().WriteTimeout {
		t.Errorf("WriteTimeout = %v, want default", hub.WriteTimeout)
	}
}

func TestDOMOptions(t *testing.T) {
	cfg := New()
	if got := len(cfg.DOMOptions(nil, nil)); got != 2 {
		t.Errorf("len(DOMOptions(nil, nil)) = %d, want 2", got)
	}
	if got := len(cfg.DOMOptions(slog.Default(), nil)); got != 3 {
		t.Errorf("len(DOMOptions(logger, nil)) = %d, want 3", got)
	}
}
