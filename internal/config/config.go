package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/dom"
	"github.com/vango-dev/vtree/pkg/telemetry"
	"github.com/vango-dev/vtree/pkg/watch"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vtree.json"

	// DefaultListen is the default watch server address.
	DefaultListen = "localhost:7070"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultDiffFormat is the default output format of vtree diff.
	DefaultDiffFormat = "text"

	// DefaultColor is the default color mode.
	DefaultColor = "auto"
)

// Diff output formats.
var DiffFormats = []string{"text", "json", "jsonpatch", "binary"}

// Color modes.
var ColorModes = []string{"auto", "always", "never"}

// Log levels.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Config represents the complete vtree.json configuration.
type Config struct {
	// Log contains logging configuration.
	Log LogConfig `json:"log"`

	// Diff contains vtree diff configuration.
	Diff DiffConfig `json:"diff"`

	// Apply contains configuration shared by every command that applies
	// patches to a live tree.
	Apply ApplyConfig `json:"apply"`

	// Watch contains vtree watch configuration.
	Watch WatchConfig `json:"watch"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level,omitempty"`
}

// DiffConfig contains vtree diff settings.
type DiffConfig struct {
	// Format is the default output format.
	Format string `json:"format,omitempty"`

	// Color is one of auto, always or never.
	Color string `json:"color,omitempty"`
}

// ApplyConfig contains apply settings.
type ApplyConfig struct {
	// StrictRegistry turns listener registry inconsistencies into errors.
	StrictRegistry bool `json:"strictRegistry,omitempty"`

	// SlowUpdate is the duration above which updates are logged as slow
	// (e.g., "16ms").
	SlowUpdate string `json:"slowUpdate,omitempty"`
}

// WatchConfig contains watch server settings.
type WatchConfig struct {
	// Listen is the address the HTTP server binds to.
	Listen string `json:"listen,omitempty"`

	// Debounce is how long to wait after a file event before reloading.
	Debounce string `json:"debounce,omitempty"`

	// Heartbeat is the interval between websocket pings.
	Heartbeat string `json:"heartbeat,omitempty"`

	// MaxLag is how many frames a client may fall behind before it is
	// resynced with a snapshot.
	MaxLag int `json:"maxLag,omitempty"`

	// SendBuffer is the number of frames queued per client.
	SendBuffer int `json:"sendBuffer,omitempty"`

	// Metrics exposes /metrics on the watch server.
	Metrics *bool `json:"metrics,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	metrics := true
	return &Config{
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
		Diff: DiffConfig{
			Format: DefaultDiffFormat,
			Color:  DefaultColor,
		},
		Apply: ApplyConfig{
			SlowUpdate: dom.DefaultSlowUpdate.String(),
		},
		Watch: WatchConfig{
			Listen:     DefaultListen,
			Debounce:   watch.DefaultDebounce.String(),
			Heartbeat:  watch.DefaultConfig().HeartbeatInterval.String(),
			MaxLag:     int(watch.DefaultConfig().MaxLag),
			SendBuffer: watch.DefaultConfig().SendBuffer,
			Metrics:    &metrics,
		},
	}
}

// Load loads vtree.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadOrDefault loads vtree.json from dir, or returns the defaults when
// there is none.
func LoadOrDefault(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}

// LoadFile loads and validates a configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ECodeFileNotFound).
				Wrap(err).
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Run 'vtree config init' to write one with the defaults")
		}
		return nil, errors.New(errors.ECodeConfigParse).Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		ve := errors.New(errors.ECodeConfigParse).
			Wrap(err).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
		if syntax, ok := err.(*json.SyntaxError); ok {
			ve.WithOffset(path, syntax.Offset)
		}
		return nil, ve
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config back to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the config to path as indented JSON.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.ECodeConfigInvalid).Wrap(err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.ECodeConfigInvalid).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the file the config was loaded from or saved to.
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) applyDefaults() {
	def := New()
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Diff.Format == "" {
		c.Diff.Format = def.Diff.Format
	}
	if c.Diff.Color == "" {
		c.Diff.Color = def.Diff.Color
	}
	if c.Apply.SlowUpdate == "" {
		c.Apply.SlowUpdate = def.Apply.SlowUpdate
	}
	if c.Watch.Listen == "" {
		c.Watch.Listen = def.Watch.Listen
	}
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = def.Watch.Debounce
	}
	if c.Watch.Heartbeat == "" {
		c.Watch.Heartbeat = def.Watch.Heartbeat
	}
	if c.Watch.MaxLag == 0 {
		c.Watch.MaxLag = def.Watch.MaxLag
	}
	if c.Watch.SendBuffer == 0 {
		c.Watch.SendBuffer = def.Watch.SendBuffer
	}
	if c.Watch.Metrics == nil {
		c.Watch.Metrics = def.Watch.Metrics
	}
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	if !oneOf(c.Log.Level, LogLevels) {
		return invalid("log.level", c.Log.Level, "one of "+strings.Join(LogLevels, ", "))
	}
	if !oneOf(c.Diff.Format, DiffFormats) {
		return invalid("diff.format", c.Diff.Format, "one of "+strings.Join(DiffFormats, ", "))
	}
	if !oneOf(c.Diff.Color, ColorModes) {
		return invalid("diff.color", c.Diff.Color, "one of "+strings.Join(ColorModes, ", "))
	}
	for _, d := range []struct{ field, value string }{
		{"apply.slowUpdate", c.Apply.SlowUpdate},
		{"watch.debounce", c.Watch.Debounce},
		{"watch.heartbeat", c.Watch.Heartbeat},
	} {
		if v, err := time.ParseDuration(d.value); err != nil || v <= 0 {
			return invalid(d.field, d.value, `a positive duration such as "100ms"`)
		}
	}
	if _, port, err := net.SplitHostPort(c.Watch.Listen); err != nil || port == "" {
		return invalid("watch.listen", c.Watch.Listen, `a host:port address such as "localhost:7070"`)
	}
	if c.Watch.MaxLag < 0 {
		return invalid("watch.maxLag", strconv.Itoa(c.Watch.MaxLag), "a positive frame count")
	}
	if c.Watch.SendBuffer < 0 {
		return invalid("watch.sendBuffer", strconv.Itoa(c.Watch.SendBuffer), "a positive frame count")
	}
	return nil
}

func invalid(field, value, want string) error {
	return errors.New(errors.ECodeConfigInvalid).
		WithDetail(field + " is " + strconv.Quote(value) + ", want " + want)
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// LogLevel returns the slog level for Log.Level.
func (c *Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SlowUpdate returns Apply.SlowUpdate as a duration.
func (c *Config) SlowUpdate() time.Duration {
	return duration(c.Apply.SlowUpdate, dom.DefaultSlowUpdate)
}

// Debounce returns Watch.Debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return duration(c.Watch.Debounce, watch.DefaultDebounce)
}

// MetricsEnabled reports whether the watch server exposes /metrics.
func (c *Config) MetricsEnabled() bool {
	return c.Watch.Metrics == nil || *c.Watch.Metrics
}

// DOMOptions returns the updater options the config asks for.
func (c *Config) DOMOptions(logger *slog.Logger, metrics *telemetry.Metrics) []dom.Option {
	opts := []dom.Option{
		dom.WithStrictRegistry(c.Apply.StrictRegistry),
		dom.WithSlowUpdate(c.SlowUpdate()),
	}
	if logger != nil {
		opts = append(opts, dom.WithLogger(logger))
	}
	if metrics != nil {
		opts = append(opts, dom.WithMetrics(metrics))
	}
	return opts
}

// WatchHubConfig returns the hub settings for the watch server.
func (c *Config) WatchHubConfig(logger *slog.Logger, metrics *telemetry.Metrics) *watch.Config {
	cfg := watch.DefaultConfig()
	cfg.HeartbeatInterval = duration(c.Watch.Heartbeat, cfg.HeartbeatInterval)
	if c.Watch.MaxLag > 0 {
		cfg.MaxLag = uint64(c.Watch.MaxLag)
	}
	if c.Watch.SendBuffer > 0 {
		cfg.SendBuffer = c.Watch.SendBuffer
	}
	cfg.Logger = logger
	cfg.Metrics = metrics
	return cfg
}

func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
