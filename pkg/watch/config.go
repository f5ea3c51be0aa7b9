package watch

import (
	"log/slog"
	"time"

	"github.com/vango-dev/vtree/pkg/telemetry"
)

// Config configures a Hub.
type Config struct {
	// ReadTimeout is the maximum time to wait for a message from a follower.
	// Heartbeat pongs reset it.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between heartbeat pings.
	// Default: 20 seconds.
	HeartbeatInterval time.Duration

	// SendBuffer is the number of frames queued per follower. A follower whose
	// queue overflows is resynced with a snapshot.
	// Default: 64.
	SendBuffer int

	// MaxLag is how many frames an acknowledging follower may trail before it
	// is resynced.
	// Default: 32.
	MaxLag uint64

	// MaxMessageSize limits frames read from followers.
	// Default: 64KB.
	MaxMessageSize int64

	// CheckOrigin validates the websocket Origin header. nil allows all.
	CheckOrigin func(origin string) bool

	// Logger receives hub events. Default: slog.Default().
	Logger *slog.Logger

	// Metrics records frames and follower counts. nil disables metrics.
	Metrics *telemetry.Metrics
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 20 * time.Second,
		SendBuffer:        64,
		MaxLag:            32,
		MaxMessageSize:    64 * 1024,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	if c == nil {
		c = def
	}
	out := *c
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = def.ReadTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = def.WriteTimeout
	}
	if out.HeartbeatInterval <= 0 {
		out.HeartbeatInterval = def.HeartbeatInterval
	}
	if out.SendBuffer <= 0 {
		out.SendBuffer = def.SendBuffer
	}
	if out.MaxLag == 0 {
		out.MaxLag = def.MaxLag
	}
	if out.MaxMessageSize <= 0 {
		out.MaxMessageSize = def.MaxMessageSize
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return &out
}
