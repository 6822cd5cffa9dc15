package feed

import (
	"errors"
	"fmt"
	"time"
)

// Default configuration values.
const (
	// DefaultKeepaliveTime is the default interval for keepalive pings.
	DefaultKeepaliveTime = 10 * time.Second

	// DefaultKeepaliveTimeout is the default timeout for keepalive responses.
	DefaultKeepaliveTimeout = 5 * time.Second

	// DefaultReconnectMinDelay is the minimum delay before reconnecting.
	DefaultReconnectMinDelay = 500 * time.Millisecond

	// DefaultReconnectMaxDelay is the maximum delay before reconnecting.
	DefaultReconnectMaxDelay = 30 * time.Second

	// DefaultFrameChannelSize is the default buffer size for the frame channel.
	DefaultFrameChannelSize = 64

	// DefaultMaxMessageSize is the default maximum gRPC message size. A frame
	// of a large grid with every cell occupied stays well below it.
	DefaultMaxMessageSize = 16 * 1024 * 1024
)

// Configuration errors.
var (
	ErrNoEndpoint    = errors.New("feed endpoint is required")
	ErrInvalidConfig = errors.New("invalid feed configuration")
)

// Config holds the configuration for the feed client.
type Config struct {
	// Endpoint is the server address (e.g., "127.0.0.1:9090").
	// Required.
	Endpoint string

	// Every requests only epochs divisible by Every.
	Every int64

	// Keepalive configuration.
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration

	// Reconnection configuration.
	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration
	MaxReconnects     int // 0 = unlimited

	// FrameChannelSize is the buffer of the Frames channel.
	FrameChannelSize int

	// MaxMessageSize is the maximum gRPC message size in bytes.
	MaxMessageSize int

	// OnConnect is called when the stream is established (optional).
	OnConnect func()

	// OnDisconnect is called when the stream is lost (optional).
	OnDisconnect func(error)

	// OnReconnect is called when reconnection succeeds (optional).
	OnReconnect func(attempt int)
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		KeepaliveTime:     DefaultKeepaliveTime,
		KeepaliveTimeout:  DefaultKeepaliveTimeout,
		ReconnectMinDelay: DefaultReconnectMinDelay,
		ReconnectMaxDelay: DefaultReconnectMaxDelay,
		FrameChannelSize:  DefaultFrameChannelSize,
		MaxMessageSize:    DefaultMaxMessageSize,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrNoEndpoint
	}

	if c.Every < 0 {
		return fmt.Errorf("%w: every must not be negative", ErrInvalidConfig)
	}

	if c.FrameChannelSize <= 0 {
		return fmt.Errorf("%w: frame channel size must be positive", ErrInvalidConfig)
	}

	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: max message size must be positive", ErrInvalidConfig)
	}

	if c.KeepaliveTime <= 0 || c.KeepaliveTimeout <= 0 {
		return fmt.Errorf("%w: keepalive durations must be positive", ErrInvalidConfig)
	}

	if c.ReconnectMinDelay <= 0 {
		return fmt.Errorf("%w: reconnect min delay must be positive", ErrInvalidConfig)
	}

	if c.ReconnectMaxDelay < c.ReconnectMinDelay {
		return fmt.Errorf("%w: reconnect max delay must be >= min delay", ErrInvalidConfig)
	}

	return nil
}

// WithDefaults returns a new config with default values applied for any
// zero values in the original config.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()

	if c.KeepaliveTime == 0 {
		c.KeepaliveTime = defaults.KeepaliveTime
	}
	if c.KeepaliveTimeout == 0 {
		c.KeepaliveTimeout = defaults.KeepaliveTimeout
	}
	if c.ReconnectMinDelay == 0 {
		c.ReconnectMinDelay = defaults.ReconnectMinDelay
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = defaults.ReconnectMaxDelay
	}
	if c.FrameChannelSize == 0 {
		c.FrameChannelSize = defaults.FrameChannelSize
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}

	return c
}
