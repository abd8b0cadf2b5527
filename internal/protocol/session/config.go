package session

import (
	"time"

	"github.com/danmuck/vndbctl/internal/protocol/frame"
)

const (
	DefaultClientName    = "danmuck-vndbctl"
	DefaultClientVersion = "1.0.0"
	ProtocolVersion      = 1
)

// Config defines client identity and per-command bounds.
type Config struct {
	ClientName    string
	ClientVersion string
	// MaxChunkReads bounds the terminator scan of one response.
	MaxChunkReads int
	ChunkSize     int
	// CommandTimeout is a wall-clock bound on one request/response pair.
	// Zero disables it; the chunk read bound still applies.
	CommandTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ClientName:     DefaultClientName,
		ClientVersion:  DefaultClientVersion,
		MaxChunkReads:  frame.DefaultMaxReads,
		ChunkSize:      frame.DefaultChunkSize,
		CommandTimeout: 30 * time.Second,
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ClientName == "" {
		c.ClientName = d.ClientName
	}
	if c.ClientVersion == "" {
		c.ClientVersion = d.ClientVersion
	}
	if c.MaxChunkReads <= 0 {
		c.MaxChunkReads = d.MaxChunkReads
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	return c
}

func (c Config) decoder() frame.Decoder {
	return frame.Decoder{MaxReads: c.MaxChunkReads, ChunkSize: c.ChunkSize}
}
