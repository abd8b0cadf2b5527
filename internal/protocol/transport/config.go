package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultHost      = "api.vndb.org"
	DefaultPlainPort = 19534
	DefaultTLSPort   = 19535
)

var (
	ErrHostRequired            = errors.New("transport: host required")
	ErrInvalidPort             = errors.New("transport: invalid port")
	ErrTLSInsecureSkipNotAllow = errors.New("transport: insecure skip verify requires tls")
)

// TLSConfig controls verification of the API host certificate.
type TLSConfig struct {
	CAFile             string
	ServerName         string
	InsecureSkipVerify bool
}

// Config describes the fixed endpoint and the per-operation timeouts.
type Config struct {
	Host             string
	PlainPort        int
	TLSPort          int
	UseTLS           bool
	TLS              TLSConfig
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Host:             DefaultHost,
		PlainPort:        DefaultPlainPort,
		TLSPort:          DefaultTLSPort,
		UseTLS:           true,
		ConnectTimeout:   10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     15 * time.Second,
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.Host) == "" {
		c.Host = d.Host
	}
	if c.PlainPort == 0 {
		c.PlainPort = d.PlainPort
	}
	if c.TLSPort == 0 {
		c.TLSPort = d.TLSPort
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return ErrHostRequired
	}
	port := c.PlainPort
	if c.UseTLS {
		port = c.TLSPort
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	if c.TLS.InsecureSkipVerify && !c.UseTLS {
		return ErrTLSInsecureSkipNotAllow
	}
	return nil
}

// Address is host:port for the selected security mode.
func (c Config) Address() string {
	port := c.PlainPort
	if c.UseTLS {
		port = c.TLSPort
	}
	return net.JoinHostPort(strings.TrimSpace(c.Host), strconv.Itoa(port))
}
