package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/vndbctl/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Transport owns one byte stream to the API host. It is not safe for
// concurrent Read/Write; Close may be called from any goroutine to abort a
// blocked call.
type Transport struct {
	cfg Config

	mu     sync.Mutex
	conn   net.Conn
	secure bool
}

func New(cfg Config) *Transport {
	return &Transport{cfg: cfg.WithDefaults()}
}

func (t *Transport) Config() Config {
	return t.cfg
}

// Connect dials the host once; calling it on an open transport is a no-op.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return nil
	}
	if err := t.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", protocol.ErrConnection, err)
	}

	addr := t.cfg.Address()
	dialer := net.Dialer{Timeout: t.cfg.ConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		log.Warn().Msgf("transport.Connect dial addr=%q err=%v", addr, err)
		return fmt.Errorf("%w: dial %s: %w", protocol.ErrConnection, addr, err)
	}
	if !t.cfg.UseTLS {
		t.conn = rawConn
		log.Debug().Msgf("transport.Connect addr=%q tls=false", addr)
		return nil
	}

	tlsCfg, err := t.clientTLSConfig()
	if err != nil {
		_ = rawConn.Close()
		return fmt.Errorf("%w: %w", protocol.ErrAuthentication, err)
	}
	conn := tls.Client(rawConn, tlsCfg)
	handshakeCtx, cancel := context.WithTimeout(ctx, t.cfg.HandshakeTimeout)
	defer cancel()
	if err := conn.HandshakeContext(handshakeCtx); err != nil {
		_ = rawConn.Close()
		log.Warn().Msgf("transport.Connect handshake addr=%q err=%v", addr, err)
		return fmt.Errorf("%w: tls handshake with %s: %w", protocol.ErrAuthentication, tlsCfg.ServerName, err)
	}
	t.conn = conn
	t.secure = true
	log.Debug().Msgf("transport.Connect addr=%q tls=true server_name=%q", addr, tlsCfg.ServerName)
	return nil
}

func (t *Transport) clientTLSConfig() (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: t.cfg.TLS.InsecureSkipVerify,
	}

	serverName := strings.TrimSpace(t.cfg.TLS.ServerName)
	if serverName == "" {
		serverName = strings.TrimSpace(t.cfg.Host)
	}
	cfg.ServerName = serverName

	if caPath := strings.TrimSpace(t.cfg.TLS.CAFile); caPath != "" {
		caPEM, err := os.ReadFile(caPath)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(caPEM); !ok {
			return nil, fmt.Errorf("transport: parse tls ca bundle: %s", caPath)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

// Write sends b in full.
func (t *Transport) Write(ctx context.Context, b []byte) error {
	conn, err := t.current()
	if err != nil {
		return err
	}
	if err := setDeadline(ctx, conn.SetWriteDeadline, t.cfg.WriteTimeout); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetWriteDeadline(time.Unix(1, 0)) })
	defer stop()
	if _, err := conn.Write(b); err != nil {
		return t.ioError(ctx, "write", err)
	}
	return nil
}

// ReadChunk performs one blocking read into buf.
func (t *Transport) ReadChunk(ctx context.Context, buf []byte) (int, error) {
	conn, err := t.current()
	if err != nil {
		return 0, err
	}
	if err := setDeadline(ctx, conn.SetReadDeadline, t.cfg.ReadTimeout); err != nil {
		return 0, err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Unix(1, 0)) })
	defer stop()
	n, err := conn.Read(buf)
	if err != nil {
		return n, t.ioError(ctx, "read", err)
	}
	return n, nil
}

// Close releases the stream and the TLS layer. Safe to call repeatedly.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.secure = false
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Secure reports whether the open stream runs over TLS.
func (t *Transport) Secure() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.secure
}

// WillBeSecure reports whether Connect will (or did) negotiate TLS.
func (t *Transport) WillBeSecure() bool {
	return t.cfg.UseTLS
}

func (t *Transport) current() (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil, protocol.ErrClosed
	}
	return t.conn, nil
}

func (t *Transport) ioError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("transport: %s: %w", op, ctxErr)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
			return fmt.Errorf("transport: %s: %w", op, context.DeadlineExceeded)
		}
	}
	if errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("transport: %s: %w", op, protocol.ErrClosed)
	}
	return fmt.Errorf("transport: %s: %w", op, err)
}

func setDeadline(ctx context.Context, set func(time.Time) error, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return set(deadline)
}
