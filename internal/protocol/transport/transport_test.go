package transport

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/vndbctl/internal/protocol"
	"github.com/danmuck/vndbctl/internal/testutil/fakeserver"
	"github.com/danmuck/vndbctl/internal/testutil/testlog"
	"github.com/danmuck/vndbctl/internal/testutil/tlstest"
)

func echoHandler(cmd string) []byte {
	return fakeserver.Reply("echo " + cmd)
}

func plainConfig(srv *fakeserver.Server) Config {
	cfg := DefaultConfig()
	cfg.Host = srv.Host()
	cfg.PlainPort = srv.Port()
	cfg.UseTLS = false
	cfg.ConnectTimeout = time.Second
	cfg.ReadTimeout = time.Second
	return cfg
}

func TestConnectIsIdempotent(t *testing.T) {
	testlog.Start(t)
	srv := fakeserver.Start(t, echoHandler)
	tr := New(plainConfig(srv))
	defer tr.Close()

	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	if err := tr.Write(ctx, []byte("ping\x04")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 64)
	n, err := tr.ReadChunk(ctx, buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != "echo ping\x04" {
		t.Fatalf("unexpected reply: %q", got)
	}
	if srv.Accepted() != 1 {
		t.Fatalf("expected one dial, got %d", srv.Accepted())
	}
	if tr.Secure() {
		t.Fatalf("plain transport reported secure")
	}
}

func TestConnectRefusedIsConnectionError(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.PlainPort = port
	cfg.UseTLS = false
	cfg.ConnectTimeout = 500 * time.Millisecond
	tr := New(cfg)
	if err := tr.Connect(context.Background()); !errors.Is(err, protocol.ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
	if tr.Connected() {
		t.Fatalf("transport must stay disconnected")
	}
}

func TestConnectTLSVerifiesServer(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	ca := tlstest.NewAuthority(t, dir, "vndbctl test ca")
	srv := fakeserver.StartTLS(t, ca.ServerConfig(t, "api.test", "api.test"), echoHandler)

	cfg := DefaultConfig()
	cfg.Host = srv.Host()
	cfg.TLSPort = srv.Port()
	cfg.TLS.CAFile = ca.CAFile()
	cfg.TLS.ServerName = "api.test"
	tr := New(cfg)
	defer tr.Close()

	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("tls connect: %v", err)
	}
	if !tr.Secure() {
		t.Fatalf("expected secure transport")
	}
	if err := tr.Write(ctx, []byte("dbstats\x04")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 64)
	n, err := tr.ReadChunk(ctx, buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(buf[:n]), "echo dbstats") {
		t.Fatalf("unexpected reply: %q", buf[:n])
	}
}

func TestConnectTLSUnknownAuthorityIsAuthenticationError(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	serverCA := tlstest.NewAuthority(t, t.TempDir(), "server ca")
	clientCA := tlstest.NewAuthority(t, dir, "other ca")
	srv := fakeserver.StartTLS(t, serverCA.ServerConfig(t, "api.test", "api.test"), echoHandler)

	cfg := DefaultConfig()
	cfg.Host = srv.Host()
	cfg.TLSPort = srv.Port()
	cfg.TLS.CAFile = clientCA.CAFile()
	cfg.TLS.ServerName = "api.test"
	tr := New(cfg)
	err := tr.Connect(context.Background())
	if !errors.Is(err, protocol.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if tr.Connected() {
		t.Fatalf("transport must stay disconnected after failed handshake")
	}
}

func TestCloseIsIdempotentAndStopsIO(t *testing.T) {
	testlog.Start(t)
	srv := fakeserver.Start(t, echoHandler)
	tr := New(plainConfig(srv))
	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := tr.ReadChunk(ctx, make([]byte, 8)); !errors.Is(err, protocol.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestReadChunkHonorsContextCancel(t *testing.T) {
	testlog.Start(t)
	srv := fakeserver.Start(t, func(string) []byte { return nil })
	tr := New(plainConfig(srv))
	defer tr.Close()
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := tr.ReadChunk(ctx, make([]byte, 8))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.Host = " "
	if err := cfg.Validate(); !errors.Is(err, ErrHostRequired) {
		t.Fatalf("expected ErrHostRequired, got %v", err)
	}
	cfg = DefaultConfig()
	cfg.UseTLS = false
	cfg.TLS.InsecureSkipVerify = true
	if err := cfg.Validate(); !errors.Is(err, ErrTLSInsecureSkipNotAllow) {
		t.Fatalf("expected ErrTLSInsecureSkipNotAllow, got %v", err)
	}
	cfg = DefaultConfig()
	if got := cfg.Address(); got != "api.vndb.org:19535" {
		t.Fatalf("unexpected tls address: %q", got)
	}
	cfg.UseTLS = false
	if got := cfg.Address(); got != "api.vndb.org:19534" {
		t.Fatalf("unexpected plain address: %q", got)
	}
}
