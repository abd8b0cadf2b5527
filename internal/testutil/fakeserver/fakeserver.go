// Package fakeserver runs an in-process endpoint speaking the
// 0x04-terminated command protocol with scripted replies.
package fakeserver

import (
	"bufio"
	"crypto/tls"
	"net"
	"strconv"
	"sync"
	"testing"
)

const sentinel byte = 0x04

// Handler maps one received command (terminator stripped) to raw reply
// bytes. A nil reply keeps the connection silent; the bytes are written
// verbatim, so replies must carry their own terminator.
type Handler func(command string) []byte

// Reply terminates text with the protocol sentinel.
func Reply(text string) []byte {
	return append([]byte(text), sentinel)
}

type Server struct {
	ln      net.Listener
	handler Handler

	mu       sync.Mutex
	commands []string
	accepted int
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

func Start(t testing.TB, handler Handler) *Server {
	t.Helper()
	return start(t, handler, nil)
}

func StartTLS(t testing.TB, cfg *tls.Config, handler Handler) *Server {
	t.Helper()
	return start(t, handler, cfg)
}

func start(t testing.TB, handler Handler, cfg *tls.Config) *Server {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if cfg != nil {
		ln = tls.NewListener(ln, cfg)
	}
	s := &Server{ln: ln, handler: handler, conns: make(map[net.Conn]struct{})}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

// Commands returns every command received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

// Accepted is the number of connections accepted.
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

func (s *Server) Close() {
	_ = s.ln.Close()
	s.mu.Lock()
	s.closed = true
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.accepted++
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	reader := bufio.NewReader(conn)
	for {
		raw, err := reader.ReadBytes(sentinel)
		if err != nil {
			return
		}
		cmd := string(raw[:len(raw)-1])
		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		s.mu.Unlock()

		reply := s.handler(cmd)
		if reply == nil {
			continue
		}
		if _, err := conn.Write(reply); err != nil {
			return
		}
	}
}
