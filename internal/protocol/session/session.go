package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/danmuck/vndbctl/internal/observability"
	"github.com/danmuck/vndbctl/internal/protocol"
	"github.com/danmuck/vndbctl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

var ErrNotAuthenticated = errors.New("session: not authenticated")

// Conn is the transport surface a Session drives.
type Conn interface {
	Connect(ctx context.Context) error
	Write(ctx context.Context, b []byte) error
	ReadChunk(ctx context.Context, buf []byte) (int, error)
	Close() error
	// WillBeSecure reports whether the stream is, or will be, TLS protected.
	WillBeSecure() bool
}

type Session struct {
	cfg  Config
	conn Conn

	mu    sync.Mutex
	state State
}

func New(cfg Config, conn Conn) *Session {
	return &Session{
		cfg:   cfg.WithDefaults(),
		conn:  conn,
		state: StateDisconnected,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Login connects if needed and performs the login handshake. Credentials
// are refused before any I/O unless the transport is TLS.
func (s *Session) Login(ctx context.Context, creds *Credentials) error {
	if err := ValidateClientName(s.cfg.ClientName); err != nil {
		return err
	}
	if err := ValidateCredentials(creds, s.conn.WillBeSecure()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAuthenticated {
		return nil
	}
	if s.state == StateDisconnected {
		if err := s.conn.Connect(ctx); err != nil {
			return err
		}
		s.state = StateConnected
	}

	req := LoginRequest{
		Protocol:  ProtocolVersion,
		Client:    s.cfg.ClientName,
		ClientVer: s.cfg.ClientVersion,
	}
	if creds != nil {
		req.Username = strings.TrimSpace(creds.Username)
		req.Password = creds.Password
	}
	reply, err := s.roundTrip(ctx, verbLogin, req)
	if err != nil {
		return err
	}
	if reply != replyOK {
		s.fail()
		if se, ok := parseServerError(reply); ok {
			return fmt.Errorf("%w: login rejected: %w", protocol.ErrAuthentication, se)
		}
		return fmt.Errorf("%w: login rejected: %q", protocol.ErrAuthentication, truncate(reply, 128))
	}
	s.state = StateAuthenticated
	log.Info().Msgf("session.Login client=%q user=%t", req.Client, req.Username != "")
	return nil
}

// Send issues one raw command on an authenticated session and returns the
// decoded response text.
func (s *Session) Send(ctx context.Context, verb string, payload any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated {
		return "", fmt.Errorf("%w: state=%s", ErrNotAuthenticated, s.state)
	}
	return s.roundTrip(ctx, verb, payload)
}

// Fetch runs q and returns the JSON body of its "results" response.
func (s *Session) Fetch(ctx context.Context, q Query) (json.RawMessage, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	reply, err := s.Send(ctx, q.Command(), q.payload())
	if err != nil {
		return nil, err
	}
	return resultsBody(reply)
}

// FetchResults runs q and decodes the body into a ResultSet of T.
func FetchResults[T any](ctx context.Context, s *Session, q Query) (ResultSet[T], error) {
	body, err := s.Fetch(ctx, q)
	if err != nil {
		return ResultSet[T]{}, err
	}
	return DecodeResults[T](body)
}

// DecodeResults decodes a results body.
func DecodeResults[T any](body []byte) (ResultSet[T], error) {
	var rs ResultSet[T]
	if err := json.Unmarshal(body, &rs); err != nil {
		return ResultSet[T]{}, fmt.Errorf("%w: %w", protocol.ErrDecode, err)
	}
	if rs.Items == nil {
		rs.Items = []T{}
	}
	return rs, nil
}

// Close releases the transport. The session returns to disconnected.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateDisconnected
	return s.conn.Close()
}

// roundTrip writes one frame and reads one frame. Caller holds s.mu.
func (s *Session) roundTrip(ctx context.Context, verb string, payload any) (string, error) {
	start := time.Now()
	label := metricVerb(verb)
	reply, err := s.exchange(ctx, verb, payload)
	observability.RecordCommand(label, time.Since(start), err)
	if err != nil {
		log.Warn().Msgf("session.roundTrip verb=%q err=%v", label, err)
		s.fail()
		return "", err
	}
	log.Debug().Msgf("session.roundTrip verb=%q bytes=%d dur=%s", label, len(reply), time.Since(start))
	return reply, nil
}

func (s *Session) exchange(ctx context.Context, verb string, payload any) (string, error) {
	buf, err := frame.Encode(verb, payload)
	if err != nil {
		return "", err
	}
	if s.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CommandTimeout)
		defer cancel()
	}
	if err := s.conn.Write(ctx, buf); err != nil {
		return "", err
	}
	return s.cfg.decoder().Decode(ctx, s.conn)
}

// fail tears the transport down; a faulted stream may hold a partial frame.
func (s *Session) fail() {
	_ = s.conn.Close()
	s.state = StateDisconnected
}

func resultsBody(reply string) (json.RawMessage, error) {
	rest, ok := strings.CutPrefix(reply, kindResults)
	if !ok || (rest != "" && !unicode.IsSpace(rune(rest[0]))) {
		if se, isErr := parseServerError(reply); isErr {
			return nil, fmt.Errorf("%w: %w", protocol.ErrUnexpectedResponse, se)
		}
		return nil, fmt.Errorf("%w: %q", protocol.ErrUnexpectedResponse, truncate(reply, 128))
	}
	body := strings.TrimSpace(rest)
	if body == "" {
		return nil, fmt.Errorf("%w: empty results body", protocol.ErrDecode)
	}
	return json.RawMessage(body), nil
}

func metricVerb(verb string) string {
	fields := strings.Fields(verb)
	if len(fields) == 0 {
		return "unknown"
	}
	return fields[0]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
