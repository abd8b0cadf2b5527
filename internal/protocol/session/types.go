package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	replyOK     = "ok"
	kindResults = "results"
	kindError   = "error"
	verbLogin   = "login"
)

// State is the connection lifecycle of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// LoginRequest is the payload of the login command.
type LoginRequest struct {
	Protocol  int    `json:"protocol"`
	Client    string `json:"client"`
	ClientVer string `json:"clientver"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
}

// ResultSet is the body of a "results" response. When More is true, Items
// is one page and Num counts that page only.
type ResultSet[T any] struct {
	Items []T  `json:"items"`
	More  bool `json:"more"`
	Num   int  `json:"num"`
}

// ServerError is the body of an "error" response.
type ServerError struct {
	ID  string `json:"id"`
	Msg string `json:"msg"`
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error id=%s msg=%q", e.ID, e.Msg)
}

// parseServerError decodes "error {...}" replies.
func parseServerError(reply string) (*ServerError, bool) {
	kind, body := splitKind(reply)
	if kind != kindError {
		return nil, false
	}
	var se ServerError
	if err := json.Unmarshal([]byte(body), &se); err != nil {
		return nil, false
	}
	return &se, true
}

// splitKind separates the leading kind word from its body.
func splitKind(reply string) (string, string) {
	kind, body, _ := strings.Cut(reply, " ")
	return kind, strings.TrimSpace(body)
}
