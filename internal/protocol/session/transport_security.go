package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCredentialsRequireTLS = errors.New("session: credentials require a tls connection")
	ErrUsernameRequired      = errors.New("session: username required with password")
	ErrPasswordRequired      = errors.New("session: password required with username")
	ErrInvalidClientName     = errors.New("session: invalid client name")
)

// Credentials identify a VNDB user. They are only sent over TLS.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username:%q Password:<redacted>}", c.Username)
}

// ValidateCredentials rejects credentials that would travel in clear text.
func ValidateCredentials(creds *Credentials, secure bool) error {
	if creds == nil {
		return nil
	}
	user := strings.TrimSpace(creds.Username)
	if user == "" && creds.Password == "" {
		return nil
	}
	if !secure {
		return ErrCredentialsRequireTLS
	}
	if user == "" {
		return ErrUsernameRequired
	}
	if creds.Password == "" {
		return ErrPasswordRequired
	}
	return nil
}

// ValidateClientName enforces the API's client identifier rules: 3 to 50
// characters of ASCII alphanumerics, space, underscore and hyphen.
func ValidateClientName(name string) error {
	if len(name) < 3 || len(name) > 50 {
		return fmt.Errorf("%w: length %d", ErrInvalidClientName, len(name))
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == ' ', r == '_', r == '-':
		default:
			return fmt.Errorf("%w: character %q", ErrInvalidClientName, r)
		}
	}
	return nil
}
