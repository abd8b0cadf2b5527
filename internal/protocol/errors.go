package protocol

import "errors"

var (
	ErrConnection         = errors.New("protocol: connection failed")
	ErrAuthentication     = errors.New("protocol: authentication failed")
	ErrFramingTimeout     = errors.New("protocol: frame terminator not seen within read limit")
	ErrIncompleteFrame    = errors.New("protocol: stream closed before frame terminator")
	ErrUnexpectedResponse = errors.New("protocol: unexpected response")
	ErrDecode             = errors.New("protocol: response decode failed")
	ErrClosed             = errors.New("protocol: transport closed")
)
