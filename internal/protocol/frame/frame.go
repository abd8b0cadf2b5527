package frame

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/danmuck/vndbctl/internal/observability"
	"github.com/danmuck/vndbctl/internal/protocol"
)

const (
	// Sentinel terminates every frame in both directions (ASCII EOT).
	Sentinel byte = 0x04

	DefaultMaxReads  = 10
	DefaultChunkSize = 1024
)

var ErrSentinelInPayload = errors.New("frame: payload contains terminator byte")

// ChunkReader is the raw read side of a transport.
type ChunkReader interface {
	ReadChunk(ctx context.Context, buf []byte) (int, error)
}

// Encode builds "<verb>[ <json>]" followed by the sentinel. A nil payload
// produces the bare verb.
func Encode(verb string, payload any) ([]byte, error) {
	verb = strings.TrimSpace(verb)
	if verb == "" {
		return nil, fmt.Errorf("frame: empty verb")
	}
	var buf bytes.Buffer
	buf.WriteString(verb)
	if payload != nil {
		body, err := Canonical(payload)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(' ')
		buf.Write(body)
	}
	if bytes.IndexByte(buf.Bytes(), Sentinel) >= 0 {
		return nil, ErrSentinelInPayload
	}
	buf.WriteByte(Sentinel)
	return buf.Bytes(), nil
}

// Canonical is the text form of a payload on the wire: compact JSON without
// HTML escaping.
func Canonical(payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("frame: encode payload: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decoder scans chunks for the sentinel with a bounded number of reads.
type Decoder struct {
	MaxReads  int
	ChunkSize int
}

func DefaultDecoder() Decoder {
	return Decoder{
		MaxReads:  DefaultMaxReads,
		ChunkSize: DefaultChunkSize,
	}
}

// Decode reads with the default decoder.
func Decode(ctx context.Context, r ChunkReader) (string, error) {
	return DefaultDecoder().Decode(ctx, r)
}

// Decode returns the text accumulated before the first sentinel. It performs
// at most MaxReads chunk reads; anything after the sentinel in the final
// chunk is dropped. A read that times out before the sentinel arrives is a
// framing timeout like running out of reads.
func (d Decoder) Decode(ctx context.Context, r ChunkReader) (string, error) {
	d = d.withDefaults()
	buf := make([]byte, d.ChunkSize)
	var acc bytes.Buffer
	for reads := 0; reads < d.MaxReads; reads++ {
		n, err := r.ReadChunk(ctx, buf)
		observability.RecordChunkRead()
		if n > 0 {
			chunk := buf[:n]
			if i := bytes.IndexByte(chunk, Sentinel); i >= 0 {
				acc.Write(chunk[:i])
				return acc.String(), nil
			}
			acc.Write(chunk)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("%w: read %d bytes", protocol.ErrIncompleteFrame, acc.Len())
			}
			if isTimeout(err) {
				return "", fmt.Errorf("%w: reads=%d bytes=%d: %w", protocol.ErrFramingTimeout, reads+1, acc.Len(), err)
			}
			return "", err
		}
		if n == 0 {
			return "", fmt.Errorf("%w: read %d bytes", protocol.ErrIncompleteFrame, acc.Len())
		}
	}
	return "", fmt.Errorf("%w: reads=%d bytes=%d", protocol.ErrFramingTimeout, d.MaxReads, acc.Len())
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (d Decoder) withDefaults() Decoder {
	if d.MaxReads <= 0 {
		d.MaxReads = DefaultMaxReads
	}
	if d.ChunkSize <= 0 {
		d.ChunkSize = DefaultChunkSize
	}
	return d
}
