package frame

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/danmuck/vndbctl/internal/protocol"
	"github.com/danmuck/vndbctl/internal/testutil/testlog"
)

// scriptedReader serves one queued chunk per ReadChunk call.
type scriptedReader struct {
	chunks [][]byte
	reads  int
}

func (r *scriptedReader) ReadChunk(_ context.Context, buf []byte) (int, error) {
	r.reads++
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(buf, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

// stalledReader never produces the terminator.
type stalledReader struct {
	reads int
}

func (r *stalledReader) ReadChunk(_ context.Context, buf []byte) (int, error) {
	r.reads++
	return copy(buf, "partial"), nil
}

type loginPayload struct {
	Protocol  int    `json:"protocol"`
	Client    string `json:"client"`
	ClientVer string `json:"clientver"`
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	payloads := []any{
		loginPayload{Protocol: 1, Client: "vndbctl", ClientVer: "1.0.0"},
		map[string]any{"page": 2, "results": 25},
		[]int{1, 2, 3},
		"a <b> & c",
	}
	for _, p := range payloads {
		encoded, err := Encode("login", p)
		if err != nil {
			t.Fatalf("encode %#v: %v", p, err)
		}
		canonical, err := Canonical(p)
		if err != nil {
			t.Fatalf("canonical %#v: %v", p, err)
		}
		got, err := Decode(context.Background(), &scriptedReader{chunks: [][]byte{encoded}})
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if want := "login " + string(canonical); got != want {
			t.Fatalf("round trip mismatch: got=%q want=%q", got, want)
		}
	}
}

func TestEncodeBareVerb(t *testing.T) {
	testlog.Start(t)
	got, err := Encode("dbstats", nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(got, []byte("dbstats\x04")) {
		t.Fatalf("unexpected frame: %q", got)
	}
}

func TestEncodeRejectsSentinelInPayload(t *testing.T) {
	testlog.Start(t)
	if _, err := Encode("get vn basic (title = \"\x04\")", nil); !errors.Is(err, ErrSentinelInPayload) {
		t.Fatalf("expected ErrSentinelInPayload, got %v", err)
	}
	if _, err := Encode("  ", nil); err == nil {
		t.Fatalf("expected empty verb error")
	}
}

func TestDecodeAcrossChunks(t *testing.T) {
	testlog.Start(t)
	r := &scriptedReader{chunks: [][]byte{[]byte("res"), []byte("ults {}"), []byte("\x04trailing")}}
	got, err := Decoder{MaxReads: 5, ChunkSize: 4}.Decode(context.Background(), r)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != "results {}" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestDecodeStopsAfterMaxReads(t *testing.T) {
	testlog.Start(t)
	r := &stalledReader{}
	_, err := Decode(context.Background(), r)
	if !errors.Is(err, protocol.ErrFramingTimeout) {
		t.Fatalf("expected ErrFramingTimeout, got %v", err)
	}
	if r.reads != DefaultMaxReads {
		t.Fatalf("expected exactly %d reads, got %d", DefaultMaxReads, r.reads)
	}
}

func TestDecodeClosedStreamIsIncomplete(t *testing.T) {
	testlog.Start(t)
	r := &scriptedReader{chunks: [][]byte{[]byte("results {\"items\"")}}
	_, err := Decode(context.Background(), r)
	if !errors.Is(err, protocol.ErrIncompleteFrame) {
		t.Fatalf("expected ErrIncompleteFrame, got %v", err)
	}
	if r.reads != 2 {
		t.Fatalf("expected decode to stop at first empty read, got %d reads", r.reads)
	}
}

// timeoutReader sends one partial chunk and then fails every read with err.
type timeoutReader struct {
	err   error
	reads int
}

func (r *timeoutReader) ReadChunk(_ context.Context, buf []byte) (int, error) {
	r.reads++
	if r.reads == 1 {
		return copy(buf, `results {"items":[`), nil
	}
	return 0, r.err
}

func TestDecodeReadTimeoutIsFramingTimeout(t *testing.T) {
	testlog.Start(t)
	for _, cause := range []error{os.ErrDeadlineExceeded, context.DeadlineExceeded} {
		r := &timeoutReader{err: cause}
		_, err := Decode(context.Background(), r)
		if !errors.Is(err, protocol.ErrFramingTimeout) {
			t.Fatalf("cause %v: expected ErrFramingTimeout, got %v", cause, err)
		}
		if !errors.Is(err, cause) {
			t.Fatalf("cause %v: expected cause to stay wrapped, got %v", cause, err)
		}
		if r.reads != 2 {
			t.Fatalf("cause %v: expected 2 reads, got %d", cause, r.reads)
		}
	}
}

func TestDecodeCancelIsNotFramingTimeout(t *testing.T) {
	testlog.Start(t)
	_, err := Decode(context.Background(), &timeoutReader{err: context.Canceled})
	if errors.Is(err, protocol.ErrFramingTimeout) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected plain cancellation, got %v", err)
	}
}
