package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/edgerelay/internal/testutil/testlog"
)

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return len(p) - 1, nil
}

func TestReadWriteFrameRoundTrip(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte("chunk-1"), DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if err := WriteFrame(&buf, []byte("chunk-2"), DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	work := make([]byte, 64)
	for _, want := range []string{"chunk-1", "chunk-2"} {
		got, err := ReadFrame(&buf, work, DefaultLimits())
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if int(got.Length) != len(want) || string(got.Payload) != want {
			t.Fatalf("frame mismatch: got=%q len=%d want=%q", got.Payload, got.Length, want)
		}
	}
	if _, err := ReadFrame(&buf, work, DefaultLimits()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at frame boundary, got %v", err)
	}
}

func TestReadFrameReusesWorkingBuffer(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte("abc"), DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	work := make([]byte, 8)
	got, err := ReadFrame(&buf, work, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if &got.Payload[0] != &work[0] {
		t.Fatalf("payload should alias the working buffer")
	}
}

func TestReadFrameZeroLength(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, nil, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if buf.Len() != HeaderLen {
		t.Fatalf("zero-length frame should be header only, got %d bytes", buf.Len())
	}
	got, err := ReadFrame(&buf, nil, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if got.Length != 0 || len(got.Payload) != 0 {
		t.Fatalf("expected empty frame, got %+v", got)
	}
}

func TestReadFrameShortHeader(t *testing.T) {
	testlog.Start(t)
	for n := 1; n < HeaderLen; n++ {
		_, err := ReadFrame(bytes.NewReader(make([]byte, n)), nil, DefaultLimits())
		if !errors.Is(err, ErrShortHeader) {
			t.Fatalf("header bytes=%d: expected ErrShortHeader, got %v", n, err)
		}
	}
}

func TestReadFrameShortPayload(t *testing.T) {
	testlog.Start(t)
	wire := append(EncodeHeader(10), []byte("only5")...)
	_, err := ReadFrame(bytes.NewReader(wire), make([]byte, 16), DefaultLimits())
	if !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}

	_, err = ReadFrame(bytes.NewReader(EncodeHeader(3)), nil, DefaultLimits())
	if !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload for missing payload, got %v", err)
	}
}

func TestReadFrameRejectsOutOfRangeLength(t *testing.T) {
	testlog.Start(t)
	limits := Limits{MaxPayloadBytes: 16}

	_, err := ReadFrame(bytes.NewReader(EncodeHeader(17)), nil, limits)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}

	_, err = ReadFrame(bytes.NewReader(EncodeHeader(-1)), nil, limits)
	if !errors.Is(err, ErrNegativeLength) {
		t.Fatalf("expected ErrNegativeLength, got %v", err)
	}
}

func TestWriteFrameLimitsAndShortWrite(t *testing.T) {
	testlog.Start(t)
	if err := WriteFrame(io.Discard, make([]byte, 17), Limits{MaxPayloadBytes: 16}); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if err := WriteFrame(shortWriter{}, []byte("payload"), DefaultLimits()); !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("expected io.ErrShortWrite, got %v", err)
	}
}

func TestHeaderNativeByteOrder(t *testing.T) {
	testlog.Start(t)
	b := EncodeHeader(0x01020304)
	got, err := DecodeHeader(b)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if got != 0x01020304 {
		t.Fatalf("header round trip: got=%#x", got)
	}
	if _, err := DecodeHeader(b[:3]); err == nil {
		t.Fatalf("expected error for 3-byte header")
	}
}
