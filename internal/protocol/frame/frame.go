package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	HeaderLen = 4

	// DefaultChunkSize is both the sender's read granularity and the largest
	// payload a receiver accepts.
	DefaultChunkSize = 5 * 1024 * 1024
)

var (
	ErrShortHeader     = errors.New("frame: short length header")
	ErrNegativeLength  = errors.New("frame: negative payload length")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrShortPayload    = errors.New("frame: short payload")
)

// Frame is one length-prefixed unit of payload.
type Frame struct {
	Length  int32
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: DefaultChunkSize}
}

// ReadFrame reads one frame. A connection that ends cleanly before any header
// byte yields io.EOF. The payload lands in buf when it fits.
func ReadFrame(r io.Reader, buf []byte, limits Limits) (Frame, error) {
	var hdr [HeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	length, err := DecodeHeader(hdr[:])
	if err != nil {
		return Frame{}, err
	}
	if length < 0 {
		return Frame{}, fmt.Errorf("%w: %d", ErrNegativeLength, length)
	}
	if int(length) > limits.MaxPayloadBytes {
		return Frame{}, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, length, limits.MaxPayloadBytes)
	}

	var payload []byte
	if int(length) <= len(buf) {
		payload = buf[:length]
	} else {
		payload = make([]byte, length)
	}
	if length > 0 {
		n, err := io.ReadFull(r, payload)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Frame{}, fmt.Errorf("%w: got %d of %d bytes", ErrShortPayload, n, length)
			}
			return Frame{}, err
		}
	}

	return Frame{Length: length, Payload: payload}, nil
}

// WriteFrame writes the header and payload as two full writes.
func WriteFrame(w io.Writer, payload []byte, limits Limits) error {
	if len(payload) > limits.MaxPayloadBytes {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), limits.MaxPayloadBytes)
	}

	if err := writeFull(w, EncodeHeader(int32(len(payload)))); err != nil {
		return err
	}
	if len(payload) > 0 {
		if err := writeFull(w, payload); err != nil {
			return err
		}
	}
	return nil
}

func writeFull(w io.Writer, b []byte) error {
	n, err := w.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	return nil
}

func EncodeHeader(length int32) []byte {
	buf := make([]byte, HeaderLen)
	binary.NativeEndian.PutUint32(buf, uint32(length))
	return buf
}

func DecodeHeader(b []byte) (int32, error) {
	if len(b) != HeaderLen {
		return 0, fmt.Errorf("frame: invalid header length: %d", len(b))
	}
	return int32(binary.NativeEndian.Uint32(b)), nil
}
