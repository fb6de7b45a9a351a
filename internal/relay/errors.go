package relay

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

var (
	ErrUsage          = errors.New("relay: usage")
	ErrIdleTimeout    = errors.New("relay: timeout")
	ErrWriteTimeout   = errors.New("relay: timeout writing")
	ErrConnectTimeout = errors.New("relay: connect timeout")
	ErrMalformedFrame = errors.New("relay: bad data read")
	ErrShortWrite     = errors.New("relay: bad write")
	ErrInput          = errors.New("relay: couldnt read input")
	ErrPortRequired   = errors.New("relay: port required")
)

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// failureReason maps an error to a metrics label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrIdleTimeout):
		return "idle_timeout"
	case errors.Is(err, ErrWriteTimeout):
		return "write_timeout"
	case errors.Is(err, ErrConnectTimeout):
		return "connect_timeout"
	case errors.Is(err, ErrMalformedFrame):
		return "malformed_frame"
	case errors.Is(err, ErrShortWrite):
		return "short_write"
	case errors.Is(err, ErrInput):
		return "input"
	default:
		return "other"
	}
}

// ParsePort parses a command-line port in 1..65535.
func ParsePort(raw string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid port %q", ErrUsage, raw)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: port %d out of range", ErrUsage, port)
	}
	return port, nil
}
