package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"strconv"
	"time"

	"github.com/danmuck/edgerelay/internal/observability"
	"github.com/danmuck/edgerelay/internal/protocol/frame"
	"github.com/danmuck/edgerelay/internal/protocol/session"
	"github.com/rs/zerolog"
)

const RoleSender = "sender"

type SenderConfig struct {
	Address string
	Port    int
	Session session.Config
	Logger  *zerolog.Logger
}

// Sender reads its input to exhaustion and writes it as frames to the
// receiver.
type Sender struct {
	cfg    SenderConfig
	in     io.Reader
	logger zerolog.Logger
	prog   *progress
	rng    *rand.Rand
}

var _ observability.Reporter = (*Sender)(nil)

func NewSender(cfg SenderConfig, in io.Reader) (*Sender, error) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: %d out of range", ErrPortRequired, cfg.Port)
	}
	if in == nil {
		return nil, errors.New("relay: sender input required")
	}
	cfg.Session = cfg.Session.WithDefaults()
	if err := cfg.Session.Validate(); err != nil {
		return nil, err
	}
	return &Sender{
		cfg:    cfg,
		in:     in,
		logger: roleLogger(cfg.Logger, RoleSender),
		prog:   newProgress(RoleSender),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (s *Sender) Addr() string {
	return net.JoinHostPort(s.cfg.Address, strconv.Itoa(s.cfg.Port))
}

func (s *Sender) Snapshot() observability.Stats {
	return s.prog.snapshot()
}

// Connect dials the receiver, retrying refused or failed attempts until the
// attempt budget or the connect window runs out. The address is not
// validated; an unresolvable one simply fails every attempt.
func (s *Sender) Connect(ctx context.Context) (net.Conn, error) {
	s.prog.set(observability.StateConnecting)
	addr := s.Addr()
	deadline := time.Now().Add(s.cfg.Session.ConnectTimeout)
	maxAttempts := s.cfg.Session.MaxConnectAttempts()
	dialer := net.Dialer{
		Deadline: deadline,
		Control:  dialControl(s.cfg.Session.ChunkSize),
	}

	for attempt := 1; ; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		observability.RecordConnectAttempt(err == nil)
		if err == nil {
			s.logger.Info().Str("addr", addr).Int("attempts", attempt).Msg("connected")
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, s.prog.fail(ctx.Err())
		}
		if attempt == 1 {
			s.logger.Debug().Err(err).Str("addr", addr).Msg("dial failed, retrying")
		}
		if attempt >= maxAttempts || !time.Now().Before(deadline) {
			return nil, s.prog.fail(fmt.Errorf("%w: %s after %d attempts: %w", ErrConnectTimeout, addr, attempt, err))
		}
		if err := sleep(ctx, session.NextBackoffDelay(s.cfg.Session.Backoff, attempt, s.rng)); err != nil {
			return nil, s.prog.fail(err)
		}
	}
}

// Run connects and copies the input as frames until a short read marks the
// end of input. A full chunk always triggers one more read, so input that is
// an exact multiple of the chunk size ends on an empty read and no frame.
func (s *Sender) Run(ctx context.Context) error {
	conn, err := s.Connect(ctx)
	if err != nil {
		return err
	}
	s.prog.set(observability.StateRelaying)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	buf := make([]byte, s.cfg.Session.ChunkSize)
	limits := s.cfg.Session.Limits()

	for {
		n, readErr := io.ReadFull(s.in, buf)
		if n > 0 {
			if err := s.writeFrame(conn, buf[:n], limits); err != nil {
				_ = conn.Close()
				if ctx.Err() != nil {
					return s.prog.fail(ctx.Err())
				}
				return s.prog.fail(err)
			}
			s.prog.frame(n)
			s.logger.Trace().Int("bytes", n).Msg("frame")
		}
		if n == len(buf) {
			continue
		}

		if readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
			_ = conn.Close()
			return s.prog.fail(fmt.Errorf("%w: %w", ErrInput, readErr))
		}
		if err := conn.Close(); err != nil {
			return s.prog.fail(fmt.Errorf("relay: close: %w", err))
		}
		s.prog.set(observability.StateDone)
		stats := s.prog.snapshot()
		s.logger.Info().Uint64("frames", stats.Frames).Uint64("bytes", stats.Bytes).Msg("input exhausted")
		return nil
	}
}

func (s *Sender) writeFrame(conn net.Conn, payload []byte, limits frame.Limits) error {
	if wt := s.cfg.Session.WriteTimeout; wt > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(wt)); err != nil {
			return fmt.Errorf("relay: set write deadline: %w", err)
		}
	}
	if err := frame.WriteFrame(conn, payload, limits); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %w", ErrWriteTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrShortWrite, err)
	}
	return nil
}
