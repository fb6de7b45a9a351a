package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/danmuck/edgerelay/internal/observability"
	"github.com/danmuck/edgerelay/internal/protocol/frame"
	"github.com/danmuck/edgerelay/internal/protocol/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const RoleReceiver = "receiver"

type ReceiverConfig struct {
	Port    int
	Session session.Config
	Logger  *zerolog.Logger
}

// Flusher is implemented by sinks that buffer, e.g. *bufio.Writer.
type Flusher interface {
	Flush() error
}

// Receiver accepts one inbound connection and copies its frames to out.
type Receiver struct {
	cfg    ReceiverConfig
	out    io.Writer
	logger zerolog.Logger
	prog   *progress

	// watchdog is the absolute deadline for bind and accept.
	watchdog time.Time
}

var _ observability.Reporter = (*Receiver)(nil)

func NewReceiver(cfg ReceiverConfig, out io.Writer) (*Receiver, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: %d out of range", ErrPortRequired, cfg.Port)
	}
	if out == nil {
		return nil, errors.New("relay: receiver sink required")
	}
	cfg.Session = cfg.Session.WithDefaults()
	if err := cfg.Session.Validate(); err != nil {
		return nil, err
	}
	return &Receiver{
		cfg:    cfg,
		out:    out,
		logger: roleLogger(cfg.Logger, RoleReceiver),
		prog:   newProgress(RoleReceiver),
	}, nil
}

func (r *Receiver) Snapshot() observability.Stats {
	return r.prog.snapshot()
}

// Run binds, accepts one connection and relays it until the peer closes.
func (r *Receiver) Run(ctx context.Context) error {
	ln, err := r.Listen(ctx)
	if err != nil {
		return err
	}
	return r.Serve(ctx, ln)
}

// Listen arms the watchdog and binds the IPv4 wildcard address. Bind failures
// are retried until the watchdog expires, which covers a prior listener still
// holding the port.
func (r *Receiver) Listen(ctx context.Context) (net.Listener, error) {
	r.watchdog = time.Now().Add(r.cfg.Session.IdleTimeout)
	addr := net.JoinHostPort("0.0.0.0", strconv.Itoa(r.cfg.Port))

	for attempt := 1; ; attempt++ {
		observability.RecordBindAttempt()
		ln, err := listenTCP(ctx, r.cfg.Port, r.cfg.Session.ChunkSize)
		if err == nil {
			r.prog.set(observability.StateListening)
			r.logger.Info().Str("addr", ln.Addr().String()).Int("attempts", attempt).Msg("listening")
			return ln, nil
		}
		if ctx.Err() != nil {
			return nil, r.prog.fail(ctx.Err())
		}
		if attempt == 1 {
			r.logger.Debug().Err(err).Str("addr", addr).Msg("bind failed, retrying")
		}
		if !time.Now().Before(r.watchdog) {
			return nil, r.prog.fail(fmt.Errorf("%w: bind %s: %w", ErrIdleTimeout, addr, err))
		}
		if err := sleep(ctx, r.cfg.Session.BindRetryInterval); err != nil {
			return nil, r.prog.fail(err)
		}
	}
}

// Serve accepts exactly one connection from ln, closes ln, and relays the
// connection's frames to the sink.
func (r *Receiver) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	if r.watchdog.IsZero() {
		r.watchdog = time.Now().Add(r.cfg.Session.IdleTimeout)
	}
	if dl, ok := ln.(interface{ SetDeadline(time.Time) error }); ok {
		if err := dl.SetDeadline(r.watchdog); err != nil {
			return r.prog.fail(fmt.Errorf("relay: set accept deadline: %w", err))
		}
	}

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	conn, err := ln.Accept()
	stop()
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return r.prog.fail(ctx.Err())
		case isTimeout(err):
			return r.prog.fail(fmt.Errorf("%w: no connection accepted", ErrIdleTimeout))
		default:
			return r.prog.fail(fmt.Errorf("relay: accept: %w", err))
		}
	}
	_ = ln.Close()

	r.logger.Info().Str("peer", conn.RemoteAddr().String()).Msg("accepted")
	r.prog.set(observability.StateRelaying)
	return r.copyFrames(ctx, conn)
}

func (r *Receiver) copyFrames(ctx context.Context, conn net.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	buf := make([]byte, r.cfg.Session.ChunkSize)
	limits := r.cfg.Session.Limits()
	idle := r.cfg.Session.IdleTimeout
	flusher, _ := r.out.(Flusher)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(idle)); err != nil {
			_ = conn.Close()
			return r.prog.fail(fmt.Errorf("relay: set read deadline: %w", err))
		}

		f, err := frame.ReadFrame(conn, buf, limits)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if err := conn.Close(); err != nil {
					return r.prog.fail(fmt.Errorf("relay: close stream: %w", err))
				}
				r.prog.set(observability.StateDone)
				stats := r.prog.snapshot()
				r.logger.Info().Uint64("frames", stats.Frames).Uint64("bytes", stats.Bytes).Msg("stream closed")
				return nil
			}
			_ = conn.Close()
			switch {
			case ctx.Err() != nil:
				return r.prog.fail(ctx.Err())
			case isTimeout(err):
				return r.prog.fail(fmt.Errorf("%w: no frame within %s", ErrIdleTimeout, idle))
			default:
				return r.prog.fail(fmt.Errorf("%w: %w", ErrMalformedFrame, err))
			}
		}

		n, err := r.out.Write(f.Payload)
		if err == nil && n != len(f.Payload) {
			err = io.ErrShortWrite
		}
		if err != nil {
			_ = conn.Close()
			return r.prog.fail(fmt.Errorf("%w: %w", ErrShortWrite, err))
		}
		if flusher != nil {
			if err := flusher.Flush(); err != nil {
				_ = conn.Close()
				return r.prog.fail(fmt.Errorf("%w: failed to flush: %w", ErrShortWrite, err))
			}
		}
		r.prog.frame(n)
		r.logger.Trace().Int("bytes", n).Msg("frame")
	}
}

func roleLogger(l *zerolog.Logger, role string) zerolog.Logger {
	if l != nil {
		return l.With().Str("role", role).Logger()
	}
	return log.Logger.With().Str("role", role).Logger()
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
