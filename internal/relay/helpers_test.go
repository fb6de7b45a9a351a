package relay

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/danmuck/edgerelay/internal/protocol/session"
)

func testSession(chunk int) session.Config {
	cfg := session.DefaultConfig()
	cfg.ChunkSize = chunk
	cfg.IdleTimeout = 2 * time.Second
	cfg.ConnectTimeout = 2 * time.Second
	return cfg
}

func payload(n int, seed int64) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

// startReceiver binds on an ephemeral port and serves in the background.
// out must only be inspected after the returned channel yields.
func startReceiver(t *testing.T, ctx context.Context, cfg session.Config, out io.Writer) (*Receiver, int, <-chan error) {
	t.Helper()
	r, err := NewReceiver(ReceiverConfig{Port: 0, Session: cfg}, out)
	if err != nil {
		t.Fatalf("new receiver: %v", err)
	}
	ln, err := r.Listen(ctx)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx, ln) }()
	return r, port, done
}

func dialReceiver(t *testing.T, port int) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("dial receiver: %v", err)
	}
	return conn
}

func waitErr(t *testing.T, ch <-chan error, within time.Duration) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(within):
		t.Fatalf("no result within %v", within)
		return nil
	}
}

type flushCounter struct {
	bytes.Buffer
	flushes int
}

func (f *flushCounter) Flush() error {
	f.flushes++
	return nil
}

type shortSink struct{}

func (shortSink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return len(p) / 2, nil
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}
