package relay

import (
	"sync/atomic"

	"github.com/danmuck/edgerelay/internal/observability"
)

// progress is written by the relay goroutine and read by the status endpoint.
type progress struct {
	role   string
	state  atomic.Value
	frames atomic.Uint64
	bytes  atomic.Uint64
}

func newProgress(role string) *progress {
	p := &progress{role: role}
	p.state.Store(observability.StateStarting)
	return p
}

func (p *progress) set(s observability.State) {
	p.state.Store(s)
}

func (p *progress) frame(n int) {
	p.frames.Add(1)
	p.bytes.Add(uint64(n))
	observability.RecordFrame(p.role, n)
}

func (p *progress) fail(err error) error {
	p.set(observability.StateFailed)
	observability.RecordFailure(p.role, failureReason(err))
	return err
}

func (p *progress) snapshot() observability.Stats {
	return observability.Stats{
		Role:   p.role,
		State:  p.state.Load().(observability.State),
		Frames: p.frames.Load(),
		Bytes:  p.bytes.Load(),
	}
}
