package executor

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/skillsenselab/streamkit/logger"
)

// Spec configures a Pool.
type Spec struct {
	// Kind selects the backend. Empty defaults to KindWorkers.
	Kind Kind
	// Workers is the number of concurrent task slots. Must be >= 1.
	Workers int
	// Queue is extra task buffering beyond Workers. Must be >= 0.
	Queue int
	// Name tags the pool in logs. Optional.
	Name string
	// Log receives lifecycle events at debug level. Nil disables logging.
	Log *logger.Logger
}

// Validate checks the spec without building anything.
func (s Spec) Validate() error {
	if s.Kind != "" && !s.Kind.Valid() {
		return fmt.Errorf("unknown executor kind %q", s.Kind)
	}
	if s.Workers < 1 {
		return fmt.Errorf("worker count must be >= 1, got %d", s.Workers)
	}
	if s.Queue < 0 {
		return fmt.Errorf("queue size must be >= 0, got %d", s.Queue)
	}
	return nil
}

// Pool owns one executor for one evaluation pass. The backend is built
// lazily on first Get and released exactly once, regardless of how many
// paths (exhaustion, close, error) race to release it.
type Pool struct {
	spec Spec
	id   string

	mu       sync.Mutex
	exec     Executor
	released bool
}

// NewPool validates spec and returns an unstarted pool. No goroutines are
// created until Get.
func NewPool(spec Spec) (*Pool, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Kind == "" {
		spec.Kind = KindWorkers
	}
	return &Pool{spec: spec, id: uuid.New().String()}, nil
}

// ID returns the pool's unique identifier, assigned at construction.
func (p *Pool) ID() string { return p.id }

// Get returns the pool's executor, building it on first call.
// It returns ErrClosed once the pool has been released.
func (p *Pool) Get() (Executor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return nil, ErrClosed
	}
	if p.exec == nil {
		p.exec = p.build()
		if p.spec.Log != nil {
			p.spec.Log.Debug("pool started", map[string]interface{}{
				"pool_id": p.id,
				"name":    p.spec.Name,
				"kind":    string(p.spec.Kind),
				"workers": p.spec.Workers,
				"queue":   p.spec.Queue,
			})
		}
	}
	return p.exec, nil
}

func (p *Pool) build() Executor {
	switch p.spec.Kind {
	case KindSequential:
		return newSequential()
	case KindConc:
		return newConc(p.spec.Workers, p.spec.Queue)
	default:
		return newWorkers(p.spec.Workers, p.spec.Queue)
	}
}

// Release shuts the executor down. It is idempotent and safe to call even
// if Get was never called. With wait true it blocks until all backend
// goroutines have exited.
func (p *Pool) Release(wait bool) {
	p.mu.Lock()
	exec := p.exec
	done := p.released
	p.released = true
	p.mu.Unlock()

	if done || exec == nil {
		return
	}
	exec.Shutdown(wait)
	if p.spec.Log != nil {
		st := exec.Stats()
		p.spec.Log.Debug("pool released", map[string]interface{}{
			"pool_id":   p.id,
			"name":      p.spec.Name,
			"submitted": st.Submitted,
			"completed": st.Completed,
		})
	}
}

// Stats returns a snapshot of the executor's counters. Before Get (or after
// a Release that preceded any Get) it reports only the configured shape.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	exec := p.exec
	p.mu.Unlock()
	if exec == nil {
		return Stats{Kind: p.spec.Kind, Workers: p.spec.Workers, Queue: p.spec.Queue}
	}
	return exec.Stats()
}
