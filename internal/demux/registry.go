package demux

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/torosent/fixfire/internal/fix"
)

// Outcome is the terminal result of one in-flight message: a matched
// response frame or an error, never both.
type Outcome struct {
	Msg        *fix.Message
	ReceivedAt time.Time
	Err        error
}

// Pending is a single-resolution slot for one correlation key. Whichever
// path resolves it first (response, send failure, timeout, cancellation)
// wins; later resolutions are no-ops.
type Pending struct {
	key      string
	registry *Registry
	timer    *time.Timer
	once     sync.Once
	ch       chan Outcome
}

func (p *Pending) resolve(out Outcome) {
	p.once.Do(func() {
		p.registry.remove(p.key, p)
		p.ch <- out
	})
}

// Await blocks until the slot resolves or ctx is canceled. Cancellation
// resolves the slot itself, so the registry entry never outlives the waiter.
func (p *Pending) Await(ctx context.Context) Outcome {
	select {
	case out := <-p.ch:
		return out
	case <-ctx.Done():
		p.resolve(Outcome{Err: ctx.Err()})
		return <-p.ch
	}
}

// Registry tracks every in-flight correlation key for one session.
type Registry struct {
	mu      sync.Mutex
	pending map[string]*Pending
}

func NewRegistry() *Registry {
	return &Registry{pending: make(map[string]*Pending)}
}

// Register creates the pending slot for key before the message is written,
// so a response racing the send cannot be missed. A positive timeout arms a
// timer that resolves the slot with a *TimeoutError.
func (r *Registry) Register(key string, timeout time.Duration) (*Pending, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pending[key]; exists {
		return nil, fmt.Errorf("demux: key %q already pending", key)
	}
	p := &Pending{key: key, registry: r, ch: make(chan Outcome, 1)}
	if timeout > 0 {
		p.timer = time.AfterFunc(timeout, func() {
			p.resolve(Outcome{Err: &TimeoutError{Key: key, After: timeout}})
		})
	}
	r.pending[key] = p
	return p, nil
}

// Resolve completes key with a response frame. It reports whether a slot
// was waiting for the key.
func (r *Registry) Resolve(key string, msg *fix.Message, at time.Time) bool {
	p, ok := r.lookup(key)
	if !ok {
		return false
	}
	p.resolve(Outcome{Msg: msg, ReceivedAt: at})
	return true
}

// Fail completes key with err, used when the send itself failed.
func (r *Registry) Fail(key string, err error) bool {
	p, ok := r.lookup(key)
	if !ok {
		return false
	}
	p.resolve(Outcome{Err: err})
	return true
}

// FailAll completes every in-flight key with err. Called on connection loss
// so no waiter hangs on a dead session.
func (r *Registry) FailAll(err error) {
	r.mu.Lock()
	all := make([]*Pending, 0, len(r.pending))
	for _, p := range r.pending {
		all = append(all, p)
	}
	r.mu.Unlock()

	for _, p := range all {
		p.resolve(Outcome{Err: err})
	}
}

// Len reports the number of in-flight keys.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Registry) lookup(key string) (*Pending, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[key]
	return p, ok
}

// remove deletes the entry only if it still maps to p. The timer is stopped
// under the registry lock, which also orders it against Register's timer
// assignment.
func (r *Registry) remove(key string, p *Pending) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.pending[key]; ok && cur == p {
		delete(r.pending, key)
	}
	if p.timer != nil {
		p.timer.Stop()
	}
}
