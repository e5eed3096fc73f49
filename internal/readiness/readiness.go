// Package readiness tracks the set of in-flight bootstrap operations a
// session depends on. Wait joins over the operations registered at the
// moment it is called: it resolves once every one of them has settled,
// whether successfully or not. Operations registered later are only
// honored by subsequent Wait calls, never retroactively.
package readiness

import (
	"context"
	"sync"
)

// Op is a single asynchronous unit of work. It settles exactly once,
// with or without an error; the error is carried to direct awaiters and
// never short-circuits a Wait.
type Op struct {
	name string
	done chan struct{}
	once sync.Once
	err  error
}

// NewOp returns an unsettled operation.
func NewOp(name string) *Op {
	return &Op{name: name, done: make(chan struct{})}
}

// Name returns the operation's diagnostic name.
func (o *Op) Name() string { return o.name }

// Settle marks the operation finished. Subsequent calls are no-ops.
func (o *Op) Settle(err error) {
	o.once.Do(func() {
		o.err = err
		close(o.done)
	})
}

// Done is closed once the operation has settled.
func (o *Op) Done() <-chan struct{} { return o.done }

// Err returns the settlement error. Only valid after Done is closed.
func (o *Op) Err() error { return o.err }

// Gate is a collection of operations. The zero value is not usable; use
// NewGate.
type Gate struct {
	mu  sync.Mutex
	ops []*Op
}

func NewGate() *Gate {
	return &Gate{}
}

// Add registers an externally driven operation.
func (g *Gate) Add(op *Op) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ops = append(g.ops, op)
}

// Go registers a new operation and runs fn on its own goroutine,
// settling the operation with fn's result.
func (g *Gate) Go(name string, fn func() error) *Op {
	op := NewOp(name)
	g.Add(op)
	go func() {
		op.Settle(fn())
	}()
	return op
}

// Wait blocks until every operation registered at the time of the call
// has settled, or until ctx is done. Operation errors do not propagate;
// only the context error is returned.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	snapshot := make([]*Op, len(g.ops))
	copy(snapshot, g.ops)
	g.mu.Unlock()

	for _, op := range snapshot {
		select {
		case <-op.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Len returns the number of registered operations, settled or not.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ops)
}

// Clear drops every registered operation. In-flight operations keep
// running to settlement but no longer gate future waits.
func (g *Gate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ops = nil
}
