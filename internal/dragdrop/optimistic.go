package dragdrop

import "sync"

// Optimistic holds a confirmed value and at most one pending proposal shown
// in its place until the server confirms or rejects it.
type Optimistic[T any] struct {
	mu        sync.Mutex
	confirmed T
	pending   *T
}

func NewOptimistic[T any](initial T) *Optimistic[T] {
	return &Optimistic[T]{confirmed: initial}
}

// View is what the user sees: the pending value if any, else the confirmed
// one.
func (o *Optimistic[T]) View() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending != nil {
		return *o.pending
	}
	return o.confirmed
}

func (o *Optimistic[T]) Confirmed() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.confirmed
}

func (o *Optimistic[T]) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending != nil
}

// Propose replaces any earlier proposal.
func (o *Optimistic[T]) Propose(v T) {
	o.mu.Lock()
	o.pending = &v
	o.mu.Unlock()
}

func (o *Optimistic[T]) Commit() {
	o.mu.Lock()
	if o.pending != nil {
		o.confirmed = *o.pending
		o.pending = nil
	}
	o.mu.Unlock()
}

func (o *Optimistic[T]) Rollback() {
	o.mu.Lock()
	o.pending = nil
	o.mu.Unlock()
}

// Reset installs a freshly fetched value and drops any proposal.
func (o *Optimistic[T]) Reset(v T) {
	o.mu.Lock()
	o.confirmed = v
	o.pending = nil
	o.mu.Unlock()
}
