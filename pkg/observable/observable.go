// Package observable provides a single-writer, multi-reader value cell. Readers either poll
// the current value or subscribe to a channel that always delivers the latest one.
package observable

import (
	"context"
	"sync"
)

// Value holds the latest value of T and broadcasts changes to its subscribers.
// Subscribers that fall behind skip intermediate values; they always see the most recent one.
type Value[T any] struct {
	mu   sync.Mutex
	v    T
	subs map[int]chan T
	next int
}

// New creates a Value holding initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, subs: make(map[int]chan T)}
}

// Get returns the current value.
func (o *Value[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.v
}

// Set stores v and hands it to every subscriber, replacing any value a subscriber has not
// consumed yet.
func (o *Value[T]) Set(v T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.v = v
	for _, ch := range o.subs {
		offer(ch, v)
	}
}

// Update applies fn to the current value and stores the result.
func (o *Value[T]) Update(fn func(T) T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.v = fn(o.v)
	for _, ch := range o.subs {
		offer(ch, o.v)
	}
}

// Subscribe returns a channel that receives the current value immediately and every later
// value. The channel is closed once ctx is done.
func (o *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	o.mu.Lock()
	id := o.next
	o.next++
	o.subs[id] = ch
	ch <- o.v
	o.mu.Unlock()

	go func() {
		<-ctx.Done()
		o.mu.Lock()
		delete(o.subs, id)
		close(ch)
		o.mu.Unlock()
	}()
	return ch
}

// offer replaces a pending value in ch with v. Callers hold the lock, so no other sender
// competes for the buffer slot.
func offer[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}
