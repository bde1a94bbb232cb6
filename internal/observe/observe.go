// Package observe provides subscribable values for exposing controller
// state to views.
package observe

import "sync"

// Value holds a T and notifies subscribers on every Set.
//
// Subscribers run synchronously on the setting goroutine, after the lock is
// released, so they may call Get. Values reach them one at a time in the
// order they were stored. A subscriber must not Set the same Value.
type Value[T any] struct {
	notifyMu sync.Mutex // held from store until every subscriber returned
	mu       sync.Mutex
	value    T
	subs     map[int]func(T)
	nextID   int
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{value: initial}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Set stores value and notifies subscribers.
func (v *Value[T]) Set(value T) {
	v.Update(func(T) T { return value })
}

// Update replaces the value with fn(current) atomically and notifies
// subscribers with the result.
func (v *Value[T]) Update(fn func(T) T) {
	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()

	v.mu.Lock()
	v.value = fn(v.value)
	next := v.value
	subs := make([]func(T), 0, len(v.subs))
	for _, fn := range v.subs {
		subs = append(subs, fn)
	}
	v.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// Subscribe registers fn for future changes. The returned func removes it
// and is safe to call more than once.
func (v *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.subs == nil {
		v.subs = make(map[int]func(T))
	}
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.subs, id)
	}
}
