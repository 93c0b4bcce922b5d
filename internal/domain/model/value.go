package model

import (
	"sync"
	"sync/atomic"
	"time"
)

// ObserverID identifies a registered observer. Ids are unique across the whole
// model so that a write can block one specific observer.
type ObserverID uint64

var observerSeq atomic.Uint64

func nextObserverID() ObserverID {
	return ObserverID(observerSeq.Add(1))
}

type setOptions struct {
	force bool
	block map[ObserverID]struct{}
}

// SetOption tweaks a single write.
type SetOption func(*setOptions)

// Force writes and notifies even when the value did not change.
func Force() SetOption {
	return func(o *setOptions) { o.force = true }
}

// Block keeps the given observers from being notified of this write.
func Block(ids ...ObserverID) SetOption {
	return func(o *setOptions) {
		if o.block == nil {
			o.block = make(map[ObserverID]struct{}, len(ids))
		}
		for _, id := range ids {
			o.block[id] = struct{}{}
		}
	}
}

func buildOptions(opts []SetOption) setOptions {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o setOptions) blocked(id ObserverID) bool {
	_, ok := o.block[id]
	return ok
}

type valueObserver[T any] struct {
	id ObserverID
	fn func(old, new T)
}

// Value is an observable model field.
type Value[T comparable] struct {
	exec *Executor

	mu        sync.RWMutex
	v         T
	observers []valueObserver[T]
}

// NewValue creates a field holding initial.
func NewValue[T comparable](exec *Executor, initial T) *Value[T] {
	return &Value[T]{exec: exec, v: initial}
}

// Get returns the current value. Safe from any goroutine.
func (f *Value[T]) Get() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.v
}

// Set schedules a write of v. Writing the current value is a no-op unless
// Force is given. The comparison happens when the write is applied, since
// earlier writes may still be queued.
func (f *Value[T]) Set(v T, opts ...SetOption) {
	o := buildOptions(opts)
	f.exec.Post(func() { f.apply(v, o) })
}

// SetWait writes v and waits at most timeout for the write to be applied.
// A false result means the write is unconfirmed, not that it failed.
func (f *Value[T]) SetWait(timeout time.Duration, v T, opts ...SetOption) bool {
	o := buildOptions(opts)
	return f.exec.PostWait(timeout, func() { f.apply(v, o) })
}

// Observe registers fn for every applied change.
func (f *Value[T]) Observe(fn func(old, new T)) ObserverID {
	id := nextObserverID()
	f.mu.Lock()
	f.observers = append(f.observers, valueObserver[T]{id: id, fn: fn})
	f.mu.Unlock()
	return id
}

// Unobserve removes an observer. Unknown ids are ignored.
func (f *Value[T]) Unobserve(id ObserverID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, obs := range f.observers {
		if obs.id == id {
			f.observers = append(f.observers[:i], f.observers[i+1:]...)
			return
		}
	}
}

// apply runs on the executor. The equality check is repeated here so that two
// identical writes queued back to back notify once.
func (f *Value[T]) apply(v T, o setOptions) {
	f.mu.Lock()
	old := f.v
	if !o.force && old == v {
		f.mu.Unlock()
		return
	}
	f.v = v
	observers := append([]valueObserver[T](nil), f.observers...)
	f.mu.Unlock()

	for _, obs := range observers {
		if o.blocked(obs.id) {
			continue
		}
		obs.fn(old, v)
	}
}

// Signal notifies observers that a composite part of the model changed.
type Signal struct {
	mu        sync.RWMutex
	observers []signalObserver
}

type signalObserver struct {
	id ObserverID
	fn func()
}

// Observe registers fn.
func (s *Signal) Observe(fn func()) ObserverID {
	id := nextObserverID()
	s.mu.Lock()
	s.observers = append(s.observers, signalObserver{id: id, fn: fn})
	s.mu.Unlock()
	return id
}

// Unobserve removes an observer.
func (s *Signal) Unobserve(id ObserverID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, obs := range s.observers {
		if obs.id == id {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

func (s *Signal) emit(o setOptions) {
	s.mu.RLock()
	observers := append([]signalObserver(nil), s.observers...)
	s.mu.RUnlock()

	for _, obs := range observers {
		if o.blocked(obs.id) {
			continue
		}
		obs.fn()
	}
}
