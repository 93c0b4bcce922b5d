package model

import (
	"sync"
	"time"
)

// List is an observable ordered collection mutated in place.
type List[T any] struct {
	exec *Executor

	mu    sync.RWMutex
	items []T

	// Changed fires once per applied mutation.
	Changed Signal
}

// NewList creates an empty list.
func NewList[T any](exec *Executor) *List[T] {
	return &List[T]{exec: exec}
}

// Items returns a copy of the current items.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]T(nil), l.items...)
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Replace swaps the whole content for items.
func (l *List[T]) Replace(items []T, opts ...SetOption) {
	o := buildOptions(opts)
	copied := append([]T(nil), items...)
	l.exec.Post(func() { l.replace(copied, o) })
}

// Update applies fn to the current items on the executor and stores the result.
func (l *List[T]) Update(fn func(items []T) []T) {
	l.exec.Post(func() {
		l.replace(fn(l.Items()), setOptions{})
	})
}

// UpdateWait is Update with a bounded wait for completion.
func (l *List[T]) UpdateWait(timeout time.Duration, fn func(items []T) []T) bool {
	return l.exec.PostWait(timeout, func() {
		l.replace(fn(l.Items()), setOptions{})
	})
}

func (l *List[T]) replace(items []T, o setOptions) {
	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
	l.Changed.emit(o)
}
