package socketio

import (
	"sync"
	"time"
)

// Topic names one kind of broadcast.
type Topic int

const (
	TopicState Topic = iota
	TopicQueue
	TopicPlaylists
	numTopics
)

func (t Topic) String() string {
	switch t {
	case TopicState:
		return "state"
	case TopicQueue:
		return "queue"
	case TopicPlaylists:
		return "playlists"
	default:
		return "unknown"
	}
}

// BroadcastDebouncer collapses bursts of model notifications into one
// broadcast per affected topic. Callbacks run once the window elapses without
// further triggers, in topic order.
type BroadcastDebouncer struct {
	window    time.Duration
	callbacks [numTopics]func()

	mu      sync.Mutex
	pending [numTopics]bool
	timer   *time.Timer
	stopped bool
}

// NewBroadcastDebouncer creates a debouncer. Topics without a callback are
// accepted and dropped.
func NewBroadcastDebouncer(window time.Duration, callbacks map[Topic]func()) *BroadcastDebouncer {
	d := &BroadcastDebouncer{window: window}
	for t, fn := range callbacks {
		if t >= 0 && t < numTopics {
			d.callbacks[t] = fn
		}
	}
	return d
}

// Trigger marks topics as changed and restarts the window.
func (d *BroadcastDebouncer) Trigger(topics ...Topic) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	for _, t := range topics {
		if t >= 0 && t < numTopics {
			d.pending[t] = true
		}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	due := d.pending
	d.pending = [numTopics]bool{}
	d.mu.Unlock()

	for t, ok := range due {
		if ok && d.callbacks[t] != nil {
			d.callbacks[t]()
		}
	}
}

// Stop drops pending topics and prevents further callbacks.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = [numTopics]bool{}
}
