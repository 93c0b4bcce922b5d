package bus

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-remote/internal/message"
)

var (
	// ErrRunning is returned when a consumer registers after the loop started.
	ErrRunning = errors.New("dispatcher already running")

	// ErrInvalidRegistration is returned for empty or unknown registrations.
	ErrInvalidRegistration = errors.New("invalid registration")
)

// HandlerFunc reacts to one message. Returned errors are logged by the
// dispatcher and never propagate further.
type HandlerFunc func(ctx context.Context, msg message.Message) error

// Registration binds a handler to the closed set of types it consumes.
type Registration struct {
	Types   []message.Type
	Handler HandlerFunc
}

// Consumer declares its handlers once, at registration time.
type Consumer interface {
	Name() string
	Registrations() []Registration
}

// Sender enqueues messages. It is safe for concurrent use.
type Sender interface {
	Send(msg message.Message)
}

type entry struct {
	consumer string
	accepts  map[message.Type]struct{}
	handler  HandlerFunc
}

// Dispatcher drains the message queue on one goroutine and fans every message
// out to the interested handlers in registration order.
type Dispatcher struct {
	queue *Queue[message.Message]

	mu      sync.RWMutex
	table   map[message.Type][]*entry
	running bool
}

// NewDispatcher creates a dispatcher with an empty queue.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		queue: NewQueue[message.Message](),
		table: make(map[message.Type][]*entry),
	}
}

// Register adds the registrations of c. Handlers registered earlier run
// earlier for the same message.
func (d *Dispatcher) Register(c Consumer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return ErrRunning
	}

	regs := c.Registrations()
	for i, reg := range regs {
		if reg.Handler == nil || len(reg.Types) == 0 {
			return fmt.Errorf("%w: %s #%d", ErrInvalidRegistration, c.Name(), i)
		}
		for _, t := range reg.Types {
			if !t.Valid() {
				return fmt.Errorf("%w: %s #%d has unknown type %d", ErrInvalidRegistration, c.Name(), i, t)
			}
		}
	}

	for _, reg := range regs {
		e := &entry{
			consumer: c.Name(),
			accepts:  make(map[message.Type]struct{}, len(reg.Types)),
			handler:  reg.Handler,
		}
		for _, t := range reg.Types {
			if _, dup := e.accepts[t]; dup {
				continue
			}
			e.accepts[t] = struct{}{}
			d.table[t] = append(d.table[t], e)
		}
	}

	log.Debug().Str("consumer", c.Name()).Int("handlers", len(regs)).Msg("Consumer registered")
	return nil
}

// Send enqueues msg. It never blocks.
func (d *Dispatcher) Send(msg message.Message) {
	d.queue.Push(msg)
}

// Pending returns the number of queued messages.
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}

// Run processes messages until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrRunning
	}
	d.running = true
	d.mu.Unlock()

	log.Info().Msg("Dispatch loop started")
	for {
		msg, err := d.queue.Pop(ctx)
		if err != nil {
			log.Info().Int("pending", d.queue.Len()).Msg("Dispatch loop stopped")
			return err
		}
		d.Dispatch(ctx, msg)
	}
}

// Dispatch delivers one message to every interested handler, sequentially.
func (d *Dispatcher) Dispatch(ctx context.Context, msg message.Message) {
	d.mu.RLock()
	entries := d.table[msg.Type()]
	d.mu.RUnlock()

	if len(entries) == 0 {
		log.Debug().Str("type", msg.Type().String()).Msg("No consumer for message")
		return
	}

	for _, e := range entries {
		if _, ok := e.accepts[msg.Type()]; !ok {
			log.Error().
				Str("type", msg.Type().String()).
				Str("consumer", e.consumer).
				Msg("Refusing delivery of unregistered message type")
			continue
		}
		d.invoke(ctx, e, msg)
	}
}

func (d *Dispatcher) invoke(ctx context.Context, e *entry, msg message.Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("type", msg.Type().String()).
				Str("consumer", e.consumer).
				Str("stack", string(debug.Stack())).
				Msg("Handler panicked")
		}
	}()

	if err := e.handler(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("type", msg.Type().String()).
			Str("consumer", e.consumer).
			Msg("Handler failed")
	}
}

var _ Sender = (*Dispatcher)(nil)
