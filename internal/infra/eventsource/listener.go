// Package eventsource listens to the Mopidy WebSocket and turns server
// notifications into messages.
package eventsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-remote/internal/bus"
	"github.com/edumarques81/stellar-remote/internal/message"
)

const (
	// DefaultPath is the Mopidy WebSocket path.
	DefaultPath = "/mopidy/ws"

	// DefaultRetryDelay separates reconnection attempts.
	DefaultRetryDelay = 5 * time.Second

	handshakeTimeout = 10 * time.Second
)

// ErrNoEvent is returned for notifications without an event name, such as
// JSON-RPC responses sharing the socket.
var ErrNoEvent = errors.New("notification has no event")

// WebSocketURL derives the event socket URL from the server HTTP URL.
func WebSocketURL(httpURL string) (string, error) {
	u, err := url.Parse(httpURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + DefaultPath
	return u.String(), nil
}

// Listener keeps one WebSocket connection open and enqueues every known
// server event. It reconnects forever until its context is cancelled.
type Listener struct {
	url        string
	sender     bus.Sender
	dialer     *websocket.Dialer
	retryDelay time.Duration

	mu        sync.Mutex
	connected atomic.Bool
}

// Option configures a Listener.
type Option func(*Listener)

// WithRetryDelay overrides the delay between reconnection attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(l *Listener) {
		l.retryDelay = d
	}
}

// NewListener creates a listener for wsURL that enqueues on sender.
func NewListener(wsURL string, sender bus.Sender, opts ...Option) *Listener {
	l := &Listener{
		url:        wsURL,
		sender:     sender,
		retryDelay: DefaultRetryDelay,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetRetryDelay changes the reconnection delay of future attempts.
func (l *Listener) SetRetryDelay(d time.Duration) {
	l.mu.Lock()
	l.retryDelay = d
	l.mu.Unlock()
}

// Connected reports whether the socket is currently open.
func (l *Listener) Connected() bool {
	return l.connected.Load()
}

// Run connects and listens until ctx is done. Connection failures are logged
// and retried after the configured delay.
func (l *Listener) Run(ctx context.Context) error {
	log.Info().Str("url", l.url).Msg("Event listener started")
	defer log.Info().Msg("Event listener stopped")

	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		l.mu.Lock()
		delay := l.retryDelay
		l.mu.Unlock()

		log.Warn().Err(err).Dur("retry_in", delay).Msg("Event connection lost")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// listen runs one connection until it fails or ctx is cancelled.
func (l *Listener) listen(ctx context.Context) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.url, err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	l.setConnected(true)
	defer l.setConnected(false)
	log.Info().Str("url", l.url).Msg("Connected to event source")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		msg, err := Decode(data)
		switch {
		case errors.Is(err, ErrNoEvent):
			continue
		case err != nil:
			log.Debug().Err(err).Msg("Dropping server notification")
			continue
		}
		l.sender.Send(msg)
	}
}

func (l *Listener) setConnected(connected bool) {
	if l.connected.Swap(connected) == connected {
		return
	}
	l.sender.Send(message.New(message.ConnectionChanged, message.Data{message.KeyConnected: connected}))
}

// Decode converts one raw notification into a message. The event name is
// removed from the payload.
func Decode(data []byte) (message.Message, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return message.Message{}, fmt.Errorf("malformed notification: %w", err)
	}

	name, _ := payload["event"].(string)
	if name == "" {
		return message.Message{}, ErrNoEvent
	}

	t, ok := message.FromServerEvent(name)
	if !ok {
		return message.Message{}, fmt.Errorf("unknown event %q", name)
	}

	delete(payload, "event")
	return message.New(t, payload), nil
}
