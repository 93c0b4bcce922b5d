// Package controller holds the message consumers. Each controller declares the
// message types it handles, talks to the server through the typed core API
// and writes results into the model.
//
// Controllers are registered on the dispatcher in this order, which is also
// the order in which they see a shared message: playback, mixer, tracklist,
// library, playlists, artists, images, time tracker.
package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/edumarques81/stellar-remote/internal/bus"
	"github.com/edumarques81/stellar-remote/internal/domain/backend"
	"github.com/edumarques81/stellar-remote/internal/domain/model"
	"github.com/edumarques81/stellar-remote/internal/infra/mopidy"
	"github.com/edumarques81/stellar-remote/internal/message"
)

var (
	// ErrNoResult is returned when the server gave no usable answer. The model
	// is left unchanged.
	ErrNoResult = errors.New("no result from server")

	// ErrBadPayload is returned for messages missing a required field.
	ErrBadPayload = errors.New("missing message field")
)

// Env groups the collaborators shared by all controllers.
type Env struct {
	Core     *mopidy.Core
	Model    *model.Model
	Sender   bus.Sender
	Backends *backend.Registry
}

func noResult(method string) error {
	return fmt.Errorf("%w: %s", ErrNoResult, method)
}

func missing(msg message.Message, key string) error {
	return fmt.Errorf("%w: %s.%s", ErrBadPayload, msg.Type(), key)
}

func (e Env) send(t message.Type, data message.Data) {
	e.Sender.Send(message.New(t, data))
}

// requireString returns a non-empty string field.
func requireString(msg message.Message, key string) (string, error) {
	v := msg.String(key)
	if v == "" {
		return "", missing(msg, key)
	}
	return v, nil
}

// WriteTimeout bounds the wait for model writes a handler needs confirmed.
const WriteTimeout = 2 * time.Second
