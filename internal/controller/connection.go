package controller

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-remote/internal/bus"
	"github.com/edumarques81/stellar-remote/internal/domain/model"
	"github.com/edumarques81/stellar-remote/internal/message"
)

// Connection tracks reachability of the server. On connect it asks the other
// controllers to load the initial state; on disconnect it forgets the
// playback state that can no longer be trusted.
type Connection struct {
	env Env
}

func NewConnection(env Env) *Connection {
	return &Connection{env: env}
}

func (c *Connection) Name() string { return "connection" }

func (c *Connection) Registrations() []bus.Registration {
	return []bus.Registration{
		{Types: []message.Type{message.ConnectionChanged}, Handler: c.changed},
	}
}

func (c *Connection) changed(_ context.Context, msg message.Message) error {
	connected := msg.Bool(message.KeyConnected, false)
	log.Info().Bool("connected", connected).Msg("Server connection changed")

	m := c.env.Model
	m.Connected.Set(connected)
	if !connected {
		m.Playback.State.Set(model.StateUnknown)
		m.Playback.SetTimePosition(-1)
		return nil
	}

	for _, t := range []message.Type{
		message.IdentifyPlayingState,
		message.FetchTracklist,
		message.FetchMixerState,
		message.ListPlaylists,
	} {
		c.env.send(t, nil)
	}
	c.env.send(message.BrowseDirectory, message.Data{message.KeyURI: model.RootURI})
	return nil
}
