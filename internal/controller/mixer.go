package controller

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-remote/internal/bus"
	"github.com/edumarques81/stellar-remote/internal/message"
)

// Mixer handles volume and mute.
type Mixer struct {
	env Env
}

func NewMixer(env Env) *Mixer {
	return &Mixer{env: env}
}

func (c *Mixer) Name() string { return "mixer" }

func (c *Mixer) Registrations() []bus.Registration {
	return []bus.Registration{
		{Types: []message.Type{message.SetVolume}, Handler: c.setVolume},
		{Types: []message.Type{message.SetMute}, Handler: c.setMute},
		{Types: []message.Type{message.FetchMixerState}, Handler: c.fetch},
		{Types: []message.Type{message.VolumeChanged}, Handler: c.volumeChanged},
		{Types: []message.Type{message.MuteChanged}, Handler: c.muteChanged},
	}
}

func (c *Mixer) setVolume(ctx context.Context, msg message.Message) error {
	volume := msg.Int(message.KeyVolume, -1)
	if volume < 0 {
		return missing(msg, message.KeyVolume)
	}
	volume = min(volume, 100)
	log.Info().Int("volume", volume).Msg("Set volume")
	if !c.env.Core.SetVolume(ctx, volume) {
		return noResult("core.mixer.set_volume")
	}
	return nil
}

func (c *Mixer) setMute(ctx context.Context, msg message.Message) error {
	if !msg.Has(message.KeyMute) {
		return missing(msg, message.KeyMute)
	}
	mute := msg.Bool(message.KeyMute, false)
	log.Info().Bool("mute", mute).Msg("Set mute")
	if !c.env.Core.SetMute(ctx, mute) {
		return noResult("core.mixer.set_mute")
	}
	return nil
}

func (c *Mixer) fetch(ctx context.Context, _ message.Message) error {
	volume, ok := c.env.Core.Volume(ctx)
	if !ok {
		return noResult("core.mixer.get_volume")
	}
	c.env.Model.Mixer.Volume.Set(volume)

	mute, ok := c.env.Core.Mute(ctx)
	if !ok {
		return noResult("core.mixer.get_mute")
	}
	c.env.Model.Mixer.Mute.Set(mute)
	return nil
}

func (c *Mixer) volumeChanged(_ context.Context, msg message.Message) error {
	volume := msg.Int(message.KeyVolume, -1)
	if volume < 0 {
		return missing(msg, message.KeyVolume)
	}
	c.env.Model.Mixer.Volume.Set(volume)
	return nil
}

func (c *Mixer) muteChanged(_ context.Context, msg message.Message) error {
	if !msg.Has(message.KeyMute) {
		return missing(msg, message.KeyMute)
	}
	c.env.Model.Mixer.Mute.Set(msg.Bool(message.KeyMute, false))
	return nil
}
