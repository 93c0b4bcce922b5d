package controller

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-remote/internal/bus"
	"github.com/edumarques81/stellar-remote/internal/domain/model"
	"github.com/edumarques81/stellar-remote/internal/infra/mopidy"
	"github.com/edumarques81/stellar-remote/internal/message"
)

// Playback handles transport commands and mirrors the playback events of the
// server into the model.
type Playback struct {
	env         Env
	historySize int
}

// NewPlayback creates the controller and installs the forwarder that turns
// user position changes into Seek commands.
func NewPlayback(env Env, historySize int) *Playback {
	if historySize <= 0 {
		historySize = model.DefaultHistorySize
	}
	env.Model.Playback.ForwardUserSeeks(func(pos int64) {
		env.send(message.Seek, message.Data{message.KeyTimePosition: pos})
	})
	return &Playback{env: env, historySize: historySize}
}

func (c *Playback) Name() string { return "playback" }

func (c *Playback) Registrations() []bus.Registration {
	return []bus.Registration{
		{Types: []message.Type{message.TogglePlaybackState}, Handler: c.toggle},
		{Types: []message.Type{message.Play}, Handler: c.play},
		{Types: []message.Type{message.PlayPrevTrack, message.PlayNextTrack}, Handler: c.skip},
		{Types: []message.Type{message.Seek}, Handler: c.seek},
		{Types: []message.Type{message.IdentifyPlayingState}, Handler: c.identify},
		{Types: []message.Type{message.TrackPlaybackStarted}, Handler: c.started},
		{Types: []message.Type{
			message.TrackPlaybackPaused,
			message.TrackPlaybackResumed,
			message.TrackPlaybackEnded,
		}, Handler: c.transition},
		{Types: []message.Type{message.PlaybackStateChanged}, Handler: c.stateChanged},
		{Types: []message.Type{message.Seeked}, Handler: c.seeked},
		{Types: []message.Type{message.StreamTitleChanged}, Handler: c.streamTitle},
	}
}

// Commands

func (c *Playback) toggle(ctx context.Context, _ message.Message) error {
	state := c.env.Model.Playback.State.Get()
	log.Info().Str("state", string(state)).Msg("Toggle")

	switch state {
	case model.StatePlaying:
		if !c.env.Core.Pause(ctx) {
			return noResult("core.playback.pause")
		}
	case model.StatePaused:
		if !c.env.Core.Resume(ctx) {
			return noResult("core.playback.resume")
		}
	default:
		if !c.env.Core.Play(ctx, -1) {
			return noResult("core.playback.play")
		}
	}
	return nil
}

func (c *Playback) play(ctx context.Context, msg message.Message) error {
	tlid := msg.Int(message.KeyTlid, -1)
	log.Info().Int("tlid", tlid).Msg("Play")
	if !c.env.Core.Play(ctx, tlid) {
		return noResult("core.playback.play")
	}
	return nil
}

func (c *Playback) skip(ctx context.Context, msg message.Message) error {
	if msg.Type() == message.PlayPrevTrack {
		log.Info().Msg("Previous")
		if !c.env.Core.Previous(ctx) {
			return noResult("core.playback.previous")
		}
		return nil
	}
	log.Info().Msg("Next")
	if !c.env.Core.Next(ctx) {
		return noResult("core.playback.next")
	}
	return nil
}

func (c *Playback) seek(ctx context.Context, msg message.Message) error {
	pos := msg.Int64(message.KeyTimePosition, -1)
	if pos < 0 {
		return missing(msg, message.KeyTimePosition)
	}
	log.Info().Int64("position", pos).Msg("Seek")
	if !c.env.Core.Seek(ctx, pos) {
		return noResult("core.playback.seek")
	}
	return nil
}

// identify loads the full playback state, used after (re)connecting.
func (c *Playback) identify(ctx context.Context, _ message.Message) error {
	core := c.env.Core
	state, ok := core.State(ctx)
	if !ok {
		return noResult("core.playback.get_state")
	}
	pos, posOK := core.TimePosition(ctx)
	current, currentOK := core.CurrentTlTrack(ctx)
	title, titleOK := core.StreamTitle(ctx)

	pb := c.env.Model.Playback
	confirmed := c.env.Model.Batch(WriteTimeout, func() {
		pb.State.Set(state)
		if posOK {
			pb.SetTimePosition(pos)
		}
		if currentOK {
			c.setCurrent(current)
		}
		if titleOK {
			pb.StreamTitle.Set(title)
		}
	})
	if !confirmed {
		log.Warn().Msg("Playback state write not confirmed")
	}

	log.Debug().Str("state", string(state)).Int64("position", pos).Msg("Playing state identified")
	if currentOK && current != nil {
		c.fetchImage(current.Track)
	}
	c.env.send(message.ModelChanged, message.Data{message.KeyPart: "playback"})
	return nil
}

// Server events

func (c *Playback) started(_ context.Context, msg message.Message) error {
	raw, _ := msg.Value(message.KeyTlTrack)
	tl, ok := mopidy.ParseTlTrackData(raw)
	if !ok {
		return missing(msg, message.KeyTlTrack)
	}

	pb := c.env.Model.Playback
	pb.State.Set(model.StatePlaying)
	c.setCurrent(&tl)
	pb.SetTimePosition(0)
	pb.StreamTitle.Set("")
	c.remember(tl.Track.URI)

	c.fetchImage(tl.Track)
	return nil
}

func (c *Playback) transition(_ context.Context, msg message.Message) error {
	pb := c.env.Model.Playback
	switch msg.Type() {
	case message.TrackPlaybackPaused:
		pb.State.Set(model.StatePaused)
	case message.TrackPlaybackResumed:
		pb.State.Set(model.StatePlaying)
	}
	if pos := msg.Int64(message.KeyTimePosition, -1); pos >= 0 {
		pb.SetTimePosition(pos)
	}
	return nil
}

func (c *Playback) stateChanged(_ context.Context, msg message.Message) error {
	state := model.ParsePlaybackState(msg.String(message.KeyNewState))
	c.env.Model.Playback.State.Set(state)
	if state == model.StateStopped {
		c.env.Model.Playback.SetTimePosition(0)
	}
	return nil
}

func (c *Playback) seeked(_ context.Context, msg message.Message) error {
	pos := msg.Int64(message.KeyTimePosition, -1)
	if pos < 0 {
		return missing(msg, message.KeyTimePosition)
	}
	c.env.Model.Playback.SetTimePosition(pos)
	return nil
}

func (c *Playback) streamTitle(_ context.Context, msg message.Message) error {
	c.env.Model.Playback.StreamTitle.Set(msg.String(message.KeyTitle))
	return nil
}

// setCurrent submits the writes for a new current track; nil clears it.
func (c *Playback) setCurrent(tl *model.TlTrack) {
	pb := c.env.Model.Playback
	if tl == nil {
		pb.CurrentTlid.Set(-1)
		pb.CurrentTrackURI.Set("")
		pb.CurrentTrack.Set(model.Track{})
		pb.ImagePath.Set("")
		return
	}

	if tl.Track.URI != pb.CurrentTrackURI.Get() {
		pb.ImagePath.Set(c.albumImage(tl.Track))
	}
	pb.CurrentTlid.Set(tl.Tlid)
	pb.CurrentTrackURI.Set(tl.Track.URI)
	pb.CurrentTrack.Set(tl.Track)
}

// albumImage returns the image already known for the track's album.
func (c *Playback) albumImage(t model.Track) string {
	if album, ok := c.env.Model.Library.Album(t.AlbumURI); ok {
		return album.ImagePath.Get()
	}
	return ""
}

func (c *Playback) fetchImage(t model.Track) {
	if t.URI == "" {
		return
	}
	c.env.send(message.FetchTrackImages, message.Data{message.KeyURIs: []string{t.URI}})
}

func (c *Playback) remember(uri string) {
	size := c.historySize
	c.env.Model.History.Update(func(items []string) []string {
		if len(items) > 0 && items[0] == uri {
			return items
		}
		out := make([]string, 0, min(len(items)+1, size))
		out = append(out, uri)
		for _, it := range items {
			if len(out) == size {
				break
			}
			out = append(out, it)
		}
		return out
	})
}
