package controller

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/edumarques81/stellar-remote/internal/bus"
	"github.com/edumarques81/stellar-remote/internal/domain/model"
	"github.com/edumarques81/stellar-remote/internal/infra/mopidy"
	"github.com/edumarques81/stellar-remote/internal/message"
)

var optionCommands = map[message.Type]mopidy.Option{
	message.SetConsume: mopidy.OptionConsume,
	message.SetRandom:  mopidy.OptionRandom,
	message.SetRepeat:  mopidy.OptionRepeat,
	message.SetSingle:  mopidy.OptionSingle,
}

// Tracklist keeps the play queue in sync and edits it on request.
type Tracklist struct {
	env Env
}

func NewTracklist(env Env) *Tracklist {
	return &Tracklist{env: env}
}

func (c *Tracklist) Name() string { return "tracklist" }

func (c *Tracklist) Registrations() []bus.Registration {
	return []bus.Registration{
		{Types: []message.Type{message.FetchTracklist}, Handler: c.fetchAll},
		{Types: []message.Type{message.TracklistChanged}, Handler: c.fetchTracks},
		{Types: []message.Type{message.OptionsChanged}, Handler: c.fetchOptions},
		{Types: []message.Type{message.PlayTracks}, Handler: c.playTracks},
		{Types: []message.Type{message.AddToTracklist}, Handler: c.add},
		{Types: []message.Type{message.RemoveFromTracklist}, Handler: c.remove},
		{Types: []message.Type{message.ClearTracklist}, Handler: c.clear},
		{Types: []message.Type{message.SetConsume, message.SetRandom, message.SetRepeat, message.SetSingle}, Handler: c.setOption},
		{Types: []message.Type{message.PlayRandomAlbum}, Handler: c.playRandomAlbum},
	}
}

func (c *Tracklist) fetchAll(ctx context.Context, msg message.Message) error {
	if err := c.fetchTracks(ctx, msg); err != nil {
		return err
	}
	return c.fetchOptions(ctx, msg)
}

// fetchTracks loads the queue unless the server version is the loaded one.
func (c *Tracklist) fetchTracks(ctx context.Context, _ message.Message) error {
	version, ok := c.env.Core.TracklistVersion(ctx)
	if !ok {
		return noResult("core.tracklist.get_version")
	}
	if version == c.env.Model.Tracklist.Version.Get() {
		log.Debug().Int("version", version).Msg("Tracklist up to date")
		return nil
	}

	tracks, ok := c.env.Core.TlTracks(ctx)
	if !ok {
		return noResult("core.tracklist.get_tl_tracks")
	}
	c.env.Model.Tracklist.Update(version, tracks)
	log.Debug().Int("version", version).Int("tracks", len(tracks)).Msg("Tracklist loaded")

	c.env.send(message.ModelChanged, message.Data{message.KeyPart: "tracklist"})
	return nil
}

func (c *Tracklist) fetchOptions(ctx context.Context, _ message.Message) error {
	tl := c.env.Model.Tracklist
	fields := map[mopidy.Option]*model.Value[bool]{
		mopidy.OptionConsume: tl.Consume,
		mopidy.OptionRandom:  tl.Random,
		mopidy.OptionRepeat:  tl.Repeat,
		mopidy.OptionSingle:  tl.Single,
	}
	for opt, field := range fields {
		v, ok := c.env.Core.GetOption(ctx, opt)
		if !ok {
			return noResult("core.tracklist.get_" + string(opt))
		}
		field.Set(v)
	}
	return nil
}

func (c *Tracklist) playTracks(ctx context.Context, msg message.Message) error {
	uris := msg.Strings(message.KeyURIs)
	if len(uris) == 0 {
		return missing(msg, message.KeyURIs)
	}
	return c.replaceAndPlay(ctx, uris)
}

func (c *Tracklist) replaceAndPlay(ctx context.Context, uris []string) error {
	log.Info().Int("count", len(uris)).Msg("Play tracks")

	core := c.env.Core
	if !core.Clear(ctx) {
		return noResult("core.tracklist.clear")
	}
	added, ok := core.Add(ctx, uris, -1)
	if !ok {
		return noResult("core.tracklist.add")
	}
	if len(added) == 0 {
		log.Warn().Strs("uris", uris).Msg("Nothing was added to the tracklist")
		return nil
	}
	if !core.Play(ctx, added[0].Tlid) {
		return noResult("core.playback.play")
	}
	return nil
}

func (c *Tracklist) add(ctx context.Context, msg message.Message) error {
	uris := msg.Strings(message.KeyURIs)
	if len(uris) == 0 {
		return missing(msg, message.KeyURIs)
	}
	position := msg.Int(message.KeyPosition, -1)
	log.Info().Int("count", len(uris)).Int("position", position).Msg("Add to tracklist")
	if _, ok := c.env.Core.Add(ctx, uris, position); !ok {
		return noResult("core.tracklist.add")
	}
	return nil
}

func (c *Tracklist) remove(ctx context.Context, msg message.Message) error {
	tlids := msg.Ints(message.KeyTlids)
	if len(tlids) == 0 {
		return missing(msg, message.KeyTlids)
	}
	log.Info().Ints("tlids", tlids).Msg("Remove from tracklist")
	if !c.env.Core.Remove(ctx, tlids) {
		return noResult("core.tracklist.remove")
	}
	return nil
}

func (c *Tracklist) clear(ctx context.Context, _ message.Message) error {
	log.Info().Msg("Clear tracklist")
	if !c.env.Core.Clear(ctx) {
		return noResult("core.tracklist.clear")
	}
	return nil
}

func (c *Tracklist) setOption(ctx context.Context, msg message.Message) error {
	opt := optionCommands[msg.Type()]
	if !msg.Has(message.KeyValue) {
		return missing(msg, message.KeyValue)
	}
	value := msg.Bool(message.KeyValue, false)
	log.Info().Str("option", string(opt)).Bool("value", value).Msg("Set option")
	if !c.env.Core.SetOption(ctx, opt, value) {
		return noResult("core.tracklist.set_" + string(opt))
	}
	return nil
}

// playRandomAlbum picks one of the known albums whose backend allows random
// picks and plays it from the start.
func (c *Tracklist) playRandomAlbum(ctx context.Context, _ message.Message) error {
	candidates := lo.Filter(c.env.Model.Library.Albums(), func(a *model.Album, _ int) bool {
		return c.env.Backends.RandomCandidate(a.URI)
	})
	if len(candidates) == 0 {
		log.Info().Msg("No album to pick at random")
		return nil
	}

	album := lo.Sample(candidates)
	log.Info().Str("album", album.URI).Str("name", album.Name()).Msg("Play random album")

	uris := lo.Map(album.Tracks(), func(t model.Track, _ int) string { return t.URI })
	if len(uris) == 0 {
		uris = []string{album.URI}
	}
	return c.replaceAndPlay(ctx, uris)
}
