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

// DefaultPlaylistScheme is the backend new playlists are created in.
const DefaultPlaylistScheme = "m3u"

// Playlists keeps the stored playlists in sync and edits them on request.
type Playlists struct {
	env Env
}

func NewPlaylists(env Env) *Playlists {
	return &Playlists{env: env}
}

func (c *Playlists) Name() string { return "playlists" }

func (c *Playlists) Registrations() []bus.Registration {
	return []bus.Registration{
		{Types: []message.Type{message.ListPlaylists, message.PlaylistsLoaded}, Handler: c.list},
		{Types: []message.Type{message.CompletePlaylist}, Handler: c.complete},
		{Types: []message.Type{message.PlaylistChanged}, Handler: c.changed},
		{Types: []message.Type{message.PlaylistDeleted}, Handler: c.deleted},
		{Types: []message.Type{message.SavePlaylist}, Handler: c.save},
		{Types: []message.Type{message.DeletePlaylist}, Handler: c.delete},
	}
}

func (c *Playlists) list(ctx context.Context, _ message.Message) error {
	refs, ok := c.env.Core.Playlists(ctx)
	if !ok {
		return noResult("core.playlists.as_list")
	}
	infos := lo.FilterMap(refs, func(r mopidy.Ref, _ int) (model.PlaylistInfo, bool) {
		return model.PlaylistInfo{URI: r.URI, Name: r.Name}, r.Type == mopidy.RefPlaylist
	})
	c.env.Model.Playlists.Replace(infos)
	log.Debug().Int("playlists", len(infos)).Msg("Playlists listed")
	return nil
}

// complete loads the tracks of a playlist. The server is always asked, since
// a playlist may have been edited while no event could reach us; loaded tracks
// are kept when its last_modified is the one already stored.
func (c *Playlists) complete(ctx context.Context, msg message.Message) error {
	uri, err := requireString(msg, message.KeyURI)
	if err != nil {
		return err
	}

	info, tracks, ok := c.env.Core.Playlist(ctx, uri)
	if !ok {
		return noResult("core.playlists.lookup")
	}

	if p, known := c.env.Model.Playlists.Get(uri); known && p.Complete() && !msg.Bool(message.KeyForce, false) &&
		info.LastModified != 0 && info.LastModified == p.LastModified() {
		log.Debug().Str("uri", uri).Int64("last_modified", info.LastModified).Msg("Playlist unchanged")
		c.env.send(message.PlaylistCompleted, message.Data{message.KeyURI: uri})
		return nil
	}

	if !c.env.Model.Playlists.SetTracksWait(WriteTimeout, uri, info.LastModified, tracks) {
		log.Warn().Str("uri", uri).Msg("Playlist write not confirmed")
	}

	log.Debug().Str("uri", uri).Int("tracks", len(tracks)).Msg("Playlist completed")
	c.env.send(message.PlaylistCompleted, message.Data{message.KeyURI: uri})
	return nil
}

func (c *Playlists) changed(_ context.Context, msg message.Message) error {
	raw, _ := msg.Value(message.KeyPlaylist)
	info, tracks, ok := mopidy.ParsePlaylistData(raw)
	if !ok {
		return missing(msg, message.KeyPlaylist)
	}
	c.env.Model.Playlists.Upsert(info, tracks)
	if len(tracks) > 0 {
		c.env.send(message.PlaylistCompleted, message.Data{message.KeyURI: info.URI})
	}
	return nil
}

func (c *Playlists) deleted(_ context.Context, msg message.Message) error {
	uri, err := requireString(msg, message.KeyURI)
	if err != nil {
		return err
	}
	c.env.Model.Playlists.Remove(uri)
	return nil
}

// save stores uris under a playlist. Without a URI a playlist named name is
// created first.
func (c *Playlists) save(ctx context.Context, msg message.Message) error {
	name, err := requireString(msg, message.KeyName)
	if err != nil {
		return err
	}
	uris := msg.Strings(message.KeyURIs)
	uri := msg.String(message.KeyURI)
	log.Info().Str("name", name).Str("uri", uri).Int("tracks", len(uris)).Msg("Save playlist")

	if uri == "" {
		scheme := msg.String(message.KeyScheme)
		if scheme == "" {
			scheme = DefaultPlaylistScheme
		}
		created, ok := c.env.Core.CreatePlaylist(ctx, name, scheme)
		if !ok {
			return noResult("core.playlists.create")
		}
		uri = created
	}

	if !c.env.Core.SavePlaylist(ctx, uri, name, uris) {
		return noResult("core.playlists.save")
	}
	return nil
}

func (c *Playlists) delete(ctx context.Context, msg message.Message) error {
	uri, err := requireString(msg, message.KeyURI)
	if err != nil {
		return err
	}
	log.Info().Str("uri", uri).Msg("Delete playlist")
	if !c.env.Core.DeletePlaylist(ctx, uri) {
		return noResult("core.playlists.delete")
	}
	c.env.Model.Playlists.Remove(uri)
	return nil
}
