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

// ArtistsURI is the local backend listing of all artists.
const ArtistsURI = "local:directory?type=artist"

// Artists collects the artist index and the albums of each artist.
type Artists struct {
	env Env
}

func NewArtists(env Env) *Artists {
	return &Artists{env: env}
}

func (c *Artists) Name() string { return "artists" }

func (c *Artists) Registrations() []bus.Registration {
	return []bus.Registration{
		{Types: []message.Type{message.CollectArtists}, Handler: c.collect},
		{Types: []message.Type{message.CompleteArtist}, Handler: c.complete},
	}
}

func (c *Artists) collect(ctx context.Context, _ message.Message) error {
	if _, ok := c.env.Backends.Lookup(ArtistsURI); !ok {
		log.Info().Msg("Artist listing unavailable")
		return nil
	}

	refs, ok := c.env.Core.Browse(ctx, ArtistsURI)
	if !ok {
		return noResult("core.library.browse")
	}
	infos := lo.FilterMap(refs, func(r mopidy.Ref, _ int) (model.ArtistInfo, bool) {
		return model.ArtistInfo{URI: r.URI, Name: r.Name}, r.Type == mopidy.RefArtist || r.Type == mopidy.RefDirectory
	})
	c.env.Model.Artists.Replace(infos)
	log.Debug().Int("artists", len(infos)).Msg("Artists collected")
	return nil
}

func (c *Artists) complete(ctx context.Context, msg message.Message) error {
	uri, err := requireString(msg, message.KeyURI)
	if err != nil {
		return err
	}

	if a, ok := c.env.Model.Artists.Get(uri); ok && a.Complete() && !msg.Bool(message.KeyForce, false) {
		c.env.send(message.ArtistCompleted, message.Data{message.KeyURI: uri})
		return nil
	}
	if _, ok := c.env.Backends.Lookup(uri); !ok {
		log.Info().Str("uri", uri).Msg("No backend for artist")
		return nil
	}

	refs, ok := c.env.Core.Browse(ctx, uri)
	if !ok {
		return noResult("core.library.browse")
	}
	albums := lo.FilterMap(refs, func(r mopidy.Ref, _ int) (model.AlbumInfo, bool) {
		return model.AlbumInfo{URI: r.URI, Name: r.Name, Length: -1}, r.Type == mopidy.RefAlbum
	})
	c.env.Model.Artists.SetAlbums(uri, albums)

	log.Debug().Str("uri", uri).Int("albums", len(albums)).Msg("Artist completed")
	c.env.send(message.ArtistCompleted, message.Data{message.KeyURI: uri})
	if len(albums) > 0 {
		uris := lo.Map(albums, func(a model.AlbumInfo, _ int) string { return a.URI })
		c.env.send(message.FetchAlbumImages, message.Data{message.KeyURIs: uris})
	}
	return nil
}
