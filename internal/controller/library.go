package controller

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/edumarques81/stellar-remote/internal/bus"
	"github.com/edumarques81/stellar-remote/internal/domain/backend"
	"github.com/edumarques81/stellar-remote/internal/domain/model"
	"github.com/edumarques81/stellar-remote/internal/infra/mopidy"
	"github.com/edumarques81/stellar-remote/internal/message"
)

// Library browses directories and completes albums on demand.
type Library struct {
	env Env

	// preload asks for album tracks while browsing any backend. Only the
	// dispatch loop touches it.
	preload bool
}

func NewLibrary(env Env, preload bool) *Library {
	return &Library{env: env, preload: preload}
}

func (c *Library) Name() string { return "library" }

func (c *Library) Registrations() []bus.Registration {
	return []bus.Registration{
		{Types: []message.Type{message.BrowseDirectory}, Handler: c.browse},
		{Types: []message.Type{message.CompleteAlbum}, Handler: c.completeAlbum},
		{Types: []message.Type{message.SettingsChanged}, Handler: c.settingsChanged},
	}
}

// accumulators derive album metadata from a single pass over parsed tracks.
type accumulators struct {
	lengths *mopidy.LengthAccumulator
	artists *mopidy.ArtistAccumulator
	albums  *mopidy.AlbumAccumulator
}

func newAccumulators() accumulators {
	return accumulators{
		lengths: mopidy.NewLengthAccumulator(),
		artists: mopidy.NewArtistAccumulator(),
		albums:  mopidy.NewAlbumAccumulator(),
	}
}

func (a accumulators) visitors() []mopidy.TrackVisitor {
	return []mopidy.TrackVisitor{a.lengths, a.artists, a.albums}
}

// album merges what was seen for uri into base. Tracks may report a different
// album URI than the one looked up; the first track's album is used then.
func (a accumulators) album(base model.AlbumInfo, tracks []model.Track) model.AlbumInfo {
	key := base.URI
	if _, ok := a.albums.Album(key); !ok && len(tracks) > 0 && tracks[0].AlbumURI != "" {
		key = tracks[0].AlbumURI
	}

	info := base
	if seen, ok := a.albums.Album(key); ok {
		info.Name = lo.CoalesceOrEmpty(seen.Name, base.Name)
		info.NumTracks = seen.NumTracks
		info.NumDiscs = seen.NumDiscs
		info.Date = seen.Date
	}
	if artist := a.artists.Artist(key); artist != "" {
		info.ArtistName = artist
	}
	info.Length = a.lengths.Length(key)
	info.Tracks = tracks
	return info
}

func (c *Library) browse(ctx context.Context, msg message.Message) error {
	uri := msg.String(message.KeyURI)
	force := msg.Bool(message.KeyForce, false)

	if dir, ok := c.env.Model.Library.Directory(uri); ok && dir.Complete() && !force {
		log.Debug().Str("uri", uri).Msg("Directory already complete")
		c.env.send(message.DirectoryCompleted, message.Data{message.KeyURI: uri})
		return nil
	}

	b, ok := c.env.Backends.Lookup(uri)
	if !ok {
		log.Info().Str("uri", uri).Msg("No backend for directory")
		return nil
	}

	refs, ok := c.env.Core.Browse(ctx, uri)
	if !ok {
		return noResult("core.library.browse")
	}
	refs = lo.Filter(refs, func(r mopidy.Ref, _ int) bool {
		return c.listed(b, r.URI)
	})

	children, albumURIs := c.children(ctx, b, refs)
	if !c.env.Model.Library.ReplaceChildrenWait(WriteTimeout, uri, children) {
		log.Warn().Str("uri", uri).Msg("Directory write not confirmed")
	}

	log.Debug().
		Str("uri", uri).
		Int("directories", len(children.Directories)).
		Int("albums", len(children.Albums)).
		Int("playlists", len(children.Playlists)).
		Int("tracks", len(children.Tracks)).
		Msg("Directory loaded")

	c.env.send(message.DirectoryCompleted, message.Data{message.KeyURI: uri})
	if len(albumURIs) > 0 {
		c.env.send(message.FetchAlbumImages, message.Data{message.KeyURIs: albumURIs})
	}
	return nil
}

// listed reports whether a child is shown: the parent backend must not hide
// it and its own backend must be active.
func (c *Library) listed(parent *backend.Backend, uri string) bool {
	if parent.Hides(uri) {
		return false
	}
	_, ok := c.env.Backends.Lookup(uri)
	return ok
}

// children partitions refs and resolves what the backend needs resolved.
func (c *Library) children(ctx context.Context, b *backend.Backend, refs []mopidy.Ref) (model.Children, []string) {
	groups := lo.GroupBy(refs, func(r mopidy.Ref) mopidy.RefType { return r.Type })

	var children model.Children
	for _, r := range append(groups[mopidy.RefDirectory], groups[mopidy.RefArtist]...) {
		children.Directories = append(children.Directories, model.DirectoryInfo{URI: r.URI, Name: r.Name})
	}
	for _, r := range groups[mopidy.RefPlaylist] {
		children.Playlists = append(children.Playlists, model.PlaylistInfo{URI: r.URI, Name: r.Name})
	}

	albumRefs := groups[mopidy.RefAlbum]
	albumURIs := lo.Map(albumRefs, func(r mopidy.Ref, _ int) string { return r.URI })
	children.Albums = lo.Map(albumRefs, func(r mopidy.Ref, _ int) model.AlbumInfo {
		return model.AlbumInfo{URI: r.URI, Name: r.Name, Length: -1, Static: b.StaticAlbums}
	})
	if len(albumRefs) > 0 && !b.StaticAlbums && (b.PreloadTracks || c.preload) {
		children.Albums = c.preloadAlbums(ctx, children.Albums)
	}

	trackRefs := groups[mopidy.RefTrack]
	if len(trackRefs) > 0 {
		children.Tracks = c.resolveTracks(ctx, trackRefs)
	}
	return children, albumURIs
}

func (c *Library) preloadAlbums(ctx context.Context, albums []model.AlbumInfo) []model.AlbumInfo {
	uris := lo.Map(albums, func(a model.AlbumInfo, _ int) string { return a.URI })
	acc := newAccumulators()
	found := c.env.Core.Lookup(ctx, uris, progress("albums", len(uris)), acc.visitors()...)

	return lo.Map(albums, func(a model.AlbumInfo, _ int) model.AlbumInfo {
		tracks, ok := found[a.URI]
		if !ok || len(tracks) == 0 {
			return a
		}
		return acc.album(a, tracks)
	})
}

// resolveTracks looks up listed tracks. Tracks the server did not resolve keep
// the name of their reference.
func (c *Library) resolveTracks(ctx context.Context, refs []mopidy.Ref) []model.Track {
	uris := lo.Map(refs, func(r mopidy.Ref, _ int) string { return r.URI })
	found := c.env.Core.Lookup(ctx, uris, progress("tracks", len(uris)))

	return lo.Map(refs, func(r mopidy.Ref, _ int) model.Track {
		if tracks := found[r.URI]; len(tracks) > 0 {
			return tracks[0]
		}
		return model.Track{URI: r.URI, Name: r.Name, Length: -1}
	})
}

func progress(what string, total int) func(int) {
	return func(done int) {
		log.Debug().Str("what", what).Int("done", done).Int("total", total).Msg("Lookup progress")
	}
}

func (c *Library) completeAlbum(ctx context.Context, msg message.Message) error {
	uri, err := requireString(msg, message.KeyURI)
	if err != nil {
		return err
	}

	lib := c.env.Model.Library
	existing, known := lib.Album(uri)
	if known && existing.Complete() {
		c.env.send(message.AlbumCompleted, message.Data{message.KeyURI: uri})
		return nil
	}
	if _, ok := c.env.Backends.Lookup(uri); !ok {
		log.Info().Str("uri", uri).Msg("No backend for album")
		return nil
	}

	acc := newAccumulators()
	found := c.env.Core.Lookup(ctx, []string{uri}, nil, acc.visitors()...)
	tracks := found[uri]
	if len(tracks) == 0 {
		return noResult("core.library.lookup")
	}

	base := model.AlbumInfo{URI: uri, Length: -1}
	if known {
		base.Name = existing.Name()
	}
	info := acc.album(base, tracks)
	if !lib.UpdateAlbumWait(WriteTimeout, info) {
		log.Warn().Str("uri", uri).Msg("Album write not confirmed")
	}

	log.Debug().Str("uri", uri).Int("tracks", len(tracks)).Int64("length", info.Length).Msg("Album completed")
	c.env.send(message.AlbumCompleted, message.Data{message.KeyURI: uri})
	c.env.send(message.FetchAlbumImages, message.Data{message.KeyURIs: []string{uri}})
	return nil
}

func (c *Library) settingsChanged(_ context.Context, msg message.Message) error {
	if msg.Has(message.KeyPreloadAlbumTracks) {
		c.preload = msg.Bool(message.KeyPreloadAlbumTracks, c.preload)
	}
	if msg.Has(message.KeyDisabledBackends) {
		c.env.Backends.SetDisabled(backend.ParseKinds(msg.Strings(message.KeyDisabledBackends))...)
		active := lo.Map(c.env.Backends.Active(), func(b *backend.Backend, _ int) string { return string(b.Kind) })
		log.Info().Strs("active", active).Msg("Backends changed")
	}
	if msg.Has(message.KeyLookupSliceSize) {
		c.env.Core.SetSliceSize(msg.Int(message.KeyLookupSliceSize, 0))
	}
	return nil
}
