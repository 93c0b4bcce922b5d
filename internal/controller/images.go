package controller

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/edumarques81/stellar-remote/internal/bus"
	"github.com/edumarques81/stellar-remote/internal/domain/artwork"
	"github.com/edumarques81/stellar-remote/internal/infra/mopidy"
	"github.com/edumarques81/stellar-remote/internal/message"
)

// ImageCache resolves URIs to already stored image files.
type ImageCache interface {
	Lookup(uri string) (string, bool)
}

// ImageQueue accepts background image downloads.
type ImageQueue interface {
	Submit(job artwork.Job)
}

// Images attaches local image files to albums and the current track. Files are
// downloaded off the dispatch loop; completion comes back as ImageAvailable.
type Images struct {
	env   Env
	cache ImageCache
	queue ImageQueue
}

func NewImages(env Env, cache ImageCache, queue ImageQueue) *Images {
	return &Images{env: env, cache: cache, queue: queue}
}

// Announce returns the callback that reports finished downloads to the loop.
func Announce(s bus.Sender) artwork.DoneFunc {
	return func(uri, path string) {
		s.Send(message.New(message.ImageAvailable, message.Data{message.KeyURI: uri, message.KeyPath: path}))
	}
}

func (c *Images) Name() string { return "images" }

func (c *Images) Registrations() []bus.Registration {
	return []bus.Registration{
		{Types: []message.Type{message.FetchAlbumImages, message.FetchTrackImages}, Handler: c.fetch},
		{Types: []message.Type{message.ImageAvailable}, Handler: c.available},
	}
}

func (c *Images) fetch(ctx context.Context, msg message.Message) error {
	uris := lo.Compact(lo.Uniq(msg.Strings(message.KeyURIs)))
	if len(uris) == 0 {
		return missing(msg, message.KeyURIs)
	}

	var missingURIs []string
	for _, uri := range uris {
		if path, ok := c.cache.Lookup(uri); ok {
			c.attach(uri, path)
			continue
		}
		missingURIs = append(missingURIs, uri)
	}
	if len(missingURIs) == 0 {
		return nil
	}

	images := c.env.Core.Images(ctx, missingURIs, progress("images", len(missingURIs)))
	queued := 0
	for _, uri := range missingURIs {
		img, ok := mopidy.LargestImage(images[uri])
		if !ok {
			continue
		}
		c.queue.Submit(artwork.Job{URI: uri, ImageURI: img.URI})
		queued++
	}
	log.Debug().Int("requested", len(uris)).Int("queued", queued).Msg("Image fetch")
	return nil
}

func (c *Images) available(_ context.Context, msg message.Message) error {
	uri, err := requireString(msg, message.KeyURI)
	if err != nil {
		return err
	}
	path, err := requireString(msg, message.KeyPath)
	if err != nil {
		return err
	}
	c.attach(uri, path)
	return nil
}

// attach stores path on the album uri and on the current track when uri is
// that track or its album. The lookup runs on the executor so that pending
// library and track writes are applied first.
func (c *Images) attach(uri, path string) {
	m := c.env.Model
	pb := m.Playback
	m.Executor().Post(func() {
		if album, ok := m.Library.Album(uri); ok {
			album.ImagePath.Set(path)
		}
		if uri == pb.CurrentTrackURI.Get() || uri == pb.CurrentTrack.Get().AlbumURI {
			pb.ImagePath.Set(path)
		}
	})
}
