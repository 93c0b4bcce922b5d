package controller_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumarques81/stellar-remote/internal/controller"
	"github.com/edumarques81/stellar-remote/internal/domain/artwork"
	"github.com/edumarques81/stellar-remote/internal/domain/model"
	"github.com/edumarques81/stellar-remote/internal/message"
)

type fakeImageCache map[string]string

func (c fakeImageCache) Lookup(uri string) (string, bool) {
	path, ok := c[uri]
	return path, ok
}

type jobQueue struct {
	mu   sync.Mutex
	jobs []artwork.Job
}

func (q *jobQueue) Submit(job artwork.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
}

func TestFetchAlbumImages(t *testing.T) {
	h := newHarness(t)
	cache := fakeImageCache{"local:album:a": "/cache/a.jpg"}
	queue := &jobQueue{}
	h.register(controller.NewImages(h.env, cache, queue))
	h.server.set("core.library.get_images", `{
		"local:album:b": [{"uri":"/local/b-small.jpg","width":64},{"uri":"/local/b-big.jpg","width":600}],
		"local:album:c": []
	}`)

	require.True(t, h.model.Library.ReplaceChildrenWait(wait, "local:directory", model.Children{
		Albums: []model.AlbumInfo{{URI: "local:album:a"}, {URI: "local:album:b"}, {URI: "local:album:c"}},
	}))

	h.deliver(message.FetchAlbumImages, message.Data{"uris": []string{"local:album:a", "local:album:b", "local:album:c", "local:album:a"}})

	a, _ := h.model.Library.Album("local:album:a")
	assert.Equal(t, "/cache/a.jpg", a.ImagePath.Get())

	c, ok := h.server.last("core.library.get_images")
	require.True(t, ok)
	assert.Equal(t, []string{"local:album:b", "local:album:c"}, c.params["uris"])
	assert.Equal(t, []artwork.Job{{URI: "local:album:b", ImageURI: "/local/b-big.jpg"}}, queue.jobs)

	h.deliver(message.ImageAvailable, message.Data{"uri": "local:album:b", "path": "/cache/b.jpg"})
	b, _ := h.model.Library.Album("local:album:b")
	assert.Equal(t, "/cache/b.jpg", b.ImagePath.Get())
}

func TestImageAvailableForCurrentTrack(t *testing.T) {
	h := newHarness(t)
	h.register(controller.NewImages(h.env, fakeImageCache{}, &jobQueue{}))

	pb := h.model.Playback
	pb.CurrentTrackURI.Set("local:track:a1")
	pb.CurrentTrack.Set(model.Track{URI: "local:track:a1", AlbumURI: "local:album:a"})

	h.deliver(message.ImageAvailable, message.Data{"uri": "local:album:a", "path": "/cache/a.jpg"})
	assert.Equal(t, "/cache/a.jpg", pb.ImagePath.Get())

	h.deliver(message.ImageAvailable, message.Data{"uri": "local:album:z", "path": "/cache/z.jpg"})
	assert.Equal(t, "/cache/a.jpg", pb.ImagePath.Get())
}

func TestAnnounceSendsImageAvailable(t *testing.T) {
	out := &outbox{}
	controller.Announce(out)("local:album:a", "/cache/a.jpg")

	msg, ok := out.find(message.ImageAvailable)
	require.True(t, ok)
	assert.Equal(t, "local:album:a", msg.String("uri"))
	assert.Equal(t, "/cache/a.jpg", msg.String("path"))
}
