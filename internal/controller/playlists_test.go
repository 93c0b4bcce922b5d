package controller_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumarques81/stellar-remote/internal/controller"
	"github.com/edumarques81/stellar-remote/internal/message"
)

func TestListAndCompletePlaylists(t *testing.T) {
	h := newHarness(t)
	h.register(controller.NewPlaylists(h.env))
	h.server.set("core.playlists.as_list", `[
		{"type":"playlist","uri":"m3u:a.m3u","name":"A"},
		{"type":"playlist","uri":"m3u:b.m3u","name":"B"}
	]`)
	h.server.set("core.playlists.lookup", `{"__model__":"Playlist","uri":"m3u:a.m3u","name":"A","last_modified":100,
		"tracks":[`+trackA1+`,`+trackA2+`]}`)

	h.deliver(message.ListPlaylists, nil)
	all := h.model.Playlists.All()
	require.Len(t, all, 2)
	assert.Equal(t, "B", all[1].Name())

	h.deliver(message.CompletePlaylist, message.Data{"uri": "m3u:a.m3u"})
	p, ok := h.model.Playlists.Get("m3u:a.m3u")
	require.True(t, ok)
	assert.True(t, p.Complete())
	assert.Len(t, p.Tracks(), 2)
	assert.Equal(t, int64(100), p.LastModified())
	assert.Equal(t, []message.Type{message.PlaylistCompleted}, h.out.types())

	// Loaded tracks are kept while the playlist is unchanged.
	var notified atomic.Int32
	p.Changed.Observe(func() { notified.Add(1) })
	h.deliver(message.CompletePlaylist, message.Data{"uri": "m3u:a.m3u"})
	assert.Equal(t, 2, h.server.count("core.playlists.lookup"))
	assert.Zero(t, notified.Load())
	assert.Len(t, p.Tracks(), 2)

	// A newer version invalidates them.
	h.deliver(message.PlaylistChanged, message.Data{"playlist": map[string]any{
		"__model__": "Playlist", "uri": "m3u:a.m3u", "name": "A", "last_modified": 200,
	}})
	assert.False(t, p.Complete())
	h.deliver(message.CompletePlaylist, message.Data{"uri": "m3u:a.m3u"})
	assert.Equal(t, 3, h.server.count("core.playlists.lookup"))
	assert.True(t, p.Complete())

	h.deliver(message.PlaylistDeleted, message.Data{"uri": "m3u:b.m3u"})
	assert.Len(t, h.model.Playlists.All(), 1)
}

func TestCompletePlaylistReloadsWhenEditedUnannounced(t *testing.T) {
	h := newHarness(t)
	h.register(controller.NewPlaylists(h.env))
	h.server.set("core.playlists.lookup", `{"__model__":"Playlist","uri":"m3u:a.m3u","name":"A","last_modified":100,
		"tracks":[`+trackA1+`,`+trackA2+`]}`)
	h.deliver(message.CompletePlaylist, message.Data{"uri": "m3u:a.m3u"})
	p, ok := h.model.Playlists.Get("m3u:a.m3u")
	require.True(t, ok)
	require.Len(t, p.Tracks(), 2)

	// Edited on the server without a playlist_changed event reaching us.
	h.server.set("core.playlists.lookup", `{"__model__":"Playlist","uri":"m3u:a.m3u","name":"A","last_modified":300,
		"tracks":[`+trackA2+`]}`)
	h.deliver(message.CompletePlaylist, message.Data{"uri": "m3u:a.m3u"})

	require.Len(t, p.Tracks(), 1)
	assert.Equal(t, "local:track:a2", p.Tracks()[0].URI)
	assert.Equal(t, int64(300), p.LastModified())
}

func TestPlaylistChangedAddsNewPlaylist(t *testing.T) {
	h := newHarness(t)
	h.register(controller.NewPlaylists(h.env))

	h.deliver(message.PlaylistChanged, message.Data{"playlist": eventData(t,
		`{"__model__":"Playlist","uri":"m3u:new.m3u","name":"New","last_modified":5,"tracks":[`+trackA1+`]}`)})

	all := h.model.Playlists.All()
	require.Len(t, all, 1)
	assert.Equal(t, "New", all[0].Name())
	assert.True(t, all[0].Complete())
	_, ok := h.out.find(message.PlaylistCompleted)
	assert.True(t, ok)
}

func TestSavePlaylistCreatesWhenNew(t *testing.T) {
	h := newHarness(t)
	h.register(controller.NewPlaylists(h.env))
	h.server.set("core.playlists.create", `{"__model__":"Playlist","uri":"m3u:Road.m3u","name":"Road"}`)
	h.server.set("core.playlists.save", `{"__model__":"Playlist","uri":"m3u:Road.m3u","name":"Road"}`)

	h.deliver(message.SavePlaylist, message.Data{"name": "Road", "uris": []string{"local:track:a1"}})

	assert.Equal(t, []string{"core.playlists.create", "core.playlists.save"}, h.server.methods())
	c, _ := h.server.last("core.playlists.create")
	assert.Equal(t, "m3u", c.params["uri_scheme"])
	c, _ = h.server.last("core.playlists.save")
	saved := c.params["playlist"].(map[string]any)
	assert.Equal(t, "m3u:Road.m3u", saved["uri"])
	assert.Len(t, saved["tracks"], 1)
}

func TestDeletePlaylist(t *testing.T) {
	h := newHarness(t)
	h.register(controller.NewPlaylists(h.env))
	h.server.set("core.playlists.as_list", `[{"type":"playlist","uri":"m3u:a.m3u","name":"A"}]`)
	h.server.set("core.playlists.delete", "true")

	h.deliver(message.ListPlaylists, nil)
	h.deliver(message.DeletePlaylist, message.Data{"uri": "m3u:a.m3u"})

	assert.Empty(t, h.model.Playlists.All())
}

func TestArtists(t *testing.T) {
	h := newHarness(t)
	h.register(controller.NewArtists(h.env))
	h.server.respond = func(method string, params map[string]any) (string, bool) {
		if method != "core.library.browse" {
			return "", false
		}
		switch params["uri"] {
		case controller.ArtistsURI:
			return `[{"type":"artist","uri":"local:artist:band","name":"Band"}]`, true
		case "local:artist:band":
			return `[{"type":"album","uri":"local:album:a","name":"Album A"},{"type":"track","uri":"local:track:x","name":"x"}]`, true
		}
		return "", false
	}

	h.deliver(message.CollectArtists, nil)
	artists := h.model.Artists.All()
	require.Len(t, artists, 1)
	assert.Equal(t, "Band", artists[0].Name)

	h.deliver(message.CompleteArtist, message.Data{"uri": "local:artist:band"})
	assert.True(t, artists[0].Complete())
	albums := artists[0].Albums()
	require.Len(t, albums, 1)

	libAlbum, ok := h.model.Library.Album("local:album:a")
	require.True(t, ok)
	assert.Same(t, libAlbum, albums[0])
	assert.Equal(t, []message.Type{message.ArtistCompleted, message.FetchAlbumImages}, h.out.types())
}
