package socketio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumarques81/stellar-remote/internal/bus"
	"github.com/edumarques81/stellar-remote/internal/domain/model"
	"github.com/edumarques81/stellar-remote/internal/message"
)

const wait = time.Second

type emitted struct {
	event   string
	payload any
}

type fixture struct {
	t      *testing.T
	model  *model.Model
	server *Server
	disp   *bus.Dispatcher

	mu   sync.Mutex
	sent []message.Message
	out  []emitted
}

func (f *fixture) Send(msg message.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
}

func (f *fixture) messages() []message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message.Message(nil), f.sent...)
}

func (f *fixture) emitted(event string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var payloads []any
	for _, e := range f.out {
		if e.event == event {
			payloads = append(payloads, e.payload)
		}
	}
	return payloads
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	exec := model.NewExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = exec.Run(ctx)
	}()

	f := &fixture{t: t, model: model.New(exec), disp: bus.NewDispatcher()}
	server, err := NewServer(f.model, f, Options{Window: 10 * time.Millisecond})
	require.NoError(t, err)
	server.broadcast = func(event string, payload any) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.out = append(f.out, emitted{event, payload})
	}
	f.server = server
	require.NoError(t, f.disp.Register(server))

	t.Cleanup(func() {
		_ = server.Close()
		cancel()
		<-done
	})
	return f
}

func (f *fixture) deliver(t message.Type, data message.Data) {
	f.disp.Dispatch(context.Background(), message.New(t, data))
}

func TestTranslateClientEvents(t *testing.T) {
	tests := []struct {
		event string
		args  []any
		want  message.Type
		data  message.Data
	}{
		{"toggle", nil, message.TogglePlaybackState, nil},
		{"next", nil, message.PlayNextTrack, nil},
		{"prev", nil, message.PlayPrevTrack, nil},
		{"play", nil, message.Play, message.Data{"tlid": -1}},
		{"play", []any{map[string]any{"tlid": float64(7)}}, message.Play, message.Data{"tlid": 7}},
		{"volume", []any{float64(42)}, message.SetVolume, message.Data{"volume": 42}},
		{"volume", []any{map[string]any{"value": "30"}}, message.SetVolume, message.Data{"volume": 30}},
		{"mute", []any{true}, message.SetMute, message.Data{"mute": true}},
		{"setRandom", []any{map[string]any{"value": true}}, message.SetRandom, message.Data{"value": true}},
		{"setSingle", []any{false}, message.SetSingle, message.Data{"value": false}},
		{"browse", []any{map[string]any{"uri": "local:directory", "force": true}}, message.BrowseDirectory,
			message.Data{"uri": "local:directory", "force": true}},
		{"completeAlbum", []any{"local:album:a"}, message.CompleteAlbum, message.Data{"uri": "local:album:a"}},
		{"playTracks", []any{map[string]any{"uris": []any{"a", "b"}}}, message.PlayTracks,
			message.Data{"uris": []string{"a", "b"}}},
		{"addToQueue", []any{map[string]any{"uri": "a", "position": float64(3)}}, message.AddToTracklist,
			message.Data{"uris": []string{"a"}, "position": 3}},
		{"removeFromQueue", []any{float64(4)}, message.RemoveFromTracklist, message.Data{"tlids": []int{4}}},
		{"clearQueue", nil, message.ClearTracklist, nil},
		{"listPlaylists", nil, message.ListPlaylists, nil},
		{"playRandomAlbum", nil, message.PlayRandomAlbum, nil},
		{"savePlaylist", []any{map[string]any{"name": "Road", "uris": []any{"a"}}}, message.SavePlaylist,
			message.Data{"name": "Road", "uris": []string{"a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			msg, ok := translate(tt.event, tt.args)
			require.True(t, ok)
			assert.Equal(t, message.New(tt.want, tt.data), msg)
		})
	}
}

func TestTranslateRejectsBadArguments(t *testing.T) {
	tests := []struct {
		event string
		args  []any
	}{
		{"volume", nil},
		{"volume", []any{"loud"}},
		{"volume", []any{float64(-3)}},
		{"mute", nil},
		{"setRepeat", []any{map[string]any{}}},
		{"browse", nil},
		{"playTracks", []any{map[string]any{"uris": []any{}}}},
		{"removeFromQueue", nil},
		{"savePlaylist", []any{map[string]any{"uris": []any{"a"}}}},
		{"explode", nil},
	}
	for _, tt := range tests {
		_, ok := translate(tt.event, tt.args)
		assert.False(t, ok, tt.event)
	}
}

func TestHandleSendsCommands(t *testing.T) {
	f := newFixture(t)

	f.server.handle("c1", "next", nil)
	f.server.handle("c1", "volume", []any{"nope"})
	msgs := f.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, message.PlayNextTrack, msgs[0].Type())
}

func TestPauseOnlyWhilePlaying(t *testing.T) {
	f := newFixture(t)

	f.server.handle("c1", "pause", nil)
	assert.Empty(t, f.messages())

	require.True(t, f.model.Playback.State.SetWait(wait, model.StatePlaying))
	f.server.handle("c1", "pause", nil)
	msgs := f.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, message.TogglePlaybackState, msgs[0].Type())
}

func TestSeekWritesPosition(t *testing.T) {
	f := newFixture(t)
	var forwarded []int64
	f.model.Playback.ForwardUserSeeks(func(pos int64) { forwarded = append(forwarded, pos) })

	f.server.handle("c1", "seek", []any{float64(90000)})
	f.server.handle("c1", "seek", []any{map[string]any{"position": -5}})
	require.True(t, f.model.Executor().Flush(wait))

	assert.Equal(t, int64(90000), f.model.Playback.TimePosition.Get())
	assert.Equal(t, []int64{90000}, forwarded)
	assert.Empty(t, f.messages())
}

func TestModelChangesAreBroadcast(t *testing.T) {
	f := newFixture(t)

	pb := f.model.Playback
	pb.State.Set(model.StatePlaying)
	pb.CurrentTrack.Set(model.Track{URI: "local:track:a1", Name: "One", Length: 200000})
	pb.ImagePath.Set("/var/cache/remote/ab12.jpg")
	f.model.Mixer.Volume.Set(40)
	require.True(t, f.model.Executor().Flush(wait))

	require.Eventually(t, func() bool { return len(f.emitted("pushState")) == 1 }, wait, 5*time.Millisecond)
	state := f.emitted("pushState")[0].(StatePayload)
	assert.Equal(t, model.StatePlaying, state.State)
	assert.Equal(t, "One", state.Title)
	assert.Equal(t, 40, state.Volume)
	assert.Equal(t, "/images/ab12.jpg", state.Image)
	assert.Empty(t, state.ImagePath)

	f.model.Tracklist.Update(2, []model.TlTrack{{Tlid: 1, Track: model.Track{URI: "local:track:a1", Name: "One"}}})
	require.Eventually(t, func() bool { return len(f.emitted("pushQueue")) == 1 }, wait, 5*time.Millisecond)
	queue := f.emitted("pushQueue")[0].(QueuePayload)
	assert.Equal(t, 2, queue.Version)
	require.Len(t, queue.Items, 1)
	assert.Equal(t, 1, queue.Items[0].Tlid)
	assert.Equal(t, "One", queue.Items[0].Title)
}

func TestCompletionMessagesPushLibrary(t *testing.T) {
	f := newFixture(t)
	lib := f.model.Library
	require.True(t, lib.ReplaceChildrenWait(wait, "local:directory", model.Children{
		Directories: []model.DirectoryInfo{{URI: "local:directory?type=artist", Name: "Artists"}},
		Albums: []model.AlbumInfo{{URI: "local:album:a", Name: "Album A", ArtistName: "Band", Length: -1,
			Tracks: []model.Track{{URI: "local:track:a1", Name: "One", Length: 1000}}}},
	}))

	f.deliver(message.DirectoryCompleted, message.Data{"uri": "local:directory"})
	f.deliver(message.DirectoryCompleted, message.Data{"uri": "local:unknown"})
	libs := f.emitted("pushLibrary")
	require.Len(t, libs, 1)
	listing := libs[0].(LibraryPayload)
	assert.Equal(t, "local:directory", listing.URI)
	assert.Equal(t, []refItem{{URI: "local:directory?type=artist", Name: "Artists"}}, listing.Directories)
	require.Len(t, listing.Albums, 1)
	assert.Empty(t, listing.Albums[0].Tracks, "listings carry no tracks")

	f.deliver(message.AlbumCompleted, message.Data{"uri": "local:album:a"})
	albums := f.emitted("pushAlbum")
	require.Len(t, albums, 1)
	album := albums[0].(albumItem)
	assert.True(t, album.Complete)
	assert.Len(t, album.Tracks, 1)

	f.deliver(message.ImageAvailable, message.Data{"uri": "local:album:a", "path": "/cache/img/a.jpg"})
	assert.Equal(t, []any{map[string]string{"uri": "local:album:a", "image": "/images/a.jpg"}}, f.emitted("pushAlbumImage"))
}

func TestPlaylistsBroadcast(t *testing.T) {
	f := newFixture(t)

	f.model.Playlists.Replace([]model.PlaylistInfo{{URI: "m3u:a.m3u", Name: "A"}})
	require.Eventually(t, func() bool { return len(f.emitted("pushPlaylists")) == 1 }, wait, 5*time.Millisecond)
	items := f.emitted("pushPlaylists")[0].([]playlistItem)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Name)
	assert.False(t, items[0].Complete)
}

func TestServeHTTPAndClose(t *testing.T) {
	f := newFixture(t)
	assert.Zero(t, f.server.Clients())
	assert.Equal(t, "ui-bridge", f.server.Name())
}
