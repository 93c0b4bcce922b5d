package mopidy

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumarques81/stellar-remote/internal/domain/model"
)

type call struct {
	method string
	params map[string]any
}

// fakeCaller answers calls from a per-method table of JSON strings. Methods
// missing from the table fail.
type fakeCaller struct {
	mu      sync.Mutex
	results map[string]string
	respond func(method string, params map[string]any) (string, bool)
	calls   []call
}

func (f *fakeCaller) Call(_ context.Context, method string, params map[string]any) (json.RawMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method, params})
	if f.respond != nil {
		res, ok := f.respond(method, params)
		return json.RawMessage(res), ok
	}
	res, ok := f.results[method]
	return json.RawMessage(res), ok
}

func TestInSlicesBatchesAndNotifies(t *testing.T) {
	uris := []string{"u1", "u2", "u3", "u4", "u5", "u6"}

	var slices [][]string
	var progress []int
	fetch := func(_ context.Context, slice []string) (map[string]int, bool) {
		slices = append(slices, slice)
		out := make(map[string]int, len(slice))
		for _, u := range slice {
			out[u] = len(u)
		}
		return out, true
	}

	result := InSlices(context.Background(), uris, 4, fetch, func(done int) {
		progress = append(progress, done)
	})

	assert.Equal(t, [][]string{{"u1", "u2", "u3", "u4"}, {"u5", "u6"}}, slices)
	assert.Equal(t, []int{4, 6}, progress)
	assert.Len(t, result, 6)
}

func TestInSlicesFailedSliceEmptiesResult(t *testing.T) {
	uris := []string{"u1", "u2", "u3", "u4", "u5", "u6"}

	calls := 0
	fetch := func(_ context.Context, slice []string) (map[string]int, bool) {
		calls++
		if calls == 2 {
			return nil, false
		}
		return map[string]int{slice[0]: 1}, true
	}

	var progress []int
	result := InSlices(context.Background(), uris, 4, fetch, func(done int) {
		progress = append(progress, done)
	})

	assert.Equal(t, 2, calls)
	assert.Empty(t, result)
	assert.Equal(t, []int{4}, progress)
}

func TestInSlicesEmptyInput(t *testing.T) {
	called := false
	result := InSlices(context.Background(), nil, 4, func(context.Context, []string) (map[string]int, bool) {
		called = true
		return nil, true
	}, nil)
	assert.False(t, called)
	assert.Empty(t, result)
}

func TestParseTracksRunsVisitorsAndDropsMalformed(t *testing.T) {
	raw := json.RawMessage(`[
	  {"uri":"local:track:1","name":"One","length":1000,"artists":[{"name":"A"}],
	   "album":{"uri":"local:album:x","name":"X","num_tracks":3,"date":"1999"}},
	  {"name":"no uri"},
	  "garbage",
	  {"uri":"local:track:2","name":"Two","length":2500,"artists":[{"name":"B"}],
	   "album":{"uri":"local:album:x","name":"X"}},
	  {"uri":"local:track:3","name":"Three","length":500,"artists":[{"name":"C"}],
	   "album":{"uri":"local:album:y","name":"Y","artists":[{"name":"Band"}]}},
	  {"uri":"local:track:4","name":"Four","artists":[{"name":"C"}],
	   "album":{"uri":"local:album:z","name":"Z"}}
	]`)

	lengths := NewLengthAccumulator()
	artists := NewArtistAccumulator()
	albums := NewAlbumAccumulator()
	tracks := ParseTracks(raw, lengths, artists, albums)

	require.Len(t, tracks, 4)
	assert.Equal(t, "local:album:x", tracks[0].AlbumURI)
	assert.Equal(t, int64(-1), tracks[3].Length)

	assert.Equal(t, int64(3500), lengths.Length("local:album:x"))
	assert.Equal(t, int64(500), lengths.Length("local:album:y"))
	assert.Equal(t, int64(-1), lengths.Length("local:album:z"))
	assert.Equal(t, int64(-1), lengths.Length("local:album:unknown"))

	assert.Equal(t, VariousArtists, artists.Artist("local:album:x"))
	assert.Equal(t, "Band", artists.Artist("local:album:y"))

	info, ok := albums.Album("local:album:x")
	require.True(t, ok)
	assert.Equal(t, 3, info.NumTracks)
	assert.Equal(t, "1999", info.Date)
}

func TestParseTlTrackData(t *testing.T) {
	data := map[string]any{
		"__model__": "TlTrack",
		"tlid":      float64(7),
		"track":     map[string]any{"uri": "local:track:1", "name": "One", "length": float64(1000)},
	}
	tl, ok := ParseTlTrackData(data)
	require.True(t, ok)
	assert.Equal(t, 7, tl.Tlid)
	assert.Equal(t, "One", tl.Track.Name)

	_, ok = ParseTlTrackData(map[string]any{"track": map[string]any{"uri": "x"}})
	assert.False(t, ok)
	_, ok = ParseTlTrackData(nil)
	assert.False(t, ok)
}

func TestCoreScalars(t *testing.T) {
	f := &fakeCaller{results: map[string]string{
		"core.playback.get_state":         `"paused"`,
		"core.playback.get_time_position": `61000`,
		"core.mixer.get_volume":           `null`,
		"core.mixer.get_mute":             `true`,
		"core.tracklist.get_version":      `12`,
		"core.tracklist.get_random":       `false`,
	}}
	c := NewCore(f, 0)
	ctx := context.Background()

	state, ok := c.State(ctx)
	assert.True(t, ok)
	assert.Equal(t, model.StatePaused, state)

	pos, ok := c.TimePosition(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(61000), pos)

	vol, ok := c.Volume(ctx)
	assert.True(t, ok)
	assert.Equal(t, -1, vol)

	mute, ok := c.Mute(ctx)
	assert.True(t, ok)
	assert.True(t, mute)

	version, ok := c.TracklistVersion(ctx)
	assert.True(t, ok)
	assert.Equal(t, 12, version)

	random, ok := c.GetOption(ctx, OptionRandom)
	assert.True(t, ok)
	assert.False(t, random)

	_, ok = c.StreamTitle(ctx)
	assert.False(t, ok, "missing method fails")
	assert.Equal(t, DefaultSliceSize, c.SliceSize())
}

func TestCoreCommandsSendParams(t *testing.T) {
	f := &fakeCaller{respond: func(string, map[string]any) (string, bool) { return "null", true }}
	c := NewCore(f, 4)
	ctx := context.Background()

	assert.True(t, c.Play(ctx, -1))
	assert.True(t, c.Play(ctx, 3))
	assert.True(t, c.Seek(ctx, 42000))
	assert.True(t, c.SetVolume(ctx, 42))
	assert.True(t, c.Remove(ctx, []int{1, 2}))
	assert.True(t, c.SetOption(ctx, OptionRepeat, true))

	require.Len(t, f.calls, 6)
	assert.Equal(t, call{"core.playback.play", nil}, f.calls[0])
	assert.Equal(t, map[string]any{"tlid": 3}, f.calls[1].params)
	assert.Equal(t, map[string]any{"time_position": int64(42000)}, f.calls[2].params)
	assert.Equal(t, map[string]any{"volume": 42}, f.calls[3].params)
	assert.Equal(t, map[string]any{"criteria": map[string]any{"tlid": []int{1, 2}}}, f.calls[4].params)
	assert.Equal(t, "core.tracklist.set_repeat", f.calls[5].method)
}

func TestCurrentTlTrack(t *testing.T) {
	f := &fakeCaller{results: map[string]string{
		"core.playback.get_current_tl_track": `null`,
	}}
	c := NewCore(f, 0)

	tl, ok := c.CurrentTlTrack(context.Background())
	assert.True(t, ok)
	assert.Nil(t, tl)

	f.results["core.playback.get_current_tl_track"] = `{"tlid":4,"track":{"uri":"local:track:9","name":"Nine"}}`
	tl, ok = c.CurrentTlTrack(context.Background())
	require.True(t, ok)
	require.NotNil(t, tl)
	assert.Equal(t, 4, tl.Tlid)
}

func TestBrowseRootSendsNullURI(t *testing.T) {
	f := &fakeCaller{results: map[string]string{
		"core.library.browse": `[{"__model__":"Ref","type":"directory","uri":"local:directory","name":"Local media"},
		                         {"type":"track"}]`,
	}}
	c := NewCore(f, 0)

	refs, ok := c.Browse(context.Background(), "")
	require.True(t, ok)
	assert.Equal(t, []Ref{{Type: RefDirectory, URI: "local:directory", Name: "Local media"}}, refs)
	assert.Nil(t, f.calls[0].params["uri"])
}

func TestLookupUsesSlices(t *testing.T) {
	f := &fakeCaller{respond: func(method string, params map[string]any) (string, bool) {
		out := map[string]json.RawMessage{}
		for _, u := range params["uris"].([]string) {
			out[u] = json.RawMessage(`[{"uri":"` + u + `:t","length":100,"album":{"uri":"` + u + `"}}]`)
		}
		b, _ := json.Marshal(out)
		return string(b), true
	}}
	c := NewCore(f, 4)

	lengths := NewLengthAccumulator()
	var progress []int
	tracks := c.Lookup(context.Background(), []string{"a1", "a2", "a3", "a4", "a5", "a6"},
		func(done int) { progress = append(progress, done) }, lengths)

	assert.Len(t, f.calls, 2)
	assert.Len(t, tracks, 6)
	assert.Equal(t, []int{4, 6}, progress)
	assert.Equal(t, int64(100), lengths.Length("a6"))
}

func TestImages(t *testing.T) {
	f := &fakeCaller{results: map[string]string{
		"core.library.get_images": `{"local:album:1":[{"uri":"/images/small.jpg","width":64},{"uri":"/images/big.jpg","width":640},{"width":10}]}`,
	}}
	c := NewCore(f, 0)

	images := c.Images(context.Background(), []string{"local:album:1"}, nil)
	require.Len(t, images["local:album:1"], 2)

	best, ok := LargestImage(images["local:album:1"])
	require.True(t, ok)
	assert.Equal(t, "/images/big.jpg", best.URI)

	_, ok = LargestImage(nil)
	assert.False(t, ok)
}

func TestPlaylist(t *testing.T) {
	f := &fakeCaller{results: map[string]string{
		"core.playlists.lookup": `{"__model__":"Playlist","uri":"m3u:a.m3u","name":"A","last_modified":1700,
		  "tracks":[{"uri":"local:track:1"},{"name":"broken"}]}`,
	}}
	c := NewCore(f, 0)

	info, tracks, ok := c.Playlist(context.Background(), "m3u:a.m3u")
	require.True(t, ok)
	assert.Equal(t, model.PlaylistInfo{URI: "m3u:a.m3u", Name: "A", LastModified: 1700}, info)
	assert.Len(t, tracks, 1)
}
