package mopidy

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/edumarques81/stellar-remote/internal/domain/model"
	"github.com/edumarques81/stellar-remote/internal/infra/jsonrpc"
)

// Core exposes the Mopidy core controllers.
type Core struct {
	caller    jsonrpc.Caller
	sliceSize atomic.Int64
}

// NewCore wraps caller. sliceSize bounds batched library calls.
func NewCore(caller jsonrpc.Caller, sliceSize int) *Core {
	if sliceSize < 1 {
		sliceSize = DefaultSliceSize
	}
	c := &Core{caller: caller}
	c.sliceSize.Store(int64(sliceSize))
	return c
}

// SliceSize returns the batch size of library calls.
func (c *Core) SliceSize() int {
	return int(c.sliceSize.Load())
}

// SetSliceSize changes the batch size of later library calls. Values below
// one are ignored.
func (c *Core) SetSliceSize(n int) {
	if n > 0 {
		c.sliceSize.Store(int64(n))
	}
}

// exec runs a call whose result is not used.
func (c *Core) exec(ctx context.Context, method string, params map[string]any) bool {
	_, ok := c.caller.Call(ctx, method, params)
	return ok
}

// scalar decodes a loosely typed scalar result. Null yields ok with a nil value.
func (c *Core) scalar(ctx context.Context, method string, params map[string]any) (any, bool) {
	raw, ok := c.caller.Call(ctx, method, params)
	if !ok {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Warn().Err(err).Str("method", method).Msg("Malformed result")
		return nil, false
	}
	return v, true
}

func (c *Core) integer(ctx context.Context, method string) (int64, bool) {
	v, ok := c.scalar(ctx, method, nil)
	if !ok || v == nil {
		return -1, ok
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		log.Warn().Err(err).Str("method", method).Msg("Expected an integer")
		return -1, false
	}
	return n, true
}

func (c *Core) boolean(ctx context.Context, method string) (bool, bool) {
	v, ok := c.scalar(ctx, method, nil)
	if !ok {
		return false, false
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		log.Warn().Err(err).Str("method", method).Msg("Expected a boolean")
		return false, false
	}
	return b, true
}

func (c *Core) text(ctx context.Context, method string) (string, bool) {
	v, ok := c.scalar(ctx, method, nil)
	if !ok || v == nil {
		return "", ok
	}
	return cast.ToString(v), true
}

// Playback

func (c *Core) State(ctx context.Context) (model.PlaybackState, bool) {
	s, ok := c.text(ctx, "core.playback.get_state")
	if !ok {
		return model.StateUnknown, false
	}
	return model.ParsePlaybackState(s), true
}

// TimePosition returns the elapsed time in ms, -1 when nothing plays.
func (c *Core) TimePosition(ctx context.Context) (int64, bool) {
	return c.integer(ctx, "core.playback.get_time_position")
}

// CurrentTlTrack returns the playing track; nil with ok when none.
func (c *Core) CurrentTlTrack(ctx context.Context) (*model.TlTrack, bool) {
	raw, ok := c.caller.Call(ctx, "core.playback.get_current_tl_track", nil)
	if !ok {
		return nil, false
	}
	if string(raw) == "null" || len(raw) == 0 {
		return nil, true
	}
	tl, ok := ParseTlTrack(raw)
	if !ok {
		return nil, false
	}
	return &tl, true
}

func (c *Core) StreamTitle(ctx context.Context) (string, bool) {
	return c.text(ctx, "core.playback.get_stream_title")
}

// Play starts playback, at tlid when it is not negative.
func (c *Core) Play(ctx context.Context, tlid int) bool {
	var params map[string]any
	if tlid >= 0 {
		params = map[string]any{"tlid": tlid}
	}
	return c.exec(ctx, "core.playback.play", params)
}

func (c *Core) Pause(ctx context.Context) bool {
	return c.exec(ctx, "core.playback.pause", nil)
}

func (c *Core) Resume(ctx context.Context) bool {
	return c.exec(ctx, "core.playback.resume", nil)
}

func (c *Core) Stop(ctx context.Context) bool {
	return c.exec(ctx, "core.playback.stop", nil)
}

func (c *Core) Next(ctx context.Context) bool {
	return c.exec(ctx, "core.playback.next", nil)
}

func (c *Core) Previous(ctx context.Context) bool {
	return c.exec(ctx, "core.playback.previous", nil)
}

func (c *Core) Seek(ctx context.Context, positionMs int64) bool {
	return c.exec(ctx, "core.playback.seek", map[string]any{"time_position": positionMs})
}

// Mixer

// Volume returns 0-100, -1 when the server has no mixer.
func (c *Core) Volume(ctx context.Context) (int, bool) {
	v, ok := c.integer(ctx, "core.mixer.get_volume")
	return int(v), ok
}

func (c *Core) SetVolume(ctx context.Context, volume int) bool {
	return c.exec(ctx, "core.mixer.set_volume", map[string]any{"volume": volume})
}

func (c *Core) Mute(ctx context.Context) (bool, bool) {
	return c.boolean(ctx, "core.mixer.get_mute")
}

func (c *Core) SetMute(ctx context.Context, mute bool) bool {
	return c.exec(ctx, "core.mixer.set_mute", map[string]any{"mute": mute})
}

// Tracklist

func (c *Core) TracklistVersion(ctx context.Context) (int, bool) {
	v, ok := c.integer(ctx, "core.tracklist.get_version")
	return int(v), ok
}

func (c *Core) TlTracks(ctx context.Context) ([]model.TlTrack, bool) {
	raw, ok := c.caller.Call(ctx, "core.tracklist.get_tl_tracks", nil)
	if !ok {
		return nil, false
	}
	return parseTlTracks(raw), true
}

// Add appends uris to the tracklist, at position when it is not negative.
func (c *Core) Add(ctx context.Context, uris []string, position int) ([]model.TlTrack, bool) {
	params := map[string]any{"uris": uris}
	if position >= 0 {
		params["at_position"] = position
	}
	raw, ok := c.caller.Call(ctx, "core.tracklist.add", params)
	if !ok {
		return nil, false
	}
	return parseTlTracks(raw), true
}

func (c *Core) Remove(ctx context.Context, tlids []int) bool {
	return c.exec(ctx, "core.tracklist.remove", map[string]any{"criteria": map[string]any{"tlid": tlids}})
}

func (c *Core) Clear(ctx context.Context) bool {
	return c.exec(ctx, "core.tracklist.clear", nil)
}

// Option names a tracklist playback option.
type Option string

const (
	OptionConsume Option = "consume"
	OptionRandom  Option = "random"
	OptionRepeat  Option = "repeat"
	OptionSingle  Option = "single"
)

func (c *Core) GetOption(ctx context.Context, opt Option) (bool, bool) {
	return c.boolean(ctx, "core.tracklist.get_"+string(opt))
}

func (c *Core) SetOption(ctx context.Context, opt Option, value bool) bool {
	return c.exec(ctx, "core.tracklist.set_"+string(opt), map[string]any{"value": value})
}

// Library

// Browse lists the children of uri; the empty URI is the library root.
func (c *Core) Browse(ctx context.Context, uri string) ([]Ref, bool) {
	var target any
	if uri != "" {
		target = uri
	}
	raw, ok := c.caller.Call(ctx, "core.library.browse", map[string]any{"uri": target})
	if !ok {
		return nil, false
	}
	return parseRefs(raw), true
}

// Lookup resolves uris to tracks in batched slices. Visitors see every parsed
// track.
func (c *Core) Lookup(ctx context.Context, uris []string, notify func(done int), visitors ...TrackVisitor) map[string][]model.Track {
	return InSlices(ctx, uris, c.SliceSize(), func(ctx context.Context, slice []string) (map[string][]model.Track, bool) {
		raw, ok := c.caller.Call(ctx, "core.library.lookup", map[string]any{"uris": slice})
		if !ok {
			return nil, false
		}
		var byURI map[string]json.RawMessage
		if err := json.Unmarshal(raw, &byURI); err != nil {
			log.Warn().Err(err).Msg("Malformed lookup result")
			return nil, false
		}
		out := make(map[string][]model.Track, len(byURI))
		for uri, tracks := range byURI {
			out[uri] = ParseTracks(tracks, visitors...)
		}
		return out, true
	}, notify)
}

// Images fetches the images of uris in batched slices.
func (c *Core) Images(ctx context.Context, uris []string, notify func(done int)) map[string][]Image {
	return InSlices(ctx, uris, c.SliceSize(), func(ctx context.Context, slice []string) (map[string][]Image, bool) {
		raw, ok := c.caller.Call(ctx, "core.library.get_images", map[string]any{"uris": slice})
		if !ok {
			return nil, false
		}
		images := parseImages(raw)
		return images, images != nil
	}, notify)
}

// Playlists

func (c *Core) Playlists(ctx context.Context) ([]Ref, bool) {
	raw, ok := c.caller.Call(ctx, "core.playlists.as_list", nil)
	if !ok {
		return nil, false
	}
	return parseRefs(raw), true
}

// Playlist returns the metadata and tracks of one playlist. The second result
// is false on failure or when the playlist does not exist.
func (c *Core) Playlist(ctx context.Context, uri string) (model.PlaylistInfo, []model.Track, bool) {
	raw, ok := c.caller.Call(ctx, "core.playlists.lookup", map[string]any{"uri": uri})
	if !ok || string(raw) == "null" {
		return model.PlaylistInfo{}, nil, false
	}
	return ParsePlaylist(raw)
}

// CreatePlaylist creates an empty playlist and returns its URI.
func (c *Core) CreatePlaylist(ctx context.Context, name, scheme string) (string, bool) {
	params := map[string]any{"name": name}
	if scheme != "" {
		params["uri_scheme"] = scheme
	}
	raw, ok := c.caller.Call(ctx, "core.playlists.create", params)
	if !ok {
		return "", false
	}
	var w wirePlaylist
	if err := json.Unmarshal(raw, &w); err != nil || w.URI == "" {
		log.Warn().Err(err).Str("name", name).Msg("Playlist was not created")
		return "", false
	}
	return w.URI, true
}

// SavePlaylist stores tracks under an existing playlist URI.
func (c *Core) SavePlaylist(ctx context.Context, uri, name string, trackURIs []string) bool {
	tracks := make([]map[string]any, 0, len(trackURIs))
	for _, u := range trackURIs {
		tracks = append(tracks, map[string]any{"__model__": "Track", "uri": u})
	}
	return c.exec(ctx, "core.playlists.save", map[string]any{
		"playlist": map[string]any{
			"__model__": "Playlist",
			"uri":       uri,
			"name":      name,
			"tracks":    tracks,
		},
	})
}

func (c *Core) DeletePlaylist(ctx context.Context, uri string) bool {
	return c.exec(ctx, "core.playlists.delete", map[string]any{"uri": uri})
}
