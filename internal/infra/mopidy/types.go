// Package mopidy is a typed view of the Mopidy core API on top of a JSON-RPC
// caller. Every method reports failure as a false second result; payloads are
// parsed defensively and malformed items are dropped.
package mopidy

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/edumarques81/stellar-remote/internal/domain/model"
)

// RefType is the kind of a browse reference.
type RefType string

const (
	RefAlbum     RefType = "album"
	RefArtist    RefType = "artist"
	RefDirectory RefType = "directory"
	RefPlaylist  RefType = "playlist"
	RefTrack     RefType = "track"
)

// Ref is a lightweight pointer to a library item.
type Ref struct {
	Type RefType `json:"type"`
	URI  string  `json:"uri"`
	Name string  `json:"name"`
}

// Image is an image advertised for a URI.
type Image struct {
	URI    string `json:"uri"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type wireArtist struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// RawAlbum is the album object embedded in a track.
type RawAlbum struct {
	URI       string       `json:"uri"`
	Name      string       `json:"name"`
	Artists   []wireArtist `json:"artists"`
	NumTracks int          `json:"num_tracks"`
	NumDiscs  int          `json:"num_discs"`
	Date      string       `json:"date"`
}

type wireTrack struct {
	URI     string       `json:"uri"`
	Name    string       `json:"name"`
	Artists []wireArtist `json:"artists"`
	Album   *RawAlbum    `json:"album"`
	TrackNo int          `json:"track_no"`
	DiscNo  int          `json:"disc_no"`
	Length  *int64       `json:"length"`
}

type wireTlTrack struct {
	Tlid  *int            `json:"tlid"`
	Track json.RawMessage `json:"track"`
}

type wirePlaylist struct {
	URI          string            `json:"uri"`
	Name         string            `json:"name"`
	LastModified int64             `json:"last_modified"`
	Tracks       []json.RawMessage `json:"tracks"`
}

func artistNames(artists []wireArtist) string {
	names := lo.FilterMap(artists, func(a wireArtist, _ int) (string, bool) {
		return a.Name, a.Name != ""
	})
	return strings.Join(names, ", ")
}

func (w wireTrack) toModel() model.Track {
	t := model.Track{
		URI:        w.URI,
		Name:       w.Name,
		TrackNo:    w.TrackNo,
		DiscNo:     w.DiscNo,
		Length:     -1,
		ArtistName: artistNames(w.Artists),
	}
	if w.Length != nil {
		t.Length = *w.Length
	}
	if w.Album != nil {
		t.AlbumURI = w.Album.URI
		t.AlbumName = w.Album.Name
		if t.ArtistName == "" {
			t.ArtistName = artistNames(w.Album.Artists)
		}
	}
	if t.Name == "" {
		t.Name = w.URI
	}
	return t
}

// parseTrack decodes one track object. Tracks without a URI are rejected.
func parseTrack(raw json.RawMessage) (model.Track, *RawAlbum, bool) {
	var w wireTrack
	if err := json.Unmarshal(raw, &w); err != nil || w.URI == "" {
		log.Warn().Err(err).RawJSON("item", clip(raw)).Msg("Dropping malformed track")
		return model.Track{}, nil, false
	}
	return w.toModel(), w.Album, true
}

// ParseTracks decodes a list of tracks and feeds every parsed track to the
// visitors in the same pass.
func ParseTracks(raw json.RawMessage, visitors ...TrackVisitor) []model.Track {
	items, ok := parseArray(raw)
	if !ok {
		return nil
	}
	tracks := make([]model.Track, 0, len(items))
	for _, item := range items {
		t, album, ok := parseTrack(item)
		if !ok {
			continue
		}
		for _, v := range visitors {
			v.Visit(t, album)
		}
		tracks = append(tracks, t)
	}
	return tracks
}

// ParseTlTrack decodes a tracklist track.
func ParseTlTrack(raw json.RawMessage) (model.TlTrack, bool) {
	var w wireTlTrack
	if err := json.Unmarshal(raw, &w); err != nil || w.Tlid == nil {
		log.Warn().Err(err).RawJSON("item", clip(raw)).Msg("Dropping malformed tl_track")
		return model.TlTrack{}, false
	}
	t, _, ok := parseTrack(w.Track)
	if !ok {
		return model.TlTrack{}, false
	}
	return model.TlTrack{Tlid: *w.Tlid, Track: t}, true
}

// ParseTlTrackData decodes a tl_track carried in an event payload.
func ParseTlTrackData(v any) (model.TlTrack, bool) {
	if v == nil {
		return model.TlTrack{}, false
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return model.TlTrack{}, false
	}
	return ParseTlTrack(raw)
}

// ParsePlaylist decodes a playlist with its tracks.
func ParsePlaylist(raw json.RawMessage) (model.PlaylistInfo, []model.Track, bool) {
	var w wirePlaylist
	if err := json.Unmarshal(raw, &w); err != nil || w.URI == "" {
		log.Warn().Err(err).RawJSON("item", clip(raw)).Msg("Malformed playlist")
		return model.PlaylistInfo{}, nil, false
	}
	tracks := lo.FilterMap(w.Tracks, func(item json.RawMessage, _ int) (model.Track, bool) {
		t, _, ok := parseTrack(item)
		return t, ok
	})
	return model.PlaylistInfo{URI: w.URI, Name: w.Name, LastModified: w.LastModified}, tracks, true
}

// ParsePlaylistData decodes a playlist carried in an event payload.
func ParsePlaylistData(v any) (model.PlaylistInfo, []model.Track, bool) {
	if v == nil {
		return model.PlaylistInfo{}, nil, false
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return model.PlaylistInfo{}, nil, false
	}
	return ParsePlaylist(raw)
}

func parseTlTracks(raw json.RawMessage) []model.TlTrack {
	items, ok := parseArray(raw)
	if !ok {
		return nil
	}
	return lo.FilterMap(items, func(item json.RawMessage, _ int) (model.TlTrack, bool) {
		return ParseTlTrack(item)
	})
}

func parseRefs(raw json.RawMessage) []Ref {
	items, ok := parseArray(raw)
	if !ok {
		return nil
	}
	return lo.FilterMap(items, func(item json.RawMessage, _ int) (Ref, bool) {
		var r Ref
		if err := json.Unmarshal(item, &r); err != nil || r.URI == "" || r.Type == "" {
			log.Warn().Err(err).RawJSON("item", clip(item)).Msg("Dropping malformed ref")
			return Ref{}, false
		}
		return r, true
	})
}

func parseImages(raw json.RawMessage) map[string][]Image {
	var byURI map[string][]json.RawMessage
	if err := json.Unmarshal(raw, &byURI); err != nil {
		log.Warn().Err(err).Msg("Malformed image map")
		return nil
	}
	out := make(map[string][]Image, len(byURI))
	for uri, items := range byURI {
		out[uri] = lo.FilterMap(items, func(item json.RawMessage, _ int) (Image, bool) {
			var img Image
			if err := json.Unmarshal(item, &img); err != nil || img.URI == "" {
				log.Warn().Err(err).Str("uri", uri).Msg("Dropping malformed image")
				return Image{}, false
			}
			return img, true
		})
	}
	return out
}

func parseArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Warn().Err(err).RawJSON("payload", clip(raw)).Msg("Expected a list")
		return nil, false
	}
	return items, true
}

// clip keeps log lines short and valid JSON.
func clip(raw json.RawMessage) json.RawMessage {
	if len(raw) > 256 || !json.Valid(raw) {
		return json.RawMessage(`"<omitted>"`)
	}
	return raw
}

// LargestImage returns the widest image, or the first one when sizes are unknown.
func LargestImage(images []Image) (Image, bool) {
	if len(images) == 0 {
		return Image{}, false
	}
	return lo.MaxBy(images, func(a, b Image) bool { return a.Width > b.Width }), true
}
