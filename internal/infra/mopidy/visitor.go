package mopidy

import "github.com/edumarques81/stellar-remote/internal/domain/model"

// VariousArtists names albums whose tracks credit different artists.
const VariousArtists = "Various Artists"

// TrackVisitor sees every track while a track list is parsed. album is the
// raw album of the track and may be nil.
type TrackVisitor interface {
	Visit(t model.Track, album *RawAlbum)
}

// LengthAccumulator sums track lengths per album URI. An album with any track
// of unknown length has an unknown total.
type LengthAccumulator struct {
	lengths map[string]int64
}

func NewLengthAccumulator() *LengthAccumulator {
	return &LengthAccumulator{lengths: make(map[string]int64)}
}

func (a *LengthAccumulator) Visit(t model.Track, _ *RawAlbum) {
	if t.AlbumURI == "" {
		return
	}
	total, seen := a.lengths[t.AlbumURI]
	switch {
	case seen && total < 0:
	case t.Length < 0:
		a.lengths[t.AlbumURI] = -1
	default:
		a.lengths[t.AlbumURI] = total + t.Length
	}
}

// Length returns the total of albumURI, -1 if unknown.
func (a *LengthAccumulator) Length(albumURI string) int64 {
	if l, ok := a.lengths[albumURI]; ok {
		return l
	}
	return -1
}

// ArtistAccumulator derives the display artist of each album.
type ArtistAccumulator struct {
	artists map[string]string
}

func NewArtistAccumulator() *ArtistAccumulator {
	return &ArtistAccumulator{artists: make(map[string]string)}
}

func (a *ArtistAccumulator) Visit(t model.Track, album *RawAlbum) {
	if t.AlbumURI == "" {
		return
	}
	name := t.ArtistName
	if album != nil {
		if credited := artistNames(album.Artists); credited != "" {
			name = credited
		}
	}
	prev, seen := a.artists[t.AlbumURI]
	switch {
	case !seen:
		a.artists[t.AlbumURI] = name
	case prev != name:
		a.artists[t.AlbumURI] = VariousArtists
	}
}

// Artist returns the artist of albumURI, empty if no track was seen.
func (a *ArtistAccumulator) Artist(albumURI string) string {
	return a.artists[albumURI]
}

// AlbumAccumulator keeps the album metadata carried by tracks.
type AlbumAccumulator struct {
	albums map[string]model.AlbumInfo
}

func NewAlbumAccumulator() *AlbumAccumulator {
	return &AlbumAccumulator{albums: make(map[string]model.AlbumInfo)}
}

func (a *AlbumAccumulator) Visit(t model.Track, album *RawAlbum) {
	if album == nil || album.URI == "" {
		return
	}
	if _, seen := a.albums[album.URI]; seen {
		return
	}
	a.albums[album.URI] = model.AlbumInfo{
		URI:        album.URI,
		Name:       album.Name,
		ArtistName: artistNames(album.Artists),
		NumTracks:  album.NumTracks,
		NumDiscs:   album.NumDiscs,
		Date:       album.Date,
		Length:     -1,
	}
}

// Album returns the metadata seen for albumURI.
func (a *AlbumAccumulator) Album(albumURI string) (model.AlbumInfo, bool) {
	info, ok := a.albums[albumURI]
	return info, ok
}
