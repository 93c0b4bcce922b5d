package socketio

import (
	"path/filepath"

	"github.com/samber/lo"

	"github.com/edumarques81/stellar-remote/internal/domain/model"
)

// ImagePrefix is the HTTP path under which cached images are served.
const ImagePrefix = "/images/"

// imageURL maps a cached image file onto its HTTP path.
func imageURL(path string) string {
	if path == "" {
		return ""
	}
	return ImagePrefix + filepath.Base(path)
}

// StatePayload is the body of pushState.
type StatePayload struct {
	model.Snapshot
	// Image replaces the file path of the snapshot with its URL.
	Image string `json:"image,omitempty"`
}

// State returns the pushState body for m.
func State(m *model.Model) StatePayload {
	snap := m.Snapshot()
	img := imageURL(snap.ImagePath)
	snap.ImagePath = ""
	return StatePayload{Snapshot: snap, Image: img}
}

type trackItem struct {
	URI      string `json:"uri"`
	Title    string `json:"title"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	AlbumURI string `json:"albumUri,omitempty"`
	TrackNo  int    `json:"trackNo,omitempty"`
	Duration int64  `json:"duration"`
}

func toTrackItem(t model.Track) trackItem {
	return trackItem{
		URI:      t.URI,
		Title:    t.Name,
		Artist:   t.ArtistName,
		Album:    t.AlbumName,
		AlbumURI: t.AlbumURI,
		TrackNo:  t.TrackNo,
		Duration: t.Length,
	}
}

type queueItem struct {
	Tlid int `json:"tlid"`
	trackItem
}

// QueuePayload is the body of pushQueue.
type QueuePayload struct {
	Version int         `json:"version"`
	Current int         `json:"current"`
	Items   []queueItem `json:"items"`
}

func queuePayload(m *model.Model) QueuePayload {
	items := lo.Map(m.Tracklist.Tracks(), func(tl model.TlTrack, _ int) queueItem {
		return queueItem{Tlid: tl.Tlid, trackItem: toTrackItem(tl.Track)}
	})
	return QueuePayload{
		Version: m.Tracklist.Version.Get(),
		Current: m.Playback.CurrentTlid.Get(),
		Items:   items,
	}
}

type refItem struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type albumItem struct {
	URI       string      `json:"uri"`
	Name      string      `json:"name"`
	Artist    string      `json:"artist,omitempty"`
	Date      string      `json:"date,omitempty"`
	Length    int64       `json:"length"`
	Image     string      `json:"image,omitempty"`
	Complete  bool        `json:"complete"`
	NumTracks int         `json:"numTracks,omitempty"`
	Tracks    []trackItem `json:"tracks,omitempty"`
}

func toAlbumItem(a *model.Album, withTracks bool) albumItem {
	item := albumItem{
		URI:       a.URI,
		Name:      a.Name(),
		Artist:    a.ArtistName(),
		Date:      a.Date(),
		Length:    a.Length(),
		Image:     imageURL(a.ImagePath.Get()),
		Complete:  a.Complete(),
		NumTracks: a.NumTracks(),
	}
	if withTracks {
		item.Tracks = lo.Map(a.Tracks(), func(t model.Track, _ int) trackItem { return toTrackItem(t) })
	}
	return item
}

// LibraryPayload is the body of pushLibrary: one directory listing.
type LibraryPayload struct {
	URI         string      `json:"uri"`
	Name        string      `json:"name"`
	Directories []refItem   `json:"directories"`
	Albums      []albumItem `json:"albums"`
	Playlists   []refItem   `json:"playlists"`
	Tracks      []trackItem `json:"tracks"`
}

func libraryPayload(d *model.Directory) LibraryPayload {
	return LibraryPayload{
		URI:  d.URI,
		Name: d.Name,
		Directories: lo.Map(d.Directories(), func(c *model.Directory, _ int) refItem {
			return refItem{URI: c.URI, Name: c.Name}
		}),
		Albums: lo.Map(d.Albums(), func(a *model.Album, _ int) albumItem {
			return toAlbumItem(a, false)
		}),
		Playlists: lo.Map(d.Playlists(), func(p *model.Playlist, _ int) refItem {
			return refItem{URI: p.URI, Name: p.Name()}
		}),
		Tracks: lo.Map(d.Tracks(), func(t model.Track, _ int) trackItem { return toTrackItem(t) }),
	}
}

type playlistItem struct {
	URI          string      `json:"uri"`
	Name         string      `json:"name"`
	LastModified int64       `json:"lastModified,omitempty"`
	Complete     bool        `json:"complete"`
	Tracks       []trackItem `json:"tracks,omitempty"`
}

func playlistsPayload(m *model.Model) []playlistItem {
	return lo.Map(m.Playlists.All(), func(p *model.Playlist, _ int) playlistItem {
		return playlistItem{
			URI:          p.URI,
			Name:         p.Name(),
			LastModified: p.LastModified(),
			Complete:     p.Complete(),
			Tracks:       lo.Map(p.Tracks(), func(t model.Track, _ int) trackItem { return toTrackItem(t) }),
		}
	})
}

type artistItem struct {
	URI    string      `json:"uri"`
	Name   string      `json:"name"`
	Albums []albumItem `json:"albums,omitempty"`
}

func toArtistItem(a *model.Artist) artistItem {
	return artistItem{
		URI:    a.URI,
		Name:   a.Name,
		Albums: lo.Map(a.Albums(), func(al *model.Album, _ int) albumItem { return toAlbumItem(al, false) }),
	}
}
