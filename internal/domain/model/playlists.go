package model

import (
	"sync"
	"time"
)

// PlaylistInfo describes a playlist as listed by the server.
type PlaylistInfo struct {
	URI  string
	Name string
	// LastModified is the server freshness token, 0 if unknown.
	LastModified int64
}

// Playlist is the single authoritative copy of a playlist, keyed by URI.
type Playlist struct {
	URI string

	mu           sync.RWMutex
	name         string
	lastModified int64
	tracks       []Track

	// Changed fires when metadata or tracks change.
	Changed Signal
}

func (p *Playlist) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

func (p *Playlist) LastModified() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastModified
}

func (p *Playlist) Tracks() []Track {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Track(nil), p.tracks...)
}

// Complete reports whether the tracks of the current version are loaded.
func (p *Playlist) Complete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tracks) > 0
}

// Playlists is the ordered list of stored playlists.
type Playlists struct {
	exec *Executor

	mu    sync.RWMutex
	order []*Playlist
	byURI map[string]*Playlist

	// Changed fires when the list itself changes.
	Changed Signal
}

func newPlaylists(exec *Executor) *Playlists {
	return &Playlists{exec: exec, byURI: make(map[string]*Playlist)}
}

// All returns the listed playlists in server order.
func (ps *Playlists) All() []*Playlist {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return append([]*Playlist(nil), ps.order...)
}

// Get returns a known playlist.
func (ps *Playlists) Get(uri string) (*Playlist, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	p, ok := ps.byURI[uri]
	return p, ok
}

// Replace sets the listed playlists. Existing entities are kept and updated.
func (ps *Playlists) Replace(infos []PlaylistInfo) {
	copied := append([]PlaylistInfo(nil), infos...)
	ps.exec.Post(func() {
		order := make([]*Playlist, 0, len(copied))
		for _, info := range copied {
			order = append(order, ps.upsert(info))
		}
		ps.mu.Lock()
		ps.order = order
		ps.mu.Unlock()
		ps.Changed.emit(setOptions{})
	})
}

// SetTracks stores the tracks of the playlist version lastModified.
func (ps *Playlists) SetTracks(uri string, lastModified int64, tracks []Track) {
	copied := append([]Track(nil), tracks...)
	ps.exec.Post(func() { ps.setTracks(uri, lastModified, copied) })
}

// SetTracksWait is SetTracks with a bounded wait for completion.
func (ps *Playlists) SetTracksWait(timeout time.Duration, uri string, lastModified int64, tracks []Track) bool {
	copied := append([]Track(nil), tracks...)
	return ps.exec.PostWait(timeout, func() { ps.setTracks(uri, lastModified, copied) })
}

// Upsert applies a changed playlist. Unlisted playlists are appended to the
// listing; tracks are stored when given.
func (ps *Playlists) Upsert(info PlaylistInfo, tracks []Track) {
	copied := append([]Track(nil), tracks...)
	ps.exec.Post(func() {
		p := ps.upsert(info)
		listed := ps.listed(p)
		if len(copied) > 0 {
			ps.setTracks(info.URI, info.LastModified, copied)
		}
		if !listed {
			ps.mu.Lock()
			ps.order = append(ps.order, p)
			ps.mu.Unlock()
			ps.Changed.emit(setOptions{})
		}
	})
}

// Remove drops a playlist from the listing.
func (ps *Playlists) Remove(uri string) {
	ps.exec.Post(func() {
		ps.mu.Lock()
		removed := false
		for i, p := range ps.order {
			if p.URI == uri {
				ps.order = append(ps.order[:i:i], ps.order[i+1:]...)
				removed = true
				break
			}
		}
		delete(ps.byURI, uri)
		ps.mu.Unlock()
		if removed {
			ps.Changed.emit(setOptions{})
		}
	})
}

func (ps *Playlists) listed(p *Playlist) bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for _, o := range ps.order {
		if o == p {
			return true
		}
	}
	return false
}

func (ps *Playlists) setTracks(uri string, lastModified int64, tracks []Track) {
	p := ps.upsert(PlaylistInfo{URI: uri, LastModified: lastModified})
	p.mu.Lock()
	p.tracks = tracks
	p.mu.Unlock()
	p.Changed.emit(setOptions{})
}

// upsert runs on the executor. A changed freshness token invalidates the
// loaded tracks.
func (ps *Playlists) upsert(info PlaylistInfo) *Playlist {
	ps.mu.Lock()
	p, ok := ps.byURI[info.URI]
	if !ok {
		p = &Playlist{URI: info.URI}
		ps.byURI[info.URI] = p
	}
	ps.mu.Unlock()

	p.mu.Lock()
	changed := false
	if info.Name != "" && info.Name != p.name {
		p.name = info.Name
		changed = true
	}
	if info.LastModified != 0 && info.LastModified != p.lastModified {
		p.lastModified = info.LastModified
		p.tracks = nil
		changed = true
	}
	p.mu.Unlock()

	if changed {
		p.Changed.emit(setOptions{})
	}
	return p
}
