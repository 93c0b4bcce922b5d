package model

import "sync"

// ArtistInfo describes an artist listed by the server.
type ArtistInfo struct {
	URI  string
	Name string
}

// Artist groups the albums of one artist. Albums are shared with the library
// index.
type Artist struct {
	URI  string
	Name string

	mu     sync.RWMutex
	albums []*Album

	Changed Signal
}

func (a *Artist) Albums() []*Album {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]*Album(nil), a.albums...)
}

// Complete reports whether the artist's albums have been collected.
func (a *Artist) Complete() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.albums) > 0
}

// Artists is the list of known artists.
type Artists struct {
	exec    *Executor
	library *Library

	mu    sync.RWMutex
	order []*Artist
	byURI map[string]*Artist

	Changed Signal
}

func newArtists(exec *Executor, library *Library) *Artists {
	return &Artists{exec: exec, library: library, byURI: make(map[string]*Artist)}
}

func (as *Artists) All() []*Artist {
	as.mu.RLock()
	defer as.mu.RUnlock()
	return append([]*Artist(nil), as.order...)
}

func (as *Artists) Get(uri string) (*Artist, bool) {
	as.mu.RLock()
	defer as.mu.RUnlock()
	a, ok := as.byURI[uri]
	return a, ok
}

// Replace sets the artist listing; known artists keep their albums.
func (as *Artists) Replace(infos []ArtistInfo) {
	copied := append([]ArtistInfo(nil), infos...)
	as.exec.Post(func() {
		as.mu.Lock()
		order := make([]*Artist, 0, len(copied))
		for _, info := range copied {
			a, ok := as.byURI[info.URI]
			if !ok {
				a = &Artist{URI: info.URI, Name: info.Name}
				as.byURI[info.URI] = a
			}
			order = append(order, a)
		}
		as.order = order
		as.mu.Unlock()
		as.Changed.emit(setOptions{})
	})
}

// SetAlbums stores the albums of an artist, upserting them in the library.
func (as *Artists) SetAlbums(uri string, albums []AlbumInfo) {
	copied := append([]AlbumInfo(nil), albums...)
	as.exec.Post(func() {
		as.mu.Lock()
		a, ok := as.byURI[uri]
		if !ok {
			a = &Artist{URI: uri}
			as.byURI[uri] = a
		}
		as.mu.Unlock()

		resolved := make([]*Album, 0, len(copied))
		for _, info := range copied {
			resolved = append(resolved, as.library.upsertAlbum(info))
		}

		a.mu.Lock()
		a.albums = resolved
		a.mu.Unlock()
		a.Changed.emit(setOptions{})
	})
}
