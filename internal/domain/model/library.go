package model

import (
	"sync"
	"time"
)

// Track is an immutable description of a playable item. Album and artist names
// are denormalized for display.
type Track struct {
	URI     string
	Name    string
	TrackNo int
	DiscNo  int
	// Length in ms, -1 if unknown.
	Length     int64
	AlbumURI   string
	AlbumName  string
	ArtistName string
	ImageURI   string
}

// AlbumInfo describes an album as reported by the server.
type AlbumInfo struct {
	URI        string
	Name       string
	ArtistName string
	NumTracks  int
	NumDiscs   int
	Date       string
	Length     int64
	ImageURI   string
	// Tracks is nil when the listing did not include them.
	Tracks []Track
	// Static is set when the album's backend fully describes albums on listing.
	Static bool
}

// Album is the single authoritative copy of an album, keyed by URI.
type Album struct {
	URI string

	mu         sync.RWMutex
	name       string
	artistName string
	numTracks  int
	numDiscs   int
	date       string
	length     int64
	imageURI   string
	static     bool
	tracks     []Track

	ImagePath *Value[string]
	// Changed fires when metadata or tracks change.
	Changed Signal
}

func newAlbum(exec *Executor, uri string) *Album {
	return &Album{URI: uri, length: -1, ImagePath: NewValue(exec, "")}
}

func (a *Album) Name() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.name
}

func (a *Album) ArtistName() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.artistName
}

func (a *Album) NumTracks() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.numTracks
}

func (a *Album) NumDiscs() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.numDiscs
}

func (a *Album) Date() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.date
}

// Length is the total length in ms, -1 if unknown.
func (a *Album) Length() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.length
}

func (a *Album) ImageURI() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.imageURI
}

// Tracks returns a copy of the album tracks.
func (a *Album) Tracks() []Track {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]Track(nil), a.tracks...)
}

// Complete reports whether the album needs no further lookup.
func (a *Album) Complete() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.tracks) > 0 || a.static
}

func (a *Album) update(info AlbumInfo) {
	a.mu.Lock()
	if info.Name != "" {
		a.name = info.Name
	}
	if info.ArtistName != "" {
		a.artistName = info.ArtistName
	}
	if info.NumTracks > 0 {
		a.numTracks = info.NumTracks
	}
	if info.NumDiscs > 0 {
		a.numDiscs = info.NumDiscs
	}
	if info.Date != "" {
		a.date = info.Date
	}
	if info.Length >= 0 && (info.Length > 0 || info.Tracks != nil) {
		a.length = info.Length
	}
	if info.ImageURI != "" {
		a.imageURI = info.ImageURI
	}
	a.static = info.Static
	if info.Tracks != nil {
		a.tracks = append([]Track(nil), info.Tracks...)
	}
	a.mu.Unlock()
	a.Changed.emit(setOptions{})
}

// DirectoryInfo describes a browsable child directory.
type DirectoryInfo struct {
	URI  string
	Name string
}

// Children is the full content of one directory.
type Children struct {
	Directories []DirectoryInfo
	Albums      []AlbumInfo
	Playlists   []PlaylistInfo
	Tracks      []Track
}

// Directory is one node of the library tree.
type Directory struct {
	URI  string
	Name string

	mu          sync.RWMutex
	directories []*Directory
	albums      []*Album
	playlists   []*Playlist
	tracks      []Track

	// Changed fires once per applied children replacement.
	Changed Signal
}

func (d *Directory) Directories() []*Directory {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*Directory(nil), d.directories...)
}

func (d *Directory) Albums() []*Album {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*Album(nil), d.albums...)
}

func (d *Directory) Playlists() []*Playlist {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*Playlist(nil), d.playlists...)
}

func (d *Directory) Tracks() []Track {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Track(nil), d.tracks...)
}

// Complete reports whether the directory holds any child. It is derived, never
// stored.
func (d *Directory) Complete() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.directories)+len(d.albums)+len(d.playlists)+len(d.tracks) > 0
}

// Library is the browsable directory tree plus the album index.
type Library struct {
	exec      *Executor
	playlists *Playlists

	mu          sync.RWMutex
	root        *Directory
	directories map[string]*Directory
	albums      map[string]*Album
}

// RootURI is the URI of the library root.
const RootURI = ""

func newLibrary(exec *Executor, playlists *Playlists) *Library {
	root := &Directory{URI: RootURI}
	return &Library{
		exec:        exec,
		playlists:   playlists,
		root:        root,
		directories: map[string]*Directory{RootURI: root},
		albums:      make(map[string]*Album),
	}
}

// Root returns the root directory.
func (l *Library) Root() *Directory {
	return l.root
}

// Directory returns a known directory.
func (l *Library) Directory(uri string) (*Directory, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.directories[uri]
	return d, ok
}

// Album returns a known album.
func (l *Library) Album(uri string) (*Album, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.albums[uri]
	return a, ok
}

// Albums returns every indexed album.
func (l *Library) Albums() []*Album {
	l.mu.RLock()
	defer l.mu.RUnlock()
	albums := make([]*Album, 0, len(l.albums))
	for _, a := range l.albums {
		albums = append(albums, a)
	}
	return albums
}

// ReplaceChildren clears the directory at uri and fills it with c in a single
// write. Unknown directories are created.
func (l *Library) ReplaceChildren(uri string, c Children) {
	l.exec.Post(func() { l.replaceChildren(uri, c) })
}

// ReplaceChildrenWait is ReplaceChildren with a bounded wait for completion.
func (l *Library) ReplaceChildrenWait(timeout time.Duration, uri string, c Children) bool {
	return l.exec.PostWait(timeout, func() { l.replaceChildren(uri, c) })
}

// UpdateAlbum creates or updates the album described by info.
func (l *Library) UpdateAlbum(info AlbumInfo) {
	l.exec.Post(func() { l.upsertAlbum(info) })
}

// UpdateAlbumWait is UpdateAlbum with a bounded wait for completion.
func (l *Library) UpdateAlbumWait(timeout time.Duration, info AlbumInfo) bool {
	return l.exec.PostWait(timeout, func() { l.upsertAlbum(info) })
}

func (l *Library) replaceChildren(uri string, c Children) {
	dir := l.directory(uri, "")

	dirs := make([]*Directory, 0, len(c.Directories))
	for _, info := range c.Directories {
		dirs = append(dirs, l.directory(info.URI, info.Name))
	}
	albums := make([]*Album, 0, len(c.Albums))
	for _, info := range c.Albums {
		albums = append(albums, l.upsertAlbum(info))
	}
	playlists := make([]*Playlist, 0, len(c.Playlists))
	for _, info := range c.Playlists {
		playlists = append(playlists, l.playlists.upsert(info))
	}

	dir.mu.Lock()
	dir.directories = dirs
	dir.albums = albums
	dir.playlists = playlists
	dir.tracks = append([]Track(nil), c.Tracks...)
	dir.mu.Unlock()

	dir.Changed.emit(setOptions{})
}

func (l *Library) directory(uri, name string) *Directory {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.directories[uri]
	if !ok {
		d = &Directory{URI: uri, Name: name}
		l.directories[uri] = d
	}
	return d
}

func (l *Library) upsertAlbum(info AlbumInfo) *Album {
	l.mu.Lock()
	a, ok := l.albums[info.URI]
	if !ok {
		a = newAlbum(l.exec, info.URI)
		l.albums[info.URI] = a
	}
	l.mu.Unlock()

	a.update(info)
	return a
}
