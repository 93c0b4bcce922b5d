package model

import "time"

// DefaultHistorySize bounds the played-track history.
const DefaultHistorySize = 50

// Model is the root of the state tree. It is built once and its sub-models are
// never replaced, so observers registered on them stay valid.
type Model struct {
	exec *Executor

	// Connected reports whether the server is reachable.
	Connected *Value[bool]

	Playback  *Playback
	Mixer     *Mixer
	Tracklist *Tracklist
	Library   *Library
	Playlists *Playlists
	Artists   *Artists

	// History lists recently started track URIs, most recent first.
	History *List[string]
}

// New builds the model around exec.
func New(exec *Executor) *Model {
	playlists := newPlaylists(exec)
	library := newLibrary(exec, playlists)
	return &Model{
		exec:      exec,
		Connected: NewValue(exec, false),
		Playback:  newPlayback(exec),
		Mixer:     newMixer(exec),
		Tracklist: newTracklist(exec),
		Library:   library,
		Playlists: playlists,
		Artists:   newArtists(exec, library),
		History:   NewList[string](exec),
	}
}

// Executor returns the executor applying the model writes.
func (m *Model) Executor() *Executor {
	return m.exec
}

// Batch runs fn, which submits writes, then waits at most timeout until all of
// them have been applied. False means the batch is unconfirmed.
func (m *Model) Batch(timeout time.Duration, fn func()) bool {
	fn()
	return m.exec.Flush(timeout)
}

// Snapshot is a read-only copy of the scalar state.
type Snapshot struct {
	Connected    bool          `json:"connected"`
	State        PlaybackState `json:"state"`
	TimePosition int64         `json:"timePosition"`
	CurrentTlid  int           `json:"currentTlid"`
	TrackURI     string        `json:"trackUri"`
	Title        string        `json:"title"`
	Artist       string        `json:"artist"`
	Album        string        `json:"album"`
	Duration     int64         `json:"duration"`
	ImagePath    string        `json:"image,omitempty"`
	StreamTitle  string        `json:"streamTitle,omitempty"`
	Volume       int           `json:"volume"`
	Mute         bool          `json:"mute"`
	Version      int           `json:"tracklistVersion"`
	Consume      bool          `json:"consume"`
	Random       bool          `json:"random"`
	Repeat       bool          `json:"repeat"`
	Single       bool          `json:"single"`
}

// Snapshot reads the scalar fields. Fields are read one by one, so a snapshot
// taken during a write may mix old and new values.
func (m *Model) Snapshot() Snapshot {
	track := m.Playback.CurrentTrack.Get()
	return Snapshot{
		Connected:    m.Connected.Get(),
		State:        m.Playback.State.Get(),
		TimePosition: m.Playback.TimePosition.Get(),
		CurrentTlid:  m.Playback.CurrentTlid.Get(),
		TrackURI:     m.Playback.CurrentTrackURI.Get(),
		Title:        track.Name,
		Artist:       track.ArtistName,
		Album:        track.AlbumName,
		Duration:     track.Length,
		ImagePath:    m.Playback.ImagePath.Get(),
		StreamTitle:  m.Playback.StreamTitle.Get(),
		Volume:       m.Mixer.Volume.Get(),
		Mute:         m.Mixer.Mute.Get(),
		Version:      m.Tracklist.Version.Get(),
		Consume:      m.Tracklist.Consume.Get(),
		Random:       m.Tracklist.Random.Get(),
		Repeat:       m.Tracklist.Repeat.Get(),
		Single:       m.Tracklist.Single.Get(),
	}
}
