package model

import (
	"sync"
	"time"
)

// TlTrack is one occurrence of a track in the tracklist.
type TlTrack struct {
	Tlid  int
	Track Track
}

// Tracklist mirrors the server play queue.
type Tracklist struct {
	exec *Executor

	// Version is the server tracklist version, -1 while unset.
	Version *Value[int]
	Consume *Value[bool]
	Random  *Value[bool]
	Repeat  *Value[bool]
	Single  *Value[bool]

	mu     sync.RWMutex
	tracks []TlTrack

	// Changed fires once per applied tracklist update.
	Changed Signal
}

func newTracklist(exec *Executor) *Tracklist {
	return &Tracklist{
		exec:    exec,
		Version: NewValue(exec, -1),
		Consume: NewValue(exec, false),
		Random:  NewValue(exec, false),
		Repeat:  NewValue(exec, false),
		Single:  NewValue(exec, false),
	}
}

// Tracks returns a copy of the queued tracks.
func (t *Tracklist) Tracks() []TlTrack {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]TlTrack(nil), t.tracks...)
}

// Track returns the queued track with the given tlid.
func (t *Tracklist) Track(tlid int) (TlTrack, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, tl := range t.tracks {
		if tl.Tlid == tlid {
			return tl, true
		}
	}
	return TlTrack{}, false
}

// Update replaces the queue for version. A version equal to the loaded one is
// already applied and ignored.
func (t *Tracklist) Update(version int, tracks []TlTrack) {
	copied := append([]TlTrack(nil), tracks...)
	t.exec.Post(func() { t.apply(version, copied) })
}

// UpdateWait is Update with a bounded wait for completion.
func (t *Tracklist) UpdateWait(timeout time.Duration, version int, tracks []TlTrack) bool {
	copied := append([]TlTrack(nil), tracks...)
	return t.exec.PostWait(timeout, func() { t.apply(version, copied) })
}

func (t *Tracklist) apply(version int, tracks []TlTrack) {
	if t.Version.Get() == version {
		return
	}

	t.mu.Lock()
	t.tracks = tracks
	t.mu.Unlock()

	t.Version.apply(version, setOptions{})
	t.Changed.emit(setOptions{})
}
