package model

// PlaybackState mirrors the server playback state.
type PlaybackState string

const (
	StateUnknown PlaybackState = "unknown"
	StatePlaying PlaybackState = "playing"
	StatePaused  PlaybackState = "paused"
	StateStopped PlaybackState = "stopped"
)

// ParsePlaybackState maps a server state name; anything unrecognized is
// StateUnknown.
func ParsePlaybackState(s string) PlaybackState {
	switch PlaybackState(s) {
	case StatePlaying, StatePaused, StateStopped:
		return PlaybackState(s)
	default:
		return StateUnknown
	}
}

// Playback holds the state of the player.
type Playback struct {
	State *Value[PlaybackState]
	// TimePosition is the elapsed time of the current track in ms, -1 if unknown.
	TimePosition *Value[int64]
	// CurrentTlid is the tracklist id of the current track, -1 if none.
	CurrentTlid     *Value[int]
	CurrentTrackURI *Value[string]
	CurrentTrack    *Value[Track]
	ImagePath       *Value[string]
	StreamTitle     *Value[string]

	seekForwarder ObserverID
}

func newPlayback(exec *Executor) *Playback {
	return &Playback{
		State:           NewValue(exec, StateUnknown),
		TimePosition:    NewValue[int64](exec, -1),
		CurrentTlid:     NewValue(exec, -1),
		CurrentTrackURI: NewValue(exec, ""),
		CurrentTrack:    NewValue(exec, Track{}),
		ImagePath:       NewValue(exec, ""),
		StreamTitle:     NewValue(exec, ""),
	}
}

// ForwardUserSeeks installs the observer that turns direct writes of
// TimePosition (a user dragging a position slider) into seek requests. Only one
// forwarder is kept; installing a new one replaces the previous.
func (p *Playback) ForwardUserSeeks(seek func(positionMs int64)) {
	if p.seekForwarder != 0 {
		p.TimePosition.Unobserve(p.seekForwarder)
	}
	p.seekForwarder = p.TimePosition.Observe(func(_, pos int64) {
		if pos >= 0 {
			seek(pos)
		}
	})
}

// SetTimePosition records a position that came from the server or from local
// estimation. It never reaches the user-seek forwarder.
func (p *Playback) SetTimePosition(positionMs int64, opts ...SetOption) {
	p.TimePosition.Set(positionMs, append(opts, Block(p.seekForwarder))...)
}

// AdvanceTimePosition adds deltaMs to the position as it stands when the write
// is applied, so a position written in the meantime by a seek or a track change
// is advanced rather than overwritten. An unknown position stays unknown. Like
// SetTimePosition it never reaches the user-seek forwarder.
func (p *Playback) AdvanceTimePosition(deltaMs int64) {
	tp := p.TimePosition
	o := buildOptions([]SetOption{Block(p.seekForwarder)})
	tp.exec.Post(func() {
		if pos := tp.Get(); pos >= 0 {
			tp.apply(pos+deltaMs, o)
		}
	})
}

// Mixer holds volume and mute.
type Mixer struct {
	// Volume is 0-100, -1 if unknown.
	Volume *Value[int]
	Mute   *Value[bool]
}

func newMixer(exec *Executor) *Mixer {
	return &Mixer{
		Volume: NewValue(exec, -1),
		Mute:   NewValue(exec, false),
	}
}
