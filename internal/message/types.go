// Package message defines the closed catalog of messages exchanged between the
// event source, the UI bridge and the controllers.
package message

// Group partitions message types by their producer.
type Group int

const (
	// GroupCommand messages are issued by a user interface.
	GroupCommand Group = iota
	// GroupServerEvent messages mirror notifications pushed by the server.
	GroupServerEvent
	// GroupInternal messages are raised by controllers to trigger dependent work.
	GroupInternal
)

func (g Group) String() string {
	switch g {
	case GroupCommand:
		return "command"
	case GroupServerEvent:
		return "server_event"
	case GroupInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Type identifies a message. The set is closed: values outside the declared
// constants are never produced.
type Type int

// Commands.
const (
	TogglePlaybackState Type = iota + 1
	PlayPrevTrack
	PlayNextTrack
	Play
	Seek
	SetVolume
	SetMute
	BrowseDirectory
	CompleteAlbum
	CompletePlaylist
	ListPlaylists
	SavePlaylist
	DeletePlaylist
	PlayTracks
	AddToTracklist
	RemoveFromTracklist
	ClearTracklist
	PlayRandomAlbum
	SetConsume
	SetRandom
	SetRepeat
	SetSingle
	IdentifyPlayingState
	FetchTracklist
	FetchMixerState
	CollectArtists
	CompleteArtist
)

// Server events.
const (
	TrackPlaybackStarted Type = iota + 100
	TrackPlaybackPaused
	TrackPlaybackResumed
	TrackPlaybackEnded
	PlaybackStateChanged
	VolumeChanged
	MuteChanged
	TracklistChanged
	Seeked
	OptionsChanged
	PlaylistChanged
	PlaylistDeleted
	PlaylistsLoaded
	StreamTitleChanged
)

// Internal events.
const (
	ConnectionChanged Type = iota + 200
	ModelChanged
	FetchAlbumImages
	FetchTrackImages
	ImageAvailable
	DirectoryCompleted
	AlbumCompleted
	PlaylistCompleted
	ArtistCompleted
	TimePositionSynced
	SettingsChanged
)

type typeInfo struct {
	name  string
	group Group
}

var catalog = map[Type]typeInfo{
	TogglePlaybackState:  {"toggle_playback_state", GroupCommand},
	PlayPrevTrack:        {"play_prev_track", GroupCommand},
	PlayNextTrack:        {"play_next_track", GroupCommand},
	Play:                 {"play", GroupCommand},
	Seek:                 {"seek", GroupCommand},
	SetVolume:            {"set_volume", GroupCommand},
	SetMute:              {"set_mute", GroupCommand},
	BrowseDirectory:      {"browse_directory", GroupCommand},
	CompleteAlbum:        {"complete_album", GroupCommand},
	CompletePlaylist:     {"complete_playlist", GroupCommand},
	ListPlaylists:        {"list_playlists", GroupCommand},
	SavePlaylist:         {"save_playlist", GroupCommand},
	DeletePlaylist:       {"delete_playlist", GroupCommand},
	PlayTracks:           {"play_tracks", GroupCommand},
	AddToTracklist:       {"add_to_tracklist", GroupCommand},
	RemoveFromTracklist:  {"remove_from_tracklist", GroupCommand},
	ClearTracklist:       {"clear_tracklist", GroupCommand},
	PlayRandomAlbum:      {"play_random_album", GroupCommand},
	SetConsume:           {"set_consume", GroupCommand},
	SetRandom:            {"set_random", GroupCommand},
	SetRepeat:            {"set_repeat", GroupCommand},
	SetSingle:            {"set_single", GroupCommand},
	IdentifyPlayingState: {"identify_playing_state", GroupCommand},
	FetchTracklist:       {"fetch_tracklist", GroupCommand},
	FetchMixerState:      {"fetch_mixer_state", GroupCommand},
	CollectArtists:       {"collect_artists", GroupCommand},
	CompleteArtist:       {"complete_artist", GroupCommand},

	TrackPlaybackStarted: {"track_playback_started", GroupServerEvent},
	TrackPlaybackPaused:  {"track_playback_paused", GroupServerEvent},
	TrackPlaybackResumed: {"track_playback_resumed", GroupServerEvent},
	TrackPlaybackEnded:   {"track_playback_ended", GroupServerEvent},
	PlaybackStateChanged: {"playback_state_changed", GroupServerEvent},
	VolumeChanged:        {"volume_changed", GroupServerEvent},
	MuteChanged:          {"mute_changed", GroupServerEvent},
	TracklistChanged:     {"tracklist_changed", GroupServerEvent},
	Seeked:               {"seeked", GroupServerEvent},
	OptionsChanged:       {"options_changed", GroupServerEvent},
	PlaylistChanged:      {"playlist_changed", GroupServerEvent},
	PlaylistDeleted:      {"playlist_deleted", GroupServerEvent},
	PlaylistsLoaded:      {"playlists_loaded", GroupServerEvent},
	StreamTitleChanged:   {"stream_title_changed", GroupServerEvent},

	ConnectionChanged:  {"connection_changed", GroupInternal},
	ModelChanged:       {"model_changed", GroupInternal},
	FetchAlbumImages:   {"fetch_album_images", GroupInternal},
	FetchTrackImages:   {"fetch_track_images", GroupInternal},
	ImageAvailable:     {"image_available", GroupInternal},
	DirectoryCompleted: {"directory_completed", GroupInternal},
	AlbumCompleted:     {"album_completed", GroupInternal},
	PlaylistCompleted:  {"playlist_completed", GroupInternal},
	ArtistCompleted:    {"artist_completed", GroupInternal},
	TimePositionSynced: {"time_position_synced", GroupInternal},
	SettingsChanged:    {"settings_changed", GroupInternal},
}

// serverEvents maps Mopidy event names onto message types. It is derived from
// the catalog once at init.
var serverEvents = func() map[string]Type {
	m := make(map[string]Type)
	for t, info := range catalog {
		if info.group == GroupServerEvent {
			m[info.name] = t
		}
	}
	return m
}()

// String returns the stable name of the type.
func (t Type) String() string {
	if info, ok := catalog[t]; ok {
		return info.name
	}
	return "unknown"
}

// Group returns the producer group of the type.
func (t Type) Group() Group {
	return catalog[t].group
}

// Valid reports whether t belongs to the catalog.
func (t Type) Valid() bool {
	_, ok := catalog[t]
	return ok
}

// FromServerEvent resolves a server event name. Unknown names report false.
func FromServerEvent(event string) (Type, bool) {
	t, ok := serverEvents[event]
	return t, ok
}

// All returns every type of the catalog.
func All() []Type {
	types := make([]Type, 0, len(catalog))
	for t := range catalog {
		types = append(types, t)
	}
	return types
}
