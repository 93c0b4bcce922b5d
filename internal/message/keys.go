package message

// Payload keys. Server events keep the field names the server sends.
const (
	KeyURI          = "uri"
	KeyURIs         = "uris"
	KeyName         = "name"
	KeyScheme       = "scheme"
	KeyForce        = "force"
	KeyTlid         = "tlid"
	KeyTlids        = "tlids"
	KeyTlTrack      = "tl_track"
	KeyPosition     = "position"
	KeyTimePosition = "time_position"
	KeyVolume       = "volume"
	KeyMute         = "mute"
	KeyOldState     = "old_state"
	KeyNewState     = "new_state"
	KeyTitle        = "title"
	KeyPlaylist     = "playlist"
	KeyValue        = "value"
	KeyPath         = "path"
	KeyConnected    = "connected"
	KeyPart         = "part"
)

// Settings keys carried by SettingsChanged.
const (
	KeyPreloadAlbumTracks = "preload_album_tracks"
	KeyDisabledBackends   = "disabled_backends"
	KeySyncInterval       = "sync_interval"
	KeySyncTimeout        = "sync_timeout"
	KeyLookupSliceSize    = "lookup_slice_size"
)
