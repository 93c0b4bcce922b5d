package socketio

import (
	"github.com/spf13/cast"

	"github.com/edumarques81/stellar-remote/internal/message"
)

// commandFunc turns the arguments of a client event into a command.
// False means the arguments were unusable.
type commandFunc func(args []any) (message.Message, bool)

// arg returns the first argument as an object. Scalars are wrapped under
// fallback so that `volume(42)` and `volume({value: 42})` read alike.
func arg(args []any, fallback string) map[string]any {
	if len(args) == 0 || args[0] == nil {
		return nil
	}
	if m, err := cast.ToStringMapE(args[0]); err == nil {
		return m
	}
	return map[string]any{fallback: args[0]}
}

// field returns a present, non-null value.
func field(m map[string]any, key string) (any, bool) {
	v, ok := m[key]
	return v, ok && v != nil
}

func bare(t message.Type) commandFunc {
	return func([]any) (message.Message, bool) {
		return message.New(t, nil), true
	}
}

// option builds commands carrying a boolean "value".
func option(t message.Type) commandFunc {
	return func(args []any) (message.Message, bool) {
		raw, ok := field(arg(args, "value"), "value")
		if !ok {
			return message.Message{}, false
		}
		v, err := cast.ToBoolE(raw)
		if err != nil {
			return message.Message{}, false
		}
		return message.New(t, message.Data{message.KeyValue: v}), true
	}
}

// withURI builds commands carrying one required uri.
func withURI(t message.Type, extra ...string) commandFunc {
	return func(args []any) (message.Message, bool) {
		m := arg(args, "uri")
		uri := cast.ToString(m["uri"])
		if uri == "" {
			return message.Message{}, false
		}
		data := message.Data{message.KeyURI: uri}
		for _, k := range extra {
			if v, ok := m[k]; ok {
				data[k] = v
			}
		}
		return message.New(t, data), true
	}
}

// uris reads "uris", accepting a single "uri" as well.
func uris(m map[string]any) []string {
	if list := cast.ToStringSlice(m["uris"]); len(list) > 0 {
		return list
	}
	if uri := cast.ToString(m["uri"]); uri != "" {
		return []string{uri}
	}
	return nil
}

var commands = map[string]commandFunc{
	"toggle":          bare(message.TogglePlaybackState),
	"next":            bare(message.PlayNextTrack),
	"prev":            bare(message.PlayPrevTrack),
	"clearQueue":      bare(message.ClearTracklist),
	"listPlaylists":   bare(message.ListPlaylists),
	"playRandomAlbum": bare(message.PlayRandomAlbum),
	"collectArtists":  bare(message.CollectArtists),

	"setRandom":  option(message.SetRandom),
	"setRepeat":  option(message.SetRepeat),
	"setConsume": option(message.SetConsume),
	"setSingle":  option(message.SetSingle),

	"browse":           withURI(message.BrowseDirectory, message.KeyForce),
	"completeAlbum":    withURI(message.CompleteAlbum),
	"completePlaylist": withURI(message.CompletePlaylist, message.KeyForce),
	"completeArtist":   withURI(message.CompleteArtist),
	"deletePlaylist":   withURI(message.DeletePlaylist),

	"play": func(args []any) (message.Message, bool) {
		tlid := cast.ToInt(arg(args, "tlid")["tlid"])
		if tlid <= 0 {
			tlid = -1
		}
		return message.New(message.Play, message.Data{message.KeyTlid: tlid}), true
	},
	"volume": func(args []any) (message.Message, bool) {
		raw, ok := field(arg(args, "value"), "value")
		if !ok {
			return message.Message{}, false
		}
		v, err := cast.ToIntE(raw)
		if err != nil || v < 0 {
			return message.Message{}, false
		}
		return message.New(message.SetVolume, message.Data{message.KeyVolume: v}), true
	},
	"mute": func(args []any) (message.Message, bool) {
		raw, ok := field(arg(args, "value"), "value")
		if !ok {
			return message.Message{}, false
		}
		v, err := cast.ToBoolE(raw)
		if err != nil {
			return message.Message{}, false
		}
		return message.New(message.SetMute, message.Data{message.KeyMute: v}), true
	},
	"playTracks": func(args []any) (message.Message, bool) {
		list := uris(arg(args, "uris"))
		if len(list) == 0 {
			return message.Message{}, false
		}
		return message.New(message.PlayTracks, message.Data{message.KeyURIs: list}), true
	},
	"addToQueue": func(args []any) (message.Message, bool) {
		m := arg(args, "uri")
		list := uris(m)
		if len(list) == 0 {
			return message.Message{}, false
		}
		data := message.Data{message.KeyURIs: list}
		if raw, ok := field(m, "position"); ok {
			if pos, err := cast.ToIntE(raw); err == nil {
				data[message.KeyPosition] = pos
			}
		}
		return message.New(message.AddToTracklist, data), true
	},
	"removeFromQueue": func(args []any) (message.Message, bool) {
		m := arg(args, "tlid")
		tlids := cast.ToIntSlice(m["tlids"])
		if tlid := cast.ToInt(m["tlid"]); tlid > 0 {
			tlids = append(tlids, tlid)
		}
		if len(tlids) == 0 {
			return message.Message{}, false
		}
		return message.New(message.RemoveFromTracklist, message.Data{message.KeyTlids: tlids}), true
	},
	"savePlaylist": func(args []any) (message.Message, bool) {
		m := arg(args, "name")
		name := cast.ToString(m["name"])
		if name == "" {
			return message.Message{}, false
		}
		data := message.Data{message.KeyName: name, message.KeyURIs: cast.ToStringSlice(m["uris"])}
		if uri := cast.ToString(m["uri"]); uri != "" {
			data[message.KeyURI] = uri
		}
		return message.New(message.SavePlaylist, data), true
	},
}

// translate resolves a client event into a command.
func translate(event string, args []any) (message.Message, bool) {
	fn, ok := commands[event]
	if !ok {
		return message.Message{}, false
	}
	return fn(args)
}
