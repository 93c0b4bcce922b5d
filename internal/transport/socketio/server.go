// Package socketio bridges browser UIs to the remote over Socket.io. Model
// changes are pushed to every client; client events become commands.
package socketio

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/edumarques81/stellar-remote/internal/bus"
	"github.com/edumarques81/stellar-remote/internal/domain/model"
	"github.com/edumarques81/stellar-remote/internal/message"
)

// DefaultWindow is the broadcast debounce window.
const DefaultWindow = 50 * time.Millisecond

// Options tunes the server.
type Options struct {
	// MaxExternalClients caps clients from other hosts; zero means no cap.
	MaxExternalClients int
	// Window is the debounce window of broadcasts.
	Window time.Duration
}

// Server handles Socket.io connections and events.
type Server struct {
	io        *socket.Server
	model     *model.Model
	sender    bus.Sender
	limiter   *ConnectionLimiter
	debouncer *BroadcastDebouncer

	// broadcast emits to every client.
	broadcast func(event string, payload any)

	mu      sync.RWMutex
	clients map[string]*socket.Socket
}

// NewServer creates the Socket.io server and starts observing m.
func NewServer(m *model.Model, sender bus.Sender, o Options) (*Server, error) {
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}

	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	s := &Server{
		io:      socket.NewServer(nil, opts),
		model:   m,
		sender:  sender,
		limiter: NewConnectionLimiter(o.MaxExternalClients),
		clients: make(map[string]*socket.Socket),
	}
	s.broadcast = func(event string, payload any) {
		s.io.Emit(event, payload)
	}
	s.debouncer = NewBroadcastDebouncer(o.Window, map[Topic]func(){
		TopicState:     s.BroadcastState,
		TopicQueue:     s.BroadcastQueue,
		TopicPlaylists: s.BroadcastPlaylists,
	})

	s.observe()
	s.setupHandlers()
	return s, nil
}

func (s *Server) Name() string { return "ui-bridge" }

// Registrations makes the server a message consumer. It is registered after
// the controllers so that it sees their results.
func (s *Server) Registrations() []bus.Registration {
	return []bus.Registration{
		{Types: []message.Type{message.ModelChanged}, Handler: s.modelChanged},
		{Types: []message.Type{message.DirectoryCompleted}, Handler: s.directoryCompleted},
		{Types: []message.Type{message.AlbumCompleted}, Handler: s.albumCompleted},
		{Types: []message.Type{message.ArtistCompleted}, Handler: s.artistCompleted},
		{Types: []message.Type{message.PlaylistCompleted}, Handler: s.playlistCompleted},
		{Types: []message.Type{message.ImageAvailable}, Handler: s.imageAvailable},
	}
}

// observe triggers broadcasts from model notifications. Observers run on the
// executor goroutine, so they only mark topics.
func (s *Server) observe() {
	state := func() { s.debouncer.Trigger(TopicState) }
	pb, mx, tl := s.model.Playback, s.model.Mixer, s.model.Tracklist

	onChange(s.model.Connected, state)
	onChange(pb.State, state)
	onChange(pb.TimePosition, state)
	onChange(pb.CurrentTlid, state)
	onChange(pb.CurrentTrack, state)
	onChange(pb.ImagePath, state)
	onChange(pb.StreamTitle, state)
	onChange(mx.Volume, state)
	onChange(mx.Mute, state)
	onChange(tl.Consume, state)
	onChange(tl.Random, state)
	onChange(tl.Repeat, state)
	onChange(tl.Single, state)

	tl.Changed.Observe(func() { s.debouncer.Trigger(TopicQueue) })
	s.model.Playlists.Changed.Observe(func() { s.debouncer.Trigger(TopicPlaylists) })
}

func onChange[T comparable](v *model.Value[T], fn func()) {
	v.Observe(func(_, _ T) { fn() })
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		addr := client.Handshake().Address

		log.Info().Str("id", clientID).Str("addr", addr).Msg("Client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		if evicted := s.limiter.Add(clientID, addr); evicted != "" {
			s.evict(evicted)
		}

		// Initial state once the client had time to register its listeners.
		time.AfterFunc(100*time.Millisecond, func() {
			s.pushInitial(client)
		})

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				reason = cast.ToString(args[0])
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		client.On("getState", func(...any) {
			client.Emit("pushState", State(s.model))
		})
		client.On("getQueue", func(...any) {
			client.Emit("pushQueue", queuePayload(s.model))
		})
		client.On("getPlaylists", func(...any) {
			client.Emit("pushPlaylists", playlistsPayload(s.model))
		})
		client.On("getLibrary", func(args ...any) {
			uri := cast.ToString(arg(args, "uri")["uri"])
			if d, ok := s.model.Library.Directory(uri); ok && d.Complete() {
				client.Emit("pushLibrary", libraryPayload(d))
				return
			}
			s.handle(clientID, "browse", []any{map[string]any{"uri": uri}})
		})

		for event := range commands {
			client.On(event, func(args ...any) {
				s.handle(clientID, event, args)
			})
		}
		client.On("pause", func(args ...any) {
			s.handle(clientID, "pause", args)
		})
		client.On("seek", func(args ...any) {
			s.handle(clientID, "seek", args)
		})
	})
}

// handle runs one client event.
func (s *Server) handle(clientID, event string, args []any) {
	log.Debug().Str("id", clientID).Str("event", event).Interface("data", args).Msg("Client event")

	switch event {
	case "pause":
		// Pausing is a toggle that only applies while playing.
		if s.model.Playback.State.Get() == model.StatePlaying {
			s.sender.Send(message.New(message.TogglePlaybackState, nil))
		}
		return
	case "seek":
		raw, ok := field(arg(args, "position"), "position")
		pos, err := cast.ToInt64E(raw)
		if !ok || err != nil || pos < 0 {
			log.Warn().Str("id", clientID).Interface("data", args).Msg("Invalid seek position")
			return
		}
		// A direct position write is turned into a seek by the playback
		// controller.
		s.model.Playback.TimePosition.Set(pos)
		return
	}

	msg, ok := translate(event, args)
	if !ok {
		log.Warn().Str("id", clientID).Str("event", event).Interface("data", args).Msg("Invalid client event")
		return
	}
	s.sender.Send(msg)
}

func (s *Server) pushInitial(client *socket.Socket) {
	client.Emit("pushState", State(s.model))
	client.Emit("pushQueue", queuePayload(s.model))
	client.Emit("pushPlaylists", playlistsPayload(s.model))
	client.Emit("pushLibrary", libraryPayload(s.model.Library.Root()))
}

func (s *Server) evict(clientID string) {
	s.mu.RLock()
	client, ok := s.clients[clientID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	log.Info().Str("id", clientID).Msg("Evicting oldest external client")
	client.Emit("pushEvicted", map[string]any{"reason": "too many clients"})
	client.Disconnect(true)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// BroadcastState sends the playback state to all clients.
func (s *Server) BroadcastState() {
	state := State(s.model)
	s.broadcast("pushState", state)

	if log.Debug().Enabled() {
		data, _ := json.Marshal(state)
		log.Debug().RawJSON("state", data).Int("clients", s.Clients()).Msg("Broadcast state")
	}
}

// BroadcastQueue sends the tracklist to all clients.
func (s *Server) BroadcastQueue() {
	s.broadcast("pushQueue", queuePayload(s.model))
}

// BroadcastPlaylists sends the playlists to all clients.
func (s *Server) BroadcastPlaylists() {
	s.broadcast("pushPlaylists", playlistsPayload(s.model))
}

// Message handlers

func (s *Server) modelChanged(_ context.Context, msg message.Message) error {
	switch msg.String(message.KeyPart) {
	case "tracklist":
		s.debouncer.Trigger(TopicQueue, TopicState)
	default:
		s.debouncer.Trigger(TopicState)
	}
	return nil
}

func (s *Server) directoryCompleted(_ context.Context, msg message.Message) error {
	d, ok := s.model.Library.Directory(msg.String(message.KeyURI))
	if !ok {
		return nil
	}
	s.broadcast("pushLibrary", libraryPayload(d))
	return nil
}

func (s *Server) albumCompleted(_ context.Context, msg message.Message) error {
	a, ok := s.model.Library.Album(msg.String(message.KeyURI))
	if !ok {
		return nil
	}
	s.broadcast("pushAlbum", toAlbumItem(a, true))
	return nil
}

func (s *Server) artistCompleted(_ context.Context, msg message.Message) error {
	a, ok := s.model.Artists.Get(msg.String(message.KeyURI))
	if !ok {
		return nil
	}
	s.broadcast("pushArtist", toArtistItem(a))
	return nil
}

func (s *Server) playlistCompleted(context.Context, message.Message) error {
	s.debouncer.Trigger(TopicPlaylists)
	return nil
}

func (s *Server) imageAvailable(_ context.Context, msg message.Message) error {
	uri := msg.String(message.KeyURI)
	if _, ok := s.model.Library.Album(uri); !ok {
		return nil
	}
	s.broadcast("pushAlbumImage", map[string]string{
		"uri":   uri,
		"image": imageURL(msg.String(message.KeyPath)),
	})
	return nil
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close stops broadcasting and closes the Socket.io server.
func (s *Server) Close() error {
	s.debouncer.Stop()
	s.io.Close(nil)
	return nil
}
