// Package socketio provides the Socket.io server that presents the player to
// browser clients.
package socketio

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/player"
)

// DefaultDebounceWindow is the default broadcast batching window.
const DefaultDebounceWindow = 50 * time.Millisecond

// Options configures the server.
type Options struct {
	// MaxExternal caps concurrent non-loopback clients; 0 disables the cap.
	MaxExternal    int
	DebounceWindow time.Duration
}

// Server handles Socket.io connections and events.
type Server struct {
	io         *socket.Server
	controller *player.Controller
	limiter    *ConnectionLimiter
	debouncer  *BroadcastDebouncer

	mu      sync.RWMutex
	clients map[string]*socket.Socket

	lastMu        sync.Mutex
	lastSeen      player.PlaybackState
	lastBroadcast *player.PlaybackState

	unsubscribe func()
}

// NewServer creates a Socket.io server for controller and starts following its store.
func NewServer(controller *player.Controller, opts Options) (*Server, error) {
	if controller == nil {
		return nil, errors.New("nil controller")
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultDebounceWindow
	}

	ioOpts := socket.DefaultServerOptions()
	ioOpts.SetPingTimeout(20 * time.Second)
	ioOpts.SetPingInterval(25 * time.Second)
	ioOpts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	s := &Server{
		io:         socket.NewServer(nil, ioOpts),
		controller: controller,
		limiter:    NewConnectionLimiter(opts.MaxExternal),
		clients:    make(map[string]*socket.Socket),
		lastSeen:   controller.Store().Snapshot(),
	}
	s.debouncer = NewBroadcastDebouncer(opts.DebounceWindow, s.BroadcastState, s.BroadcastPlaylist)

	s.setupHandlers()
	s.unsubscribe = controller.Store().Subscribe(s.onStoreChange)

	return s, nil
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

		if evicted := s.limiter.TryAdd(clientID, addr); evicted != "" {
			s.evict(evicted)
		}

		// Send initial state after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.pushState(client)
			s.pushPlaylist(client)
		}()

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		client.On("getState", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getState")
			s.pushState(client)
		})

		client.On("getPlaylist", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getPlaylist")
			s.pushPlaylist(client)
		})

		for _, action := range player.Actions {
			event := string(action)
			client.On(event, func(args ...any) {
				log.Debug().Str("id", clientID).Interface("data", args).Msg(event)
				if err := s.dispatch(event, args...); err != nil {
					log.Warn().Err(err).Str("id", clientID).Str("event", event).Msg("Command rejected")
					client.Emit("pushToastMessage", map[string]interface{}{
						"type":    "error",
						"title":   event,
						"message": err.Error(),
					})
				}
			})
		}
	})
}

// evict disconnects a client pushed out by the connection limiter.
func (s *Server) evict(clientID string) {
	s.mu.Lock()
	victim := s.clients[clientID]
	delete(s.clients, clientID)
	s.mu.Unlock()

	if victim == nil {
		return
	}
	log.Info().Str("id", clientID).Msg("Evicting oldest external client")
	victim.Emit("pushToastMessage", map[string]interface{}{
		"type":    "warning",
		"title":   "Disconnected",
		"message": "Another device took over the player",
	})
	victim.Disconnect(true)
}

// dispatch decodes a client event into a command and applies it.
func (s *Server) dispatch(event string, args ...any) error {
	return s.controller.Execute(decodeCommand(player.Action(event), args))
}

// decodeCommand reads the argument an action expects from the event payload.
// Missing or malformed arguments are left nil for Execute to reject.
func decodeCommand(action player.Action, args []any) player.Command {
	cmd := player.Command{Action: action}

	switch action {
	case player.ActionSeek, player.ActionSkip, player.ActionSetVolume:
		if v, ok := numberArg(args); ok {
			cmd.Value = &v
		}
	case player.ActionSelectTrack:
		if v, ok := intField(args, "index"); ok {
			cmd.Index = &v
		}
	case player.ActionSkipTrack:
		if v, ok := intField(args, "direction"); ok {
			cmd.Direction = &v
		}
	case player.ActionSetVolumeControlVisible:
		if v, ok := boolField(args, "value"); ok {
			cmd.Visible = &v
		}
	}
	return cmd
}

// numberArg reads a bare number or {value: number} from the first argument.
func numberArg(args []any) (float64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	switch v := args[0].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case map[string]interface{}:
		f, ok := v["value"].(float64)
		return f, ok
	}
	return 0, false
}

// intField reads an integral number field from the first argument.
func intField(args []any, key string) (int, bool) {
	if len(args) == 0 {
		return 0, false
	}
	m, ok := args[0].(map[string]interface{})
	if !ok {
		return 0, false
	}
	f, ok := m[key].(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// boolField reads a boolean field from the first argument; a bare bool is accepted too.
func boolField(args []any, key string) (bool, bool) {
	if len(args) == 0 {
		return false, false
	}
	if b, ok := args[0].(bool); ok {
		return b, true
	}
	m, ok := args[0].(map[string]interface{})
	if !ok {
		return false, false
	}
	b, ok := m[key].(bool)
	return b, ok
}

// onStoreChange schedules a broadcast for a store notification.
func (s *Server) onStoreChange(st player.PlaybackState) {
	s.lastMu.Lock()
	prev := s.lastSeen
	s.lastSeen = st
	s.lastMu.Unlock()

	s.debouncer.Trigger(classify(prev, st))
}

// classify reports whether a transition changes the playlist markers.
func classify(prev, next player.PlaybackState) Change {
	if prev.CurrentTrackIndex != next.CurrentTrackIndex ||
		prev.IsPlaying != next.IsPlaying ||
		prev.IsLoading != next.IsLoading {
		return ChangePlaylist
	}
	return ChangeState
}

// isStateSame reports whether st renders the same as the last broadcast.
func (s *Server) isStateSame(st player.PlaybackState) bool {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	return s.lastBroadcast != nil && player.RendersSame(*s.lastBroadcast, st)
}

func (s *Server) saveLastState(st player.PlaybackState) {
	s.lastMu.Lock()
	s.lastBroadcast = &st
	s.lastMu.Unlock()
}

// pushState sends the current view to a client.
func (s *Server) pushState(client *socket.Socket) {
	client.Emit("pushState", s.controller.View())
}

// pushPlaylist sends the playlist to a client.
func (s *Server) pushPlaylist(client *socket.Socket) {
	client.Emit("pushPlaylist", s.controller.View().Playlist)
}

// BroadcastState sends the view to all connected clients unless it renders the
// same as the previous broadcast.
func (s *Server) BroadcastState() {
	view := s.controller.View()
	if s.isStateSame(view.State) {
		return
	}
	s.saveLastState(view.State)

	s.io.Emit("pushState", view)

	if log.Debug().Enabled() {
		data, _ := json.Marshal(view.State)
		s.mu.RLock()
		clientCount := len(s.clients)
		s.mu.RUnlock()
		log.Debug().RawJSON("state", data).Int("clients", clientCount).Msg("Broadcast state")
	}
}

// BroadcastPlaylist sends the playlist to all connected clients.
func (s *Server) BroadcastPlaylist() {
	s.io.Emit("pushPlaylist", s.controller.View().Playlist)
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close stops broadcasting and closes the Socket.io server.
func (s *Server) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.debouncer.Stop()
	s.io.Close(nil)
	return nil
}
