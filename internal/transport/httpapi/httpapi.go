// Package httpapi serves the REST API, the poster endpoint and mounts the push
// transports on a single chi router.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/player"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/poster"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/version"
)

// Pinger reports whether the media backend is reachable.
type Pinger interface {
	Ping() error
}

// Config wires the API to the rest of the process. Only Controller is required.
type Config struct {
	Controller *player.Controller
	Posters    *poster.Generator
	Backend    string
	Pinger     Pinger
	// Socket serves /socket.io/; it handles its own CORS.
	Socket http.Handler
	// Events serves /events.
	Events         http.Handler
	StaticDir      string
	AllowedOrigins []string
}

// Server is the HTTP entry point.
type Server struct {
	router chi.Router
	cfg    Config
}

// New builds the router.
func New(cfg Config) *Server {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	s := &Server{router: r, cfg: cfg}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler. Socket.IO traffic bypasses the router's
// CORS layer because the Socket.IO server answers CORS itself.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Socket != nil && strings.HasPrefix(r.URL.Path, "/socket.io/") {
		s.cfg.Socket.ServeHTTP(w, r)
		return
	}
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/health", s.handleHealth)
	if s.cfg.Events != nil {
		s.router.Handle("/events", s.cfg.Events)
	}
	s.router.Get("/poster/{index}", s.handlePoster)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", s.handleVersion)
		r.Get("/state", s.handleState)
		r.Get("/tracks", s.handleTracks)
		r.Post("/player/{action}", s.handleAction)
	})

	if s.cfg.StaticDir != "" {
		log.Info().Str("dir", s.cfg.StaticDir).Msg("Serving static files")
		s.router.NotFound(spaHandler(s.cfg.StaticDir))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok", "backend": s.cfg.Backend}
	if s.cfg.Pinger != nil {
		if err := s.cfg.Pinger.Ping(); err != nil {
			body["status"] = "error"
			body["error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.GetInfo())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Controller.View())
}

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Controller.Catalog().Tracks())
}

// actionBody is the optional JSON body of a player action.
type actionBody struct {
	Value     *float64 `json:"value"`
	Index     *int     `json:"index"`
	Direction *int     `json:"direction"`
	Visible   *bool    `json:"visible"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var body actionBody
	if r.Body != nil {
		err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&body)
		if err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	cmd := player.Command{
		Action:    player.Action(chi.URLParam(r, "action")),
		Value:     body.Value,
		Index:     body.Index,
		Direction: body.Direction,
		Visible:   body.Visible,
	}

	log.Info().Str("action", string(cmd.Action)).Str("remote", r.RemoteAddr).Msg("REST player action")
	if err := s.cfg.Controller.Execute(cmd); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Controller.View())
}

// statusFor maps controller errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, player.ErrUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, player.ErrMissingArgument),
		errors.Is(err, player.ErrTrackOutOfRange),
		errors.Is(err, player.ErrInvalidDirection):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handlePoster(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	track, ok := s.cfg.Controller.Catalog().At(index)
	if !ok {
		writeError(w, http.StatusNotFound, "no such track")
		return
	}
	if poster.IsRemote(track.Poster) {
		http.Redirect(w, r, track.Poster, http.StatusFound)
		return
	}
	if s.cfg.Posters == nil {
		writeError(w, http.StatusNotFound, "posters not configured")
		return
	}

	path, err := s.cfg.Posters.Thumbnail(track, poster.ParseSize(r.URL.Query().Get("size")))
	if err != nil {
		log.Debug().Err(err).Int("index", index).Msg("Poster not available")
		writeError(w, http.StatusNotFound, "poster not available")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}

// spaHandler serves files from dir and falls back to index.html for unknown
// paths so client-side routes resolve.
func spaHandler(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err != nil || info.IsDir() && r.URL.Path != "/" {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	}
}

// requestLogger logs each request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("took", time.Since(start)).
			Msg("HTTP request")
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
