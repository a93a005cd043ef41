package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/catalog"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/player"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/poster"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/transport/httpapi"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/transport/socketio"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/transport/sse"
)

type serveOptions struct {
	backendOptions

	Port        string
	Catalog     string
	CacheDir    string
	StaticDir   string
	MaxExternal int
	Debug       bool
}

func serveCmd() *cobra.Command {
	var o serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the player behind Socket.IO, SSE and the REST API",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runServe(o)
		},
	}

	o.addFlags(cmd)
	f := cmd.Flags()
	f.StringVar(&o.Port, "port", "3001", "HTTP server port")
	f.StringVar(&o.Catalog, "catalog", "", "Track catalog (.json or .db); built-in demo catalog when empty")
	f.StringVar(&o.CacheDir, "cache-dir", "", "Poster thumbnail cache directory; thumbnails disabled when empty")
	f.StringVar(&o.StaticDir, "static", "", "Directory to serve static files from (optional)")
	f.IntVar(&o.MaxExternal, "max-external", 2, "Maximum concurrent non-local Socket.IO clients (0 = unlimited)")
	f.BoolVar(&o.Debug, "debug", false, "Enable debug logging")

	return cmd
}

func runServe(o serveOptions) {
	setupLogging(os.Stderr, o.Debug)
	printBanner()
	log.Info().
		Str("port", o.Port).
		Str("backend", o.Backend).
		Str("catalog", o.Catalog).
		Str("media_root", o.MediaRoot).
		Int("max_external", o.MaxExternal).
		Msg("Configuration")

	cat, err := catalog.Load(o.Catalog)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load catalog")
	}
	log.Info().Int("tracks", cat.Len()).Msg("Catalog loaded")

	b, err := openBackend(o.backendOptions)
	if err != nil {
		log.Fatal().Err(err).Str("backend", o.Backend).Msg("Failed to open media backend")
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go b.Run(ctx)

	controller := player.NewController(b.Element, cat)
	defer controller.Close()

	socketServer, err := socketio.NewServer(controller, socketio.Options{MaxExternal: o.MaxExternal})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()

	events := sse.NewPublisher(controller)
	defer events.Close()

	var posters *poster.Generator
	if o.CacheDir != "" {
		posters = poster.NewGenerator(o.MediaRoot, o.CacheDir)
		go func() {
			start := time.Now()
			n := posters.Warm(cat)
			log.Info().Int("generated", n).Dur("took", time.Since(start)).Msg("Poster thumbnails warmed")
		}()
	}

	api := httpapi.New(httpapi.Config{
		Controller: controller,
		Posters:    posters,
		Backend:    o.Backend,
		Pinger:     b.Pinger,
		Socket:     socketServer,
		Events:     events,
		StaticDir:  o.StaticDir,
	})

	srv := &http.Server{
		Addr:              ":" + o.Port,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := httpapi.Serve(ctx, srv); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
		return
	}
	log.Info().Msg("Server stopped")
}
