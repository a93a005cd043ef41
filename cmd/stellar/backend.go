package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/player"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/infra/localaudio"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/infra/mpd"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/infra/simulated"
)

const (
	backendMPD   = "mpd"
	backendSim   = "sim"
	backendLocal = "local"
)

var backends = []string{backendMPD, backendSim, backendLocal}

// backendOptions selects and configures the media element.
type backendOptions struct {
	Backend     string
	MPDHost     string
	MPDPort     int
	MPDPassword string
	MediaRoot   string

	SimDuration    time.Duration
	SimBindLatency time.Duration
}

func (o *backendOptions) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.Backend, "backend", backendSim, "Media element ("+strings.Join(backends, "|")+")")
	f.StringVar(&o.MPDHost, "mpd-host", "localhost", "MPD host")
	f.IntVar(&o.MPDPort, "mpd-port", 6600, "MPD port")
	f.StringVar(&o.MPDPassword, "mpd-password", "", "MPD password")
	f.StringVar(&o.MediaRoot, "media-root", "", "Directory track and poster locators are resolved against")
	f.DurationVar(&o.SimDuration, "sim-duration", simulated.DefaultConfig().DefaultDuration, "Track duration of the simulated element")
	f.DurationVar(&o.SimBindLatency, "sim-bind-latency", simulated.DefaultConfig().BindLatency, "Load latency of the simulated element")
}

// backend is an opened media element plus its lifecycle hooks.
type backend struct {
	Element player.MediaElement
	// Pinger is set when the element talks to an external daemon.
	Pinger interface{ Ping() error }

	run   func(ctx context.Context)
	close func() error
}

// Run drives the element until ctx is cancelled.
func (b *backend) Run(ctx context.Context) {
	if b.run != nil {
		b.run(ctx)
	}
}

// Close releases the element's resources.
func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

func openBackend(o backendOptions) (*backend, error) {
	switch o.Backend {
	case backendSim:
		cfg := simulated.DefaultConfig()
		cfg.DefaultDuration = o.SimDuration
		cfg.BindLatency = o.SimBindLatency
		e := simulated.New(cfg)
		return &backend{Element: e, run: e.Run}, nil

	case backendMPD:
		client := mpd.NewClient(o.MPDHost, o.MPDPort, o.MPDPassword)
		if err := client.Connect(); err != nil {
			return nil, fmt.Errorf("connect to MPD: %w", err)
		}
		if err := client.Ping(); err != nil {
			client.Close()
			return nil, fmt.Errorf("MPD ping: %w", err)
		}
		log.Info().Str("host", o.MPDHost).Int("port", o.MPDPort).Msg("MPD connection verified")
		e := mpd.NewElement(client, 0)
		return &backend{Element: e, Pinger: client, run: e.Run, close: client.Close}, nil

	case backendLocal:
		if !localaudio.Available {
			return nil, localaudio.ErrUnavailable
		}
		e, err := localaudio.New(localaudio.Config{MediaRoot: o.MediaRoot})
		if err != nil {
			return nil, err
		}
		return &backend{Element: e, run: e.Run, close: e.Close}, nil
	}

	return nil, fmt.Errorf("unknown backend %q (want one of %v)", o.Backend, backends)
}
