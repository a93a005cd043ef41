// Package simulated provides a clock-driven media element that behaves like a
// browser video element without decoding any media.
package simulated

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/player"
)

// ErrNoSource is returned by Play before any resource was loaded.
var ErrNoSource = errors.New("no source loaded")

// Config controls the simulated element.
type Config struct {
	// DefaultDuration is used for locators without an entry in Durations.
	DefaultDuration time.Duration
	Durations       map[string]time.Duration
	// BindLatency delays loadedmetadata/canplay after Load.
	BindLatency time.Duration
	// TickInterval is the period of the playback clock used by Run.
	TickInterval time.Duration
	// RejectPlay makes every play request fail, like an autoplay policy.
	RejectPlay bool
	// DenyFullscreen makes every fullscreen request fail.
	DenyFullscreen bool
}

// DefaultConfig returns a two-minute track with a short bind latency.
func DefaultConfig() Config {
	return Config{
		DefaultDuration: 2 * time.Minute,
		BindLatency:     150 * time.Millisecond,
		TickInterval:    250 * time.Millisecond,
	}
}

// Element is a simulated media element. It is safe for concurrent use.
type Element struct {
	player.Emitter

	cfg Config

	mu         sync.Mutex
	source     string
	loadGen    uint64
	ready      bool
	paused     bool
	position   time.Duration
	duration   time.Duration
	volume     float64
	fullscreen bool
}

// New creates a simulated element.
func New(cfg Config) *Element {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	return &Element{
		cfg:    cfg,
		paused: true,
		volume: 1,
	}
}

// Run advances the playback clock until ctx is cancelled.
func (e *Element) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	log.Info().Dur("tick", e.cfg.TickInterval).Msg("Simulated media clock started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Simulated media clock stopped")
			return
		case <-ticker.C:
			e.Advance(e.cfg.TickInterval)
		}
	}
}

// Advance moves the playback clock forward by d if playing, emitting
// timeupdate and, at the end of the resource, pause and ended.
func (e *Element) Advance(d time.Duration) {
	e.mu.Lock()
	if e.paused || !e.ready {
		e.mu.Unlock()
		return
	}

	e.position += d
	ended := e.position >= e.duration
	if ended {
		e.position = e.duration
		e.paused = true
	}
	src := e.source
	pos := e.position.Seconds()
	e.mu.Unlock()

	e.Emit(player.Event{Type: player.EventTimeUpdate, Position: pos, Source: src})
	if ended {
		e.Emit(player.Event{Type: player.EventPaused, Source: src})
		e.Emit(player.Event{Type: player.EventEnded, Source: src})
	}
}

// Play starts playback. A play on an ended resource restarts it.
func (e *Element) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.cfg.RejectPlay {
		return fmt.Errorf("%w: autoplay policy", player.ErrPlaybackRejected)
	}

	e.mu.Lock()
	if e.source == "" {
		e.mu.Unlock()
		return ErrNoSource
	}
	if !e.paused {
		e.mu.Unlock()
		return nil
	}
	if e.ready && e.position >= e.duration {
		e.position = 0
	}
	e.paused = false
	ready := e.ready
	src := e.source
	e.mu.Unlock()

	if ready {
		e.Emit(player.Event{Type: player.EventPlaying, Source: src})
	}
	return nil
}

// Pause pauses playback.
func (e *Element) Pause() error {
	e.mu.Lock()
	if e.paused {
		e.mu.Unlock()
		return nil
	}
	e.paused = true
	src := e.source
	e.mu.Unlock()

	e.Emit(player.Event{Type: player.EventPaused, Source: src})
	return nil
}

// Paused reports whether playback is paused.
func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Position returns the playback position in seconds.
func (e *Element) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position.Seconds()
}

// SetPosition moves the playback position, clamped to the resource.
func (e *Element) SetPosition(seconds float64) error {
	e.mu.Lock()
	if !e.ready {
		e.mu.Unlock()
		return errors.New("resource not ready")
	}
	pos := time.Duration(seconds * float64(time.Second))
	if pos < 0 {
		pos = 0
	}
	if pos > e.duration {
		pos = e.duration
	}
	e.position = pos
	src := e.source
	e.mu.Unlock()

	e.Emit(player.Event{Type: player.EventTimeUpdate, Position: pos.Seconds(), Source: src})
	return nil
}

// Duration returns the resource duration in seconds, 0 until metadata loaded.
func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return 0
	}
	return e.duration.Seconds()
}

// SetVolume sets the output volume in [0,1].
func (e *Element) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return fmt.Errorf("volume %v out of range [0,1]", volume)
	}
	e.mu.Lock()
	e.volume = volume
	e.mu.Unlock()
	return nil
}

// Volume returns the output volume.
func (e *Element) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// Source returns the bound locator.
func (e *Element) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

// Load binds url. Metadata and canplay follow after the configured bind latency.
func (e *Element) Load(url string) error {
	if url == "" {
		return errors.New("empty locator")
	}

	e.mu.Lock()
	e.loadGen++
	gen := e.loadGen
	e.source = url
	e.ready = false
	e.paused = true
	e.position = 0
	e.duration = 0
	e.mu.Unlock()

	log.Debug().Str("url", url).Dur("latency", e.cfg.BindLatency).Msg("Simulated load")
	e.Emit(player.Event{Type: player.EventWaiting, Source: url})

	if e.cfg.BindLatency <= 0 {
		e.finishLoad(gen)
		return nil
	}
	time.AfterFunc(e.cfg.BindLatency, func() { e.finishLoad(gen) })
	return nil
}

// finishLoad completes the load of generation gen unless a newer Load superseded it.
func (e *Element) finishLoad(gen uint64) {
	e.mu.Lock()
	if gen != e.loadGen {
		e.mu.Unlock()
		return
	}
	e.ready = true
	e.duration = e.durationFor(e.source)
	src := e.source
	duration := e.duration.Seconds()
	startPlaying := !e.paused
	e.mu.Unlock()

	e.Emit(player.Event{Type: player.EventLoadedMetadata, Duration: duration, Source: src})
	e.Emit(player.Event{Type: player.EventCanPlay, Source: src})
	if startPlaying {
		e.Emit(player.Event{Type: player.EventPlaying, Source: src})
	}
}

func (e *Element) durationFor(url string) time.Duration {
	if d, ok := e.cfg.Durations[url]; ok {
		return d
	}
	return e.cfg.DefaultDuration
}

// IsFullscreen reports whether the simulated surface is fullscreen.
func (e *Element) IsFullscreen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fullscreen
}

// EnterFullscreen switches the simulated surface to fullscreen.
func (e *Element) EnterFullscreen(ctx context.Context) error {
	if e.cfg.DenyFullscreen {
		return player.ErrFullscreenDenied
	}
	e.mu.Lock()
	e.fullscreen = true
	e.mu.Unlock()
	return nil
}

// ExitFullscreen leaves fullscreen.
func (e *Element) ExitFullscreen(ctx context.Context) error {
	e.mu.Lock()
	e.fullscreen = false
	e.mu.Unlock()
	return nil
}
