package mpd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/player"
)

// endTolerance is how close to the end a play->stop transition must happen
// to count as the resource ending rather than an external stop.
const endTolerance = 2.0

// status is the subset of MPD status the element cares about.
type status struct {
	State    string // "play", "pause" or "stop"
	Elapsed  float64
	Duration float64
	Volume   int // -1 when MPD has no mixer
}

// parseStatus extracts a status from MPD attributes.
func parseStatus(attrs mpd.Attrs) status {
	st := status{State: attrs["state"], Volume: -1}
	if st.State == "" {
		st.State = "stop"
	}
	if v, err := strconv.ParseFloat(attrs["elapsed"], 64); err == nil {
		st.Elapsed = v
	}
	st.Duration = parseDuration(attrs)
	if v, err := strconv.Atoi(attrs["volume"]); err == nil {
		st.Volume = v
	}
	return st
}

// parseDuration reads "duration", falling back to the legacy integer "Time"
// of song attributes and the "elapsed:total" form of status "time".
func parseDuration(attrs mpd.Attrs) float64 {
	if v, err := strconv.ParseFloat(attrs["duration"], 64); err == nil {
		return v
	}
	if v, err := strconv.Atoi(attrs["Time"]); err == nil {
		return float64(v)
	}
	if _, total, ok := strings.Cut(attrs["time"], ":"); ok {
		if v, err := strconv.Atoi(total); err == nil {
			return float64(v)
		}
	}
	return 0
}

// diffStatus translates a status transition into media events for source.
func diffStatus(prev, next status, source string) []player.Event {
	var events []player.Event
	add := func(e player.Event) {
		e.Source = source
		events = append(events, e)
	}

	if next.Duration > 0 && next.Duration != prev.Duration {
		add(player.Event{Type: player.EventLoadedMetadata, Duration: next.Duration})
	}
	if next.State != "stop" && next.Elapsed != prev.Elapsed {
		add(player.Event{Type: player.EventTimeUpdate, Position: next.Elapsed})
	}

	if prev.State == next.State {
		return events
	}
	switch next.State {
	case "play":
		add(player.Event{Type: player.EventPlaying})
	case "pause":
		if prev.State == "play" {
			add(player.Event{Type: player.EventPaused})
		}
	case "stop":
		if prev.State != "play" {
			break
		}
		add(player.Event{Type: player.EventPaused})
		if prev.Duration > 0 && prev.Elapsed >= prev.Duration-endTolerance {
			add(player.Event{Type: player.EventTimeUpdate, Position: prev.Duration})
			add(player.Event{Type: player.EventEnded})
		}
	}
	return events
}

// Element plays catalog tracks on MPD. Each Load replaces the MPD queue with the
// single track, so the MPD queue never advances on its own.
type Element struct {
	player.Emitter

	client       *Client
	pollInterval time.Duration

	mu       sync.Mutex
	source   string
	duration float64
	last     status
	// loadGen changes at the start and end of every Load. A status read under
	// an older generation may describe the previous queue and is dropped.
	loadGen uint64
}

// NewElement creates an element on top of a connected client.
func NewElement(client *Client, pollInterval time.Duration) *Element {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Element{
		client:       client,
		pollInterval: pollInterval,
		last:         status{State: "stop", Volume: -1},
	}
}

// Run follows MPD player and mixer changes and polls the elapsed time until ctx
// is cancelled.
func (e *Element) Run(ctx context.Context) {
	changes, err := e.client.Watch("player", "mixer")
	if err != nil {
		log.Warn().Err(err).Msg("MPD watcher unavailable, polling only")
	}

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case subsystem, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			log.Debug().Str("subsystem", subsystem).Msg("MPD change")
			e.refresh()
		case <-ticker.C:
			e.mu.Lock()
			playing := e.last.State == "play"
			e.mu.Unlock()
			if playing {
				e.refresh()
			}
		}
	}
}

// refresh reads MPD status and emits the events for what changed.
func (e *Element) refresh() {
	e.mu.Lock()
	gen := e.loadGen
	e.mu.Unlock()

	attrs, err := e.client.Status()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read MPD status")
		return
	}
	e.apply(gen, parseStatus(attrs))
}

// apply diffs a status read under load generation gen against the last one.
func (e *Element) apply(gen uint64, next status) {
	e.mu.Lock()
	if gen != e.loadGen {
		e.mu.Unlock()
		log.Debug().Str("state", next.State).Msg("Dropping MPD status read before a load")
		return
	}
	if next.Duration == 0 {
		next.Duration = e.duration
	}
	events := diffStatus(e.last, next, e.source)
	e.last = next
	e.mu.Unlock()

	for _, ev := range events {
		e.Emit(ev)
	}
}

// Play starts or resumes playback of the loaded track.
func (e *Element) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	state := e.last.State
	source := e.source
	e.mu.Unlock()

	if source == "" {
		return errors.New("no track loaded")
	}

	var err error
	if state == "pause" {
		err = e.client.Pause(false)
	} else {
		err = e.client.Play(0)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", player.ErrPlaybackRejected, err)
	}
	e.refresh()
	return nil
}

// Pause pauses playback.
func (e *Element) Pause() error {
	if err := e.client.Pause(true); err != nil {
		return err
	}
	e.refresh()
	return nil
}

// Paused reports whether MPD is not playing.
func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last.State != "play"
}

// Position returns the elapsed seconds of the current track.
func (e *Element) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last.Elapsed
}

// SetPosition seeks the current track. MPD refuses to seek a stopped queue.
func (e *Element) SetPosition(seconds float64) error {
	if err := e.client.SeekCur(seconds); err != nil {
		return fmt.Errorf("seek to %.1fs: %w", seconds, err)
	}
	e.refresh()
	return nil
}

// Duration returns the track duration in seconds, 0 while unknown.
func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// SetVolume maps volume in [0,1] onto the MPD mixer.
func (e *Element) SetVolume(volume float64) error {
	return e.client.SetVolume(int(math.Round(volume * 100)))
}

// Source returns the bound track locator.
func (e *Element) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

// Load replaces the MPD queue with url. Locators are resolved relative to the
// MPD music directory.
func (e *Element) Load(url string) error {
	uri := strings.TrimPrefix(url, "/")
	if uri == "" {
		return errors.New("empty locator")
	}

	e.mu.Lock()
	e.loadGen++
	e.source = url
	e.duration = 0
	e.last = status{State: "stop", Volume: e.last.Volume}
	e.mu.Unlock()

	e.Emit(player.Event{Type: player.EventWaiting, Source: url})

	if err := e.client.Stop(); err != nil {
		return fmt.Errorf("stop before load: %w", err)
	}
	if err := e.client.Clear(); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	if err := e.client.Add(uri); err != nil {
		return fmt.Errorf("add %s: %w", uri, err)
	}

	var duration float64
	if songs, err := e.client.PlaylistInfo(); err == nil && len(songs) > 0 {
		duration = parseDuration(songs[0])
	}

	e.mu.Lock()
	e.loadGen++
	stale := e.source != url
	if !stale {
		e.duration = duration
		e.last.Duration = duration
	}
	e.mu.Unlock()
	if stale {
		return nil
	}

	log.Info().Str("uri", uri).Float64("duration", duration).Msg("MPD track loaded")
	if duration > 0 {
		e.Emit(player.Event{Type: player.EventLoadedMetadata, Duration: duration, Source: url})
	}
	e.Emit(player.Event{Type: player.EventCanPlay, Source: url})
	return nil
}
