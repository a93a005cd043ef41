package player

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/catalog"
)

// SkipSeconds is the step used by the ±10s skip controls.
const SkipSeconds = 10

// Controller binds a Store to a MediaElement and navigates the track catalog.
// Its methods are safe to call from multiple goroutines.
type Controller struct {
	media    MediaElement
	catalog  *catalog.Catalog
	store    *Store
	dispatch func(func())

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	boundSource string
	generation  uint64
	pendingPlay uint64 // switch generation waiting for canplay, 0 when none

	unsubscribe func()
}

// Option configures a Controller.
type Option func(*Controller)

// WithDispatcher sets how asynchronous play requests are run.
// The default runs each request on its own goroutine.
func WithDispatcher(dispatch func(func())) Option {
	return func(c *Controller) {
		c.dispatch = dispatch
	}
}

// WithStore makes the controller write to an existing store.
func WithStore(store *Store) Option {
	return func(c *Controller) {
		c.store = store
	}
}

// NewController creates a controller, subscribes it to the element's events,
// pushes the initial volume and binds the first track.
func NewController(media MediaElement, cat *catalog.Catalog, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		media:    media,
		catalog:  cat,
		store:    NewStore(),
		dispatch: func(f func()) { go f() },
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.unsubscribe = media.Subscribe(c.HandleEvent)

	st := c.store.Snapshot()
	if err := media.SetVolume(st.Volume); err != nil {
		log.Warn().Err(err).Msg("Failed to push initial volume")
	}

	if track, ok := cat.At(st.CurrentTrackIndex); ok {
		if _, err := c.bindSource(track.URL); err != nil {
			log.Error().Err(err).Str("url", track.URL).Msg("Failed to bind initial track")
		}
	}

	return c
}

// Close detaches the controller from its media element and cancels
// outstanding requests.
func (c *Controller) Close() {
	c.cancel()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// Store returns the controller's state store.
func (c *Controller) Store() *Store {
	return c.store
}

// Catalog returns the track catalog.
func (c *Controller) Catalog() *catalog.Catalog {
	return c.catalog
}

// View returns the presentation view of the current state.
func (c *Controller) View() View {
	return BuildView(c.store.Snapshot(), c.catalog)
}

// TogglePlayPause requests play when the element is paused and pauses it otherwise.
// A pending play-after-switch counts as playing, so toggling cancels it.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	pending := c.pendingPlay
	c.pendingPlay = 0
	c.mu.Unlock()

	if pending != 0 {
		log.Info().Uint64("generation", pending).Msg("Pause (cancelled pending play)")
		return
	}

	if c.media.Paused() {
		log.Info().Msg("Play")
		c.requestPlay()
		return
	}

	log.Info().Msg("Pause")
	if err := c.media.Pause(); err != nil {
		log.Warn().Err(err).Msg("Pause failed")
	}
}

// requestPlay issues an asynchronous play request. A rejection is logged and
// leaves the store not playing; it is never retried.
func (c *Controller) requestPlay() {
	c.dispatch(func() {
		if err := c.media.Play(c.ctx); err != nil {
			log.Warn().Err(err).Msg("Play request failed")
			c.store.SetPlaying(false)
		}
	})
}

// Seek moves to target seconds. The store is updated immediately; the element's
// next time update confirms the position.
func (c *Controller) Seek(target float64) {
	if math.IsNaN(target) || math.IsInf(target, 0) {
		log.Debug().Msg("Ignoring non-numeric seek")
		return
	}

	upper := SeekUpperBound(c.store.Snapshot().Duration)
	target = lo.Clamp(target, 0, upper)

	log.Info().Float64("position", target).Msg("Seek")
	c.store.SetCurrentTime(target)
	if err := c.media.SetPosition(target); err != nil {
		log.Warn().Err(err).Float64("position", target).Msg("Seek failed")
	}
}

// Skip moves the playback position by delta seconds, clamped to the resource.
func (c *Controller) Skip(delta float64) {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		log.Debug().Msg("Ignoring non-numeric skip")
		return
	}

	pos := c.media.Position()
	if !validSeconds(pos) {
		pos = 0
	}
	target := math.Max(pos+delta, 0)
	if d := c.media.Duration(); validSeconds(d) && d > 0 {
		target = math.Min(target, d)
	}

	log.Info().Float64("delta", delta).Float64("position", target).Msg("Skip")
	if err := c.media.SetPosition(target); err != nil {
		log.Warn().Err(err).Float64("position", target).Msg("Skip failed")
	}
}

// SetVolume sets the volume in [0,1] and pushes it to the element.
func (c *Controller) SetVolume(volume float64) {
	if math.IsNaN(volume) {
		log.Debug().Msg("Ignoring non-numeric volume")
		return
	}

	applied := c.store.SetVolume(volume)
	log.Info().Float64("volume", applied).Msg("SetVolume")
	if err := c.media.SetVolume(applied); err != nil {
		log.Warn().Err(err).Msg("SetVolume failed")
	}
}

// ToggleMute mutes or restores the volume and pushes exactly the stored value.
func (c *Controller) ToggleMute() {
	applied := c.store.ToggleMute()
	log.Info().Float64("volume", applied).Msg("ToggleMute")
	if err := c.media.SetVolume(applied); err != nil {
		log.Warn().Err(err).Msg("ToggleMute failed")
	}
}

// SetVolumeControlVisible shows or hides the volume slider.
func (c *Controller) SetVolumeControlVisible(visible bool) {
	c.store.SetVolumeControlVisible(visible)
}

// ToggleFullscreen enters or leaves fullscreen. Unsupported or denied requests
// are logged and leave the state unchanged.
func (c *Controller) ToggleFullscreen() {
	fs, ok := c.media.(Fullscreener)
	if !ok {
		log.Debug().Msg("Fullscreen not supported by media element")
		return
	}

	var err error
	if fs.IsFullscreen() {
		log.Info().Msg("ExitFullscreen")
		err = fs.ExitFullscreen(c.ctx)
	} else {
		log.Info().Msg("EnterFullscreen")
		err = fs.EnterFullscreen(c.ctx)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Fullscreen request failed")
		return
	}

	c.store.SetFullscreen(fs.IsFullscreen())
}

// HandleEvent applies a media element event to the store.
// Events that belong to a previously bound resource are dropped.
func (c *Controller) HandleEvent(e Event) {
	c.mu.Lock()
	bound := c.boundSource
	c.mu.Unlock()

	if e.Source != "" && e.Source != bound {
		log.Debug().Str("event", e.Type.String()).Str("source", e.Source).Msg("Dropping stale media event")
		return
	}

	switch e.Type {
	case EventLoadedMetadata:
		if !c.store.SetDuration(e.Duration) {
			log.Debug().Float64("duration", e.Duration).Msg("Ignoring invalid duration")
		}
	case EventTimeUpdate:
		c.store.SetCurrentTime(e.Position)
	case EventPlaying:
		c.store.MarkStarted()
	case EventPaused:
		c.store.SetPlaying(false)
	case EventEnded:
		c.store.SetPlaying(false)
		c.onTrackEnded()
	case EventWaiting:
		c.store.SetLoading(true)
	case EventCanPlay:
		c.store.SetLoading(false)
		c.mu.Lock()
		gen := c.generation
		c.mu.Unlock()
		if c.takePending(gen) {
			log.Debug().Uint64("generation", gen).Msg("Resuming playback after track switch")
			c.requestPlay()
		}
	default:
		log.Debug().Int("event", int(e.Type)).Msg("Unknown media event")
	}
}

// bindSource loads url into the element unless it is already bound.
// It reports whether a reload happened.
func (c *Controller) bindSource(url string) (bool, error) {
	if c.media.Source() == url {
		c.mu.Lock()
		c.boundSource = url
		c.mu.Unlock()
		return false, nil
	}

	c.mu.Lock()
	c.boundSource = url
	c.mu.Unlock()

	c.store.ResetPosition()
	if err := c.media.Load(url); err != nil {
		return true, err
	}
	return true, nil
}

// takePending clears and reports the pending play if it belongs to gen.
func (c *Controller) takePending(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen == 0 || c.pendingPlay != gen {
		return false
	}
	c.pendingPlay = 0
	return true
}
