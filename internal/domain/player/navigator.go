package player

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/catalog"
)

// WrapIndex returns the index reached by moving direction steps from current
// in a playlist of n tracks, wrapping around at both ends.
func WrapIndex(current, direction, n int) int {
	if n <= 0 {
		return 0
	}
	return ((current+direction)%n + n) % n
}

// SelectTrack makes index the active track. Re-selecting the active track
// toggles play/pause instead of reloading it. Otherwise the new track is loaded
// and playback resumes on it if it was running.
func (c *Controller) SelectTrack(index int) error {
	track, ok := c.catalog.At(index)
	if !ok {
		return fmt.Errorf("%w: %d (catalog has %d tracks)", ErrTrackOutOfRange, index, c.catalog.Len())
	}

	if index == c.store.CurrentTrackIndex() {
		c.TogglePlayPause()
		return nil
	}

	c.mu.Lock()
	resume := c.pendingPlay != 0
	c.mu.Unlock()
	resume = resume || c.store.IsPlaying()

	c.switchTo(index, track, resume)
	return nil
}

// SkipTrack moves one track forward (+1) or back (-1), wrapping around.
func (c *Controller) SkipTrack(direction int) error {
	if direction != 1 && direction != -1 {
		return fmt.Errorf("%w: got %d", ErrInvalidDirection, direction)
	}
	next := WrapIndex(c.store.CurrentTrackIndex(), direction, c.catalog.Len())
	return c.SelectTrack(next)
}

// Next moves to the following track.
func (c *Controller) Next() error {
	return c.SkipTrack(1)
}

// Previous moves to the preceding track.
func (c *Controller) Previous() error {
	return c.SkipTrack(-1)
}

// onTrackEnded advances the playlist and keeps playing. A single-track
// playlist rewinds and replays the same resource.
func (c *Controller) onTrackEnded() {
	current := c.store.CurrentTrackIndex()
	next := WrapIndex(current, 1, c.catalog.Len())

	if next == current {
		log.Info().Int("index", current).Msg("Track ended, replaying")
		c.store.SetCurrentTime(0)
		if err := c.media.SetPosition(0); err != nil {
			log.Warn().Err(err).Msg("Rewind failed")
		}
		c.requestPlay()
		return
	}

	track, _ := c.catalog.At(next)
	log.Info().Int("from", current).Int("to", next).Msg("Track ended, advancing")
	c.switchTo(next, track, true)
}

// switchTo performs the cross-track transition. When resume is set the play
// request waits for the new resource's canplay event; a later switch replaces
// the pending request so a stale one never fires.
func (c *Controller) switchTo(index int, track catalog.Track, resume bool) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	if resume {
		c.pendingPlay = gen
	} else {
		c.pendingPlay = 0
	}
	c.mu.Unlock()

	log.Info().
		Int("index", index).
		Str("track", track.Name).
		Bool("resume", resume).
		Uint64("generation", gen).
		Msg("SelectTrack")

	c.store.BeginTrackSwitch(index)

	reloaded, err := c.bindSource(track.URL)
	if err != nil {
		log.Error().Err(err).Str("url", track.URL).Msg("Failed to load track")
		c.takePending(gen)
		c.store.SetLoading(false)
		return
	}

	if !reloaded {
		// No canplay will follow, the element already holds this resource.
		c.store.SetLoading(false)
		if c.takePending(gen) {
			c.requestPlay()
		}
		return
	}

	if !resume {
		c.store.SetLoading(false)
	}
}
