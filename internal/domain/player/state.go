// Package player provides the playback controller: the state store, the binding
// to a media element, and playlist navigation.
package player

import (
	"math"
	"sync"

	"github.com/samber/lo"
)

// DefaultVolume is the volume a fresh store starts with, and the level restored
// by unmute when no audible level was ever recorded.
const DefaultVolume = 0.5

// PlaybackState is a snapshot of the UI-observable player state.
type PlaybackState struct {
	IsPlaying              bool    `json:"isPlaying"`
	Volume                 float64 `json:"volume"`
	LastVolume             float64 `json:"lastVolume"`
	CurrentTime            float64 `json:"currentTime"`
	Duration               float64 `json:"duration"`
	CurrentTrackIndex      int     `json:"currentTrackIndex"`
	IsLoading              bool    `json:"isLoading"`
	IsVolumeControlVisible bool    `json:"isVolumeControlVisible"`
	IsFullscreen           bool    `json:"isFullscreen"`
}

// Store holds the authoritative playback state.
// It is safe for concurrent access. All writes go through named transitions,
// and subscribers are notified after every transition that changed the state.
type Store struct {
	mu    sync.RWMutex
	state PlaybackState

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(PlaybackState)
}

// NewStore creates a store with default values.
func NewStore() *Store {
	return &Store{
		state: PlaybackState{
			Volume:     DefaultVolume,
			LastVolume: DefaultVolume,
		},
		subs: make(map[int]func(PlaybackState)),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() PlaybackState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn to receive the new state after each change.
// fn runs on the goroutine that made the change and must not block.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(PlaybackState)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// update applies fn under the write lock and notifies subscribers if anything changed.
func (s *Store) update(fn func(st *PlaybackState)) PlaybackState {
	s.mu.Lock()
	before := s.state
	fn(&s.state)
	after := s.state
	s.mu.Unlock()

	if after != before {
		s.notify(after)
	}
	return after
}

func (s *Store) notify(st PlaybackState) {
	s.subMu.Lock()
	subs := make([]func(PlaybackState), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

// IsPlaying reports whether playback is confirmed as running.
func (s *Store) IsPlaying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsPlaying
}

// CurrentTrackIndex returns the active catalog index.
func (s *Store) CurrentTrackIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentTrackIndex
}

// SetPlaying sets the playing flag.
func (s *Store) SetPlaying(playing bool) {
	s.update(func(st *PlaybackState) {
		st.IsPlaying = playing
	})
}

// MarkStarted records that playback started: playing, no longer loading.
func (s *Store) MarkStarted() {
	s.update(func(st *PlaybackState) {
		st.IsPlaying = true
		st.IsLoading = false
	})
}

// SetLoading sets the loading flag.
func (s *Store) SetLoading(loading bool) {
	s.update(func(st *PlaybackState) {
		st.IsLoading = loading
	})
}

// SetCurrentTime sets the position in seconds. Invalid values are ignored and
// the last valid value is kept. It reports whether the value was applied.
func (s *Store) SetCurrentTime(seconds float64) bool {
	if !validSeconds(seconds) {
		return false
	}
	s.update(func(st *PlaybackState) {
		st.CurrentTime = seconds
	})
	return true
}

// SetDuration sets the track duration in seconds. Invalid values are ignored.
func (s *Store) SetDuration(seconds float64) bool {
	if !validSeconds(seconds) {
		return false
	}
	s.update(func(st *PlaybackState) {
		st.Duration = seconds
	})
	return true
}

// SetVolume sets the volume, clamped to [0,1], and returns the applied value.
// Non-zero levels are also remembered as the level to restore on unmute.
func (s *Store) SetVolume(volume float64) float64 {
	volume = clampVolume(volume)
	st := s.update(func(st *PlaybackState) {
		st.Volume = volume
		if volume > 0 {
			st.LastVolume = volume
		}
	})
	return st.Volume
}

// ToggleMute mutes an audible volume or restores the remembered level
// (DefaultVolume when none was remembered). It returns the new volume.
func (s *Store) ToggleMute() float64 {
	st := s.update(func(st *PlaybackState) {
		if st.Volume > 0 {
			st.LastVolume = st.Volume
			st.Volume = 0
			return
		}
		restored := st.LastVolume
		if restored <= 0 {
			restored = DefaultVolume
		}
		st.Volume = restored
	})
	return st.Volume
}

// BeginTrackSwitch moves to a new track index and enters the loading state.
func (s *Store) BeginTrackSwitch(index int) {
	s.update(func(st *PlaybackState) {
		st.IsLoading = true
		st.CurrentTrackIndex = index
		st.IsPlaying = false
	})
}

// ResetPosition clears position and duration once a new resource is bound.
func (s *Store) ResetPosition() {
	s.update(func(st *PlaybackState) {
		st.CurrentTime = 0
		st.Duration = 0
	})
}

// SetVolumeControlVisible sets whether the volume slider is shown.
func (s *Store) SetVolumeControlVisible(visible bool) {
	s.update(func(st *PlaybackState) {
		st.IsVolumeControlVisible = visible
	})
}

// SetFullscreen records the presentation surface's fullscreen state.
func (s *Store) SetFullscreen(fullscreen bool) {
	s.update(func(st *PlaybackState) {
		st.IsFullscreen = fullscreen
	})
}

// ToJSON returns the state as a map suitable for JSON serialization.
func (s *Store) ToJSON() map[string]interface{} {
	st := s.Snapshot()
	return map[string]interface{}{
		"isPlaying":              st.IsPlaying,
		"volume":                 st.Volume,
		"lastVolume":             st.LastVolume,
		"currentTime":            st.CurrentTime,
		"duration":               st.Duration,
		"currentTrackIndex":      st.CurrentTrackIndex,
		"isLoading":              st.IsLoading,
		"isVolumeControlVisible": st.IsVolumeControlVisible,
		"isFullscreen":           st.IsFullscreen,
	}
}

func validSeconds(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return lo.Clamp(v, 0, 1)
}
