package socketio

import (
	"sync"
	"time"
)

// Change classifies a store change for broadcasting.
type Change int

const (
	// ChangeState affects only the player state (time, volume, flags).
	ChangeState Change = iota
	// ChangePlaylist also affects the playlist markers (active or playing row).
	ChangePlaylist
)

// BroadcastDebouncer collapses rapid store changes into batched broadcasts.
// Any number of changes within the window results in at most one state
// broadcast and one playlist broadcast.
type BroadcastDebouncer struct {
	window           time.Duration
	stateCallback    func()
	playlistCallback func()

	mu              sync.Mutex
	pendingState    bool
	pendingPlaylist bool
	timer           *time.Timer
	stopped         bool
}

// NewBroadcastDebouncer creates a debouncer with the given window duration.
func NewBroadcastDebouncer(window time.Duration, stateCallback, playlistCallback func()) *BroadcastDebouncer {
	return &BroadcastDebouncer{
		window:           window,
		stateCallback:    stateCallback,
		playlistCallback: playlistCallback,
	}
}

// Trigger records a change. Callbacks run once the window elapses without
// further triggers.
func (d *BroadcastDebouncer) Trigger(change Change) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pendingState = true
	if change == ChangePlaylist {
		d.pendingPlaylist = true
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush fires callbacks for any pending flags and resets them.
func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	doState := d.pendingState
	doPlaylist := d.pendingPlaylist
	d.pendingState = false
	d.pendingPlaylist = false
	d.mu.Unlock()

	if doState && d.stateCallback != nil {
		d.stateCallback()
	}
	if doPlaylist && d.playlistCallback != nil {
		d.playlistCallback()
	}
}

// Stop prevents any further callbacks from firing.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pendingState = false
	d.pendingPlaylist = false
}
