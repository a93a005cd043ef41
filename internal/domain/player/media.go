package player

import (
	"context"
	"errors"
)

// EventType identifies a media element notification.
type EventType int

const (
	// EventLoadedMetadata fires once the duration of the bound resource is known.
	EventLoadedMetadata EventType = iota
	// EventTimeUpdate fires when the playback position changes.
	EventTimeUpdate
	// EventPlaying fires when playback has started.
	EventPlaying
	// EventPaused fires when playback has been paused.
	EventPaused
	// EventEnded fires when the resource played to its end.
	EventEnded
	// EventWaiting fires while buffering or stalled.
	EventWaiting
	// EventCanPlay fires when enough data is available to (re)start playback.
	EventCanPlay
)

var eventNames = map[EventType]string{
	EventLoadedMetadata: "loadedmetadata",
	EventTimeUpdate:     "timeupdate",
	EventPlaying:        "playing",
	EventPaused:         "pause",
	EventEnded:          "ended",
	EventWaiting:        "waiting",
	EventCanPlay:        "canplay",
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return "unknown"
}

// Event is a notification emitted by a MediaElement.
type Event struct {
	Type     EventType
	Position float64 // seconds, for EventTimeUpdate
	Duration float64 // seconds, for EventLoadedMetadata
	Source   string  // locator the event belongs to; empty means "current"
}

// MediaElement is the host playback capability the controller drives.
// Implementations must be safe for concurrent use and may emit events
// synchronously from inside any of their methods.
type MediaElement interface {
	// Play requests playback. It may be rejected by the host.
	Play(ctx context.Context) error
	Pause() error
	Paused() bool

	Position() float64
	SetPosition(seconds float64) error
	// Duration returns the resource duration, or 0 while unknown.
	Duration() float64

	SetVolume(volume float64) error

	// Source returns the currently bound resource locator.
	Source() string
	// Load binds a new resource locator and reloads it.
	Load(url string) error

	// Subscribe registers fn for element events and returns an unsubscribe function.
	Subscribe(fn func(Event)) func()
}

// Fullscreener is implemented by media elements whose presentation surface can
// be switched to fullscreen.
type Fullscreener interface {
	IsFullscreen() bool
	EnterFullscreen(ctx context.Context) error
	ExitFullscreen(ctx context.Context) error
}

var (
	// ErrTrackOutOfRange is returned when selecting an index outside the catalog.
	ErrTrackOutOfRange = errors.New("track index out of range")

	// ErrInvalidDirection is returned when skipping tracks by anything but +1 or -1.
	ErrInvalidDirection = errors.New("track direction must be +1 or -1")

	// ErrPlaybackRejected is returned by elements that refuse to start playback,
	// for example under an autoplay policy.
	ErrPlaybackRejected = errors.New("playback request rejected")

	// ErrFullscreenDenied is returned by elements that refuse a fullscreen request.
	ErrFullscreenDenied = errors.New("fullscreen request denied")
)
