//go:build !((linux && cgo) || windows || darwin)

package localaudio

import (
	"context"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/player"
)

// Available reports whether this build can play audio.
// Audio output needs cgo for the native sound libraries.
const Available = false

// Element is a placeholder for builds without audio output.
type Element struct {
	player.Emitter
}

// New always fails in builds without audio output.
func New(cfg Config) (*Element, error) {
	return nil, ErrUnavailable
}

func (e *Element) Run(ctx context.Context)           {}
func (e *Element) Load(url string) error             { return ErrUnavailable }
func (e *Element) Play(ctx context.Context) error    { return ErrUnavailable }
func (e *Element) Pause() error                      { return ErrUnavailable }
func (e *Element) Paused() bool                      { return true }
func (e *Element) Position() float64                 { return 0 }
func (e *Element) SetPosition(seconds float64) error { return ErrUnavailable }
func (e *Element) Duration() float64                 { return 0 }
func (e *Element) SetVolume(volume float64) error    { return ErrUnavailable }
func (e *Element) Source() string                    { return "" }
func (e *Element) Close() error                      { return nil }
