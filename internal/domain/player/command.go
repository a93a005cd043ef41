package player

import (
	"errors"
	"fmt"
)

// Action names a user intent. The names double as Socket.IO event names and
// REST action path segments.
type Action string

const (
	ActionTogglePlayPause         Action = "togglePlayPause"
	ActionSeek                    Action = "seek"
	ActionSkip                    Action = "skip"
	ActionSetVolume               Action = "setVolume"
	ActionToggleMute              Action = "toggleMute"
	ActionSelectTrack             Action = "selectTrack"
	ActionSkipTrack               Action = "skipTrack"
	ActionNext                    Action = "next"
	ActionPrev                    Action = "prev"
	ActionRequestFullscreen       Action = "requestFullscreen"
	ActionSetVolumeControlVisible Action = "setVolumeControlVisible"
)

// Actions lists every action Execute accepts.
var Actions = []Action{
	ActionTogglePlayPause,
	ActionSeek,
	ActionSkip,
	ActionSetVolume,
	ActionToggleMute,
	ActionSelectTrack,
	ActionSkipTrack,
	ActionNext,
	ActionPrev,
	ActionRequestFullscreen,
	ActionSetVolumeControlVisible,
}

var (
	// ErrUnknownAction is returned by Execute for unrecognised actions.
	ErrUnknownAction = errors.New("unknown action")
	// ErrMissingArgument is returned when an action's argument is absent.
	ErrMissingArgument = errors.New("missing argument")
)

// Command is a decoded user intent with its optional argument.
type Command struct {
	Action    Action   `json:"action"`
	Value     *float64 `json:"value,omitempty"`
	Index     *int     `json:"index,omitempty"`
	Direction *int     `json:"direction,omitempty"`
	Visible   *bool    `json:"visible,omitempty"`
}

// Execute applies cmd to the controller.
func (c *Controller) Execute(cmd Command) error {
	switch cmd.Action {
	case ActionTogglePlayPause:
		c.TogglePlayPause()
	case ActionSeek, ActionSkip, ActionSetVolume:
		if cmd.Value == nil {
			return fmt.Errorf("%w: %s needs a value", ErrMissingArgument, cmd.Action)
		}
		switch cmd.Action {
		case ActionSeek:
			c.Seek(*cmd.Value)
		case ActionSkip:
			c.Skip(*cmd.Value)
		default:
			c.SetVolume(*cmd.Value)
		}
	case ActionToggleMute:
		c.ToggleMute()
	case ActionSelectTrack:
		if cmd.Index == nil {
			return fmt.Errorf("%w: %s needs an index", ErrMissingArgument, cmd.Action)
		}
		return c.SelectTrack(*cmd.Index)
	case ActionSkipTrack:
		if cmd.Direction == nil {
			return fmt.Errorf("%w: %s needs a direction", ErrMissingArgument, cmd.Action)
		}
		return c.SkipTrack(*cmd.Direction)
	case ActionNext:
		return c.Next()
	case ActionPrev:
		return c.Previous()
	case ActionRequestFullscreen:
		c.ToggleFullscreen()
	case ActionSetVolumeControlVisible:
		if cmd.Visible == nil {
			return fmt.Errorf("%w: %s needs a visibility flag", ErrMissingArgument, cmd.Action)
		}
		c.SetVolumeControlVisible(*cmd.Visible)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
	return nil
}
