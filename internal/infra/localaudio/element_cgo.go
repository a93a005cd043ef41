//go:build (linux && cgo) || windows || darwin

package localaudio

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/player"
)

// Available reports whether this build can play audio.
const Available = true

const outputRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(outputRate, outputRate.N(time.Second/10))
	})
	return speakerErr
}

// Element renders tracks on the local speaker.
type Element struct {
	player.Emitter

	cfg Config

	mu         sync.Mutex
	source     string
	streamer   beep.StreamSeekCloser
	format     beep.Format
	ctrl       *beep.Ctrl
	volume     *effects.Volume
	level      float64
	playbackID uint64 // bumped per queued stream so stale end callbacks are dropped
	ended      bool
}

// New opens the speaker and returns an element.
func New(cfg Config) (*Element, error) {
	if err := initSpeaker(); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	return &Element{cfg: cfg, level: 1}, nil
}

// Run emits time updates while playing until ctx is cancelled.
func (e *Element) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.Paused() {
				continue
			}
			e.Emit(player.Event{Type: player.EventTimeUpdate, Position: e.Position(), Source: e.Source()})
		}
	}
}

// Load decodes url from the media root and queues it paused.
func (e *Element) Load(url string) error {
	path, err := resolvePath(e.cfg.MediaRoot, url)
	if err != nil {
		return err
	}
	kind, err := format(path)
	if err != nil {
		return err
	}

	e.Emit(player.Event{Type: player.EventWaiting, Source: url})

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	var (
		streamer beep.StreamSeekCloser
		fmtInfo  beep.Format
	)
	switch kind {
	case "mp3":
		streamer, fmtInfo, err = mp3.Decode(f)
	case "wav":
		streamer, fmtInfo, err = wav.Decode(f)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("decode %s: %w", path, err)
	}

	e.mu.Lock()
	e.closeLocked()
	e.source = url
	e.streamer = streamer
	e.format = fmtInfo
	e.ended = false
	e.queueLocked()
	duration := fmtInfo.SampleRate.D(streamer.Len()).Seconds()
	e.mu.Unlock()

	log.Info().Str("path", path).Float64("duration", duration).Msg("Local track loaded")
	e.Emit(player.Event{Type: player.EventLoadedMetadata, Duration: duration, Source: url})
	e.Emit(player.Event{Type: player.EventCanPlay, Source: url})
	return nil
}

// queueLocked hands the current stream to the speaker, paused.
func (e *Element) queueLocked() {
	e.playbackID++
	id := e.playbackID

	level, silent := gain(e.level)
	resampled := beep.Resample(4, e.format.SampleRate, outputRate, e.streamer)
	e.ctrl = &beep.Ctrl{Streamer: resampled, Paused: true}
	e.volume = &effects.Volume{Streamer: e.ctrl, Base: 2, Volume: level, Silent: silent}

	speaker.Play(beep.Seq(e.volume, beep.Callback(func() {
		// The callback runs on the speaker goroutine, which holds the speaker lock.
		go e.finished(id)
	})))
}

// closeLocked drops the current stream from the speaker.
func (e *Element) closeLocked() {
	if e.ctrl != nil {
		speaker.Lock()
		e.ctrl.Paused = true
		e.ctrl.Streamer = nil
		speaker.Unlock()
	}
	if e.streamer != nil {
		e.streamer.Close()
	}
	e.playbackID++
	e.streamer = nil
	e.ctrl = nil
	e.volume = nil
}

func (e *Element) finished(id uint64) {
	e.mu.Lock()
	if id != e.playbackID {
		e.mu.Unlock()
		return
	}
	e.ended = true
	src := e.source
	pos := e.format.SampleRate.D(e.streamer.Len()).Seconds()
	e.mu.Unlock()

	e.Emit(player.Event{Type: player.EventTimeUpdate, Position: pos, Source: src})
	e.Emit(player.Event{Type: player.EventPaused, Source: src})
	e.Emit(player.Event{Type: player.EventEnded, Source: src})
}

// Play resumes playback. Playing an ended track restarts it.
func (e *Element) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.streamer == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: nothing loaded", player.ErrPlaybackRejected)
	}
	if e.ended {
		speaker.Lock()
		err := e.streamer.Seek(0)
		speaker.Unlock()
		if err != nil {
			e.mu.Unlock()
			return fmt.Errorf("rewind: %w", err)
		}
		e.ended = false
		e.queueLocked()
	}
	speaker.Lock()
	e.ctrl.Paused = false
	speaker.Unlock()
	src := e.source
	e.mu.Unlock()

	e.Emit(player.Event{Type: player.EventPlaying, Source: src})
	return nil
}

// Pause pauses playback.
func (e *Element) Pause() error {
	e.mu.Lock()
	if e.ctrl == nil || e.ended {
		e.mu.Unlock()
		return nil
	}
	speaker.Lock()
	e.ctrl.Paused = true
	speaker.Unlock()
	src := e.source
	e.mu.Unlock()

	e.Emit(player.Event{Type: player.EventPaused, Source: src})
	return nil
}

// Paused reports whether the speaker is not rendering the track.
func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil || e.ended {
		return true
	}
	speaker.Lock()
	defer speaker.Unlock()
	return e.ctrl.Paused
}

// Position returns the playback position in seconds.
func (e *Element) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := e.streamer.Position()
	speaker.Unlock()
	return e.format.SampleRate.D(pos).Seconds()
}

// SetPosition seeks to seconds.
func (e *Element) SetPosition(seconds float64) error {
	e.mu.Lock()
	if e.streamer == nil {
		e.mu.Unlock()
		return fmt.Errorf("nothing loaded")
	}
	n, position := seekTarget(seconds, e.format.SampleRate, e.streamer.Len())
	speaker.Lock()
	err := e.streamer.Seek(n)
	speaker.Unlock()
	src := e.source
	e.mu.Unlock()

	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	e.Emit(player.Event{Type: player.EventTimeUpdate, Position: position, Source: src})
	return nil
}

// Duration returns the loaded track's duration in seconds.
func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return 0
	}
	return e.format.SampleRate.D(e.streamer.Len()).Seconds()
}

// SetVolume sets the output volume in [0,1].
func (e *Element) SetVolume(volume float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.level = volume
	if e.volume == nil {
		return nil
	}
	level, silent := gain(volume)
	speaker.Lock()
	e.volume.Volume = level
	e.volume.Silent = silent
	speaker.Unlock()
	return nil
}

// Source returns the bound locator.
func (e *Element) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

// Close releases the current stream.
func (e *Element) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeLocked()
	return nil
}
