package socketio

import (
	"errors"
	"testing"
	"time"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/catalog"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/player"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/infra/simulated"
)

func TestIsStateSame_SubSecondTimeChange_ReturnsTrue(t *testing.T) {
	s := &Server{}

	base := player.PlaybackState{IsPlaying: true, Volume: 0.5, CurrentTime: 12.1, Duration: 60.4}
	s.saveLastState(base)

	drifted := base
	drifted.CurrentTime = 12.9
	if !s.isStateSame(drifted) {
		t.Error("time changes within the same displayed second should not rebroadcast")
	}

	next := base
	next.CurrentTime = 13.0
	if s.isStateSame(next) {
		t.Error("a new displayed second should rebroadcast")
	}
}

func TestIsStateSame_VolumeChange_ReturnsFalse(t *testing.T) {
	s := &Server{}

	base := player.PlaybackState{Volume: 0.5}
	s.saveLastState(base)

	changed := base
	changed.Volume = 0.75
	if s.isStateSame(changed) {
		t.Error("isStateSame should return false when volume changed")
	}
}

func TestIsStateSame_NothingBroadcastYet(t *testing.T) {
	s := &Server{}
	if s.isStateSame(player.PlaybackState{}) {
		t.Error("the first broadcast must always go out")
	}
}

func TestClassify(t *testing.T) {
	base := player.PlaybackState{Volume: 0.5}

	tests := []struct {
		name   string
		modify func(*player.PlaybackState)
		want   Change
	}{
		{"time", func(st *player.PlaybackState) { st.CurrentTime = 3 }, ChangeState},
		{"volume", func(st *player.PlaybackState) { st.Volume = 0.1 }, ChangeState},
		{"track", func(st *player.PlaybackState) { st.CurrentTrackIndex = 1 }, ChangePlaylist},
		{"playing", func(st *player.PlaybackState) { st.IsPlaying = true }, ChangePlaylist},
		{"loading", func(st *player.PlaybackState) { st.IsLoading = true }, ChangePlaylist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base
			tt.modify(&next)
			if got := classify(base, next); got != tt.want {
				t.Errorf("classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArgumentParsing(t *testing.T) {
	if v, ok := numberArg([]any{12.5}); !ok || v != 12.5 {
		t.Errorf("bare number: got %v, %v", v, ok)
	}
	if v, ok := numberArg([]any{map[string]interface{}{"value": 0.3}}); !ok || v != 0.3 {
		t.Errorf("value object: got %v, %v", v, ok)
	}
	if _, ok := numberArg([]any{"12"}); ok {
		t.Error("string should not parse as a number")
	}
	if _, ok := numberArg(nil); ok {
		t.Error("missing argument should not parse")
	}

	if v, ok := intField([]any{map[string]interface{}{"index": 2.0}}, "index"); !ok || v != 2 {
		t.Errorf("index: got %v, %v", v, ok)
	}
	if _, ok := intField([]any{map[string]interface{}{"index": 1.5}}, "index"); ok {
		t.Error("fractional index should be rejected")
	}

	if v, ok := boolField([]any{map[string]interface{}{"value": true}}, "value"); !ok || !v {
		t.Errorf("bool field: got %v, %v", v, ok)
	}
	if v, ok := boolField([]any{false}, "value"); !ok || v {
		t.Errorf("bare bool: got %v, %v", v, ok)
	}
}

func newTestServer(t *testing.T) (*Server, *simulated.Element) {
	t.Helper()

	media := simulated.New(simulated.Config{DefaultDuration: time.Minute})
	c := player.NewController(media, catalog.Default(), player.WithDispatcher(func(f func()) { f() }))
	t.Cleanup(c.Close)

	s, err := NewServer(c, Options{})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, media
}

func TestDispatchDrivesController(t *testing.T) {
	s, media := newTestServer(t)
	store := s.controller.Store()

	if err := s.dispatch("togglePlayPause"); err != nil {
		t.Fatalf("togglePlayPause: %v", err)
	}
	if !store.IsPlaying() {
		t.Error("expected playing after togglePlayPause")
	}

	if err := s.dispatch("setVolume", map[string]interface{}{"value": 0.8}); err != nil {
		t.Fatalf("setVolume: %v", err)
	}
	if media.Volume() != 0.8 {
		t.Errorf("expected element volume 0.8, got %v", media.Volume())
	}

	if err := s.dispatch("seek", 30.0); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if media.Position() != 30 {
		t.Errorf("expected position 30, got %v", media.Position())
	}

	if err := s.dispatch("selectTrack", map[string]interface{}{"index": 2.0}); err != nil {
		t.Fatalf("selectTrack: %v", err)
	}
	if store.CurrentTrackIndex() != 2 {
		t.Errorf("expected track 2, got %d", store.CurrentTrackIndex())
	}

	if err := s.dispatch("next"); err != nil {
		t.Fatalf("next: %v", err)
	}
	if store.CurrentTrackIndex() != 0 {
		t.Errorf("expected wrap to track 0, got %d", store.CurrentTrackIndex())
	}

	if err := s.dispatch("setVolumeControlVisible", map[string]interface{}{"value": true}); err != nil {
		t.Fatalf("setVolumeControlVisible: %v", err)
	}
	if !store.Snapshot().IsVolumeControlVisible {
		t.Error("expected volume control visible")
	}

	if err := s.dispatch("requestFullscreen"); err != nil {
		t.Fatalf("requestFullscreen: %v", err)
	}
	if !store.Snapshot().IsFullscreen {
		t.Error("expected fullscreen")
	}
}

func TestDispatchErrors(t *testing.T) {
	s, _ := newTestServer(t)

	if err := s.dispatch("selectTrack", map[string]interface{}{"index": 99.0}); !errors.Is(err, player.ErrTrackOutOfRange) {
		t.Errorf("expected ErrTrackOutOfRange, got %v", err)
	}
	if err := s.dispatch("skipTrack", map[string]interface{}{"direction": 2.0}); !errors.Is(err, player.ErrInvalidDirection) {
		t.Errorf("expected ErrInvalidDirection, got %v", err)
	}
	if err := s.dispatch("seek", "soon"); !errors.Is(err, player.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
	if err := s.dispatch("selectTrack"); !errors.Is(err, player.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
	if err := s.dispatch("explode"); !errors.Is(err, player.ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
}

func TestEveryCommandEventIsDispatched(t *testing.T) {
	s, _ := newTestServer(t)

	args := map[string][]any{
		"seek":                    {1.0},
		"skip":                    {10.0},
		"setVolume":               {0.4},
		"selectTrack":             {map[string]interface{}{"index": 1.0}},
		"skipTrack":               {map[string]interface{}{"direction": -1.0}},
		"setVolumeControlVisible": {true},
	}
	for _, action := range player.Actions {
		event := string(action)
		if err := s.dispatch(event, args[event]...); err != nil {
			t.Errorf("%s: unexpected error %v", event, err)
		}
	}
}
