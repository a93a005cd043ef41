package simulated

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/catalog"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/player"
)

type recorder struct {
	mu     sync.Mutex
	events []player.Event
}

func (r *recorder) record(e player.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) types() []player.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]player.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func newInstant(d time.Duration) *Element {
	return New(Config{DefaultDuration: d})
}

func TestLoadEmitsMetadataAndCanPlay(t *testing.T) {
	e := newInstant(30 * time.Second)
	rec := &recorder{}
	e.Subscribe(rec.record)

	if err := e.Load("/a.mp4"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []player.EventType{player.EventWaiting, player.EventLoadedMetadata, player.EventCanPlay}
	got := rec.types()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if e.Duration() != 30 {
		t.Errorf("expected duration 30, got %v", e.Duration())
	}
	if e.Source() != "/a.mp4" {
		t.Errorf("expected source /a.mp4, got %q", e.Source())
	}
}

func TestLoadEmptyLocator(t *testing.T) {
	e := newInstant(time.Second)
	if err := e.Load(""); err == nil {
		t.Error("expected error for empty locator")
	}
}

func TestDurationsOverride(t *testing.T) {
	e := New(Config{
		DefaultDuration: time.Minute,
		Durations:       map[string]time.Duration{"/short.mp4": 5 * time.Second},
	})
	e.Load("/short.mp4")
	if e.Duration() != 5 {
		t.Errorf("expected 5s override, got %v", e.Duration())
	}
	e.Load("/other.mp4")
	if e.Duration() != 60 {
		t.Errorf("expected default 60s, got %v", e.Duration())
	}
}

func TestPlayWithoutSource(t *testing.T) {
	e := newInstant(time.Second)
	if err := e.Play(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}
}

func TestPlayRejected(t *testing.T) {
	e := New(Config{DefaultDuration: time.Second, RejectPlay: true})
	e.Load("/a.mp4")
	err := e.Play(context.Background())
	if !errors.Is(err, player.ErrPlaybackRejected) {
		t.Errorf("expected ErrPlaybackRejected, got %v", err)
	}
	if !e.Paused() {
		t.Error("rejected play must leave the element paused")
	}
}

func TestAdvanceEmitsTimeUpdateAndEnded(t *testing.T) {
	e := newInstant(2 * time.Second)
	e.Load("/a.mp4")
	rec := &recorder{}
	e.Subscribe(rec.record)

	e.Play(context.Background())
	e.Advance(time.Second)
	if e.Position() != 1 {
		t.Errorf("expected position 1, got %v", e.Position())
	}

	rec.reset()
	e.Advance(5 * time.Second)

	want := []player.EventType{player.EventTimeUpdate, player.EventPaused, player.EventEnded}
	got := rec.types()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if e.Position() != 2 {
		t.Errorf("position should clamp to duration, got %v", e.Position())
	}
	if !e.Paused() {
		t.Error("element should be paused after ending")
	}
}

func TestAdvanceWhilePausedIsNoop(t *testing.T) {
	e := newInstant(10 * time.Second)
	e.Load("/a.mp4")
	e.Advance(time.Second)
	if e.Position() != 0 {
		t.Errorf("paused element must not advance, got %v", e.Position())
	}
}

func TestPlayAfterEndRestarts(t *testing.T) {
	e := newInstant(time.Second)
	e.Load("/a.mp4")
	e.Play(context.Background())
	e.Advance(2 * time.Second)

	e.Play(context.Background())
	if e.Position() != 0 {
		t.Errorf("play after end should restart, got %v", e.Position())
	}
}

func TestSetPositionClamps(t *testing.T) {
	e := newInstant(10 * time.Second)
	if err := e.SetPosition(1); err == nil {
		t.Error("expected error before load")
	}
	e.Load("/a.mp4")

	tests := []struct {
		in, want float64
	}{
		{5, 5},
		{-3, 0},
		{99, 10},
	}
	for _, tt := range tests {
		e.SetPosition(tt.in)
		if got := e.Position(); got != tt.want {
			t.Errorf("SetPosition(%v): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetVolumeRange(t *testing.T) {
	e := newInstant(time.Second)
	if err := e.SetVolume(0.3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Volume() != 0.3 {
		t.Errorf("expected 0.3, got %v", e.Volume())
	}
	if err := e.SetVolume(1.5); err == nil {
		t.Error("expected error for out-of-range volume")
	}
}

func TestBindLatencySupersededLoad(t *testing.T) {
	e := New(Config{DefaultDuration: time.Second, BindLatency: 20 * time.Millisecond})
	rec := &recorder{}
	e.Subscribe(rec.record)

	e.Load("/a.mp4")
	e.Load("/b.mp4")
	time.Sleep(80 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	canplay := 0
	for _, ev := range rec.events {
		if ev.Type == player.EventCanPlay {
			canplay++
			if ev.Source != "/b.mp4" {
				t.Errorf("stale canplay for %q", ev.Source)
			}
		}
	}
	if canplay != 1 {
		t.Errorf("expected exactly one canplay, got %d", canplay)
	}
}

func TestFullscreen(t *testing.T) {
	e := newInstant(time.Second)
	ctx := context.Background()

	if err := e.EnterFullscreen(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.IsFullscreen() {
		t.Error("expected fullscreen")
	}
	e.ExitFullscreen(ctx)
	if e.IsFullscreen() {
		t.Error("expected windowed")
	}

	denied := New(Config{DenyFullscreen: true})
	if err := denied.EnterFullscreen(ctx); !errors.Is(err, player.ErrFullscreenDenied) {
		t.Errorf("expected ErrFullscreenDenied, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	e := New(Config{DefaultDuration: time.Minute, TickInterval: 5 * time.Millisecond})
	e.Load("/a.mp4")
	e.Play(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	time.Sleep(40 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if e.Position() <= 0 {
		t.Error("expected the clock to advance while running")
	}
}

// The controller drives the simulated element end to end: the first track
// ends and playback continues on the second.
func TestControllerAdvancesOnEnded(t *testing.T) {
	cat, err := catalog.New([]catalog.Track{
		{Name: "One", URL: "/one.mp4"},
		{Name: "Two", URL: "/two.mp4"},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	e := newInstant(3 * time.Second)
	c := player.NewController(e, cat, player.WithDispatcher(func(f func()) { f() }))
	defer c.Close()

	c.TogglePlayPause()
	if !c.Store().IsPlaying() {
		t.Fatal("expected playing after toggle")
	}

	e.Advance(4 * time.Second)

	st := c.Store().Snapshot()
	if st.CurrentTrackIndex != 1 {
		t.Errorf("expected track 1 after ended, got %d", st.CurrentTrackIndex)
	}
	if e.Source() != "/two.mp4" {
		t.Errorf("expected /two.mp4 bound, got %q", e.Source())
	}
	if !st.IsPlaying || st.IsLoading {
		t.Errorf("expected playing and not loading, got %+v", st)
	}
}
