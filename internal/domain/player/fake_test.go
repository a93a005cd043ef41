package player_test

import (
	"context"
	"sync"
	"testing"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/catalog"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/player"
)

// fakeMedia is an in-memory MediaElement that emits events the way a browser
// video element does: synchronously, and only after releasing its lock.
type fakeMedia struct {
	player.Emitter

	mu sync.Mutex

	paused    bool
	position  float64
	duration  float64
	volume    float64
	source    string
	durations map[string]float64

	loads      []string
	seeks      []float64
	volumes    []float64
	playCalls  int
	pauseCalls int

	playErr      error
	deferCanPlay bool
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{
		paused:    true,
		durations: make(map[string]float64),
	}
}

func (f *fakeMedia) emit(e player.Event) {
	f.Emit(e)
}

func (f *fakeMedia) Play(ctx context.Context) error {
	f.mu.Lock()
	f.playCalls++
	if f.playErr != nil {
		err := f.playErr
		f.mu.Unlock()
		return err
	}
	f.paused = false
	src := f.source
	f.mu.Unlock()

	f.emit(player.Event{Type: player.EventPlaying, Source: src})
	return nil
}

func (f *fakeMedia) Pause() error {
	f.mu.Lock()
	f.pauseCalls++
	f.paused = true
	src := f.source
	f.mu.Unlock()

	f.emit(player.Event{Type: player.EventPaused, Source: src})
	return nil
}

func (f *fakeMedia) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeMedia) Position() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

func (f *fakeMedia) SetPosition(seconds float64) error {
	f.mu.Lock()
	f.position = seconds
	f.seeks = append(f.seeks, seconds)
	src := f.source
	f.mu.Unlock()

	f.emit(player.Event{Type: player.EventTimeUpdate, Position: seconds, Source: src})
	return nil
}

func (f *fakeMedia) Duration() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

func (f *fakeMedia) SetVolume(volume float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = volume
	f.volumes = append(f.volumes, volume)
	return nil
}

func (f *fakeMedia) Source() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.source
}

func (f *fakeMedia) Load(url string) error {
	f.mu.Lock()
	f.source = url
	f.position = 0
	f.paused = true
	f.duration = f.durations[url]
	f.loads = append(f.loads, url)
	duration := f.duration
	deferCanPlay := f.deferCanPlay
	f.mu.Unlock()

	f.emit(player.Event{Type: player.EventLoadedMetadata, Duration: duration, Source: url})
	if !deferCanPlay {
		f.emit(player.Event{Type: player.EventCanPlay, Source: url})
	}
	return nil
}

func (f *fakeMedia) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

func (f *fakeMedia) plays() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playCalls
}

func (f *fakeMedia) lastVolume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

// fakeScreen adds fullscreen support to fakeMedia.
type fakeScreen struct {
	*fakeMedia
	fullscreen bool
	deny       bool
}

func (s *fakeScreen) IsFullscreen() bool {
	return s.fullscreen
}

func (s *fakeScreen) EnterFullscreen(ctx context.Context) error {
	if s.deny {
		return player.ErrFullscreenDenied
	}
	s.fullscreen = true
	return nil
}

func (s *fakeScreen) ExitFullscreen(ctx context.Context) error {
	s.fullscreen = false
	return nil
}

func syncDispatch(f func()) { f() }

func testCatalog(n int) *catalog.Catalog {
	urls := []string{"/one.mp4", "/two.mp4", "/three.mp4", "/four.mp4", "/five.mp4"}
	tracks := make([]catalog.Track, n)
	for i := 0; i < n; i++ {
		tracks[i] = catalog.Track{Name: urls[i][1:], URL: urls[i], Author: "test"}
	}
	c, err := catalog.New(tracks)
	if err != nil {
		panic(err)
	}
	return c
}

func newTestController(media player.MediaElement, n int) *player.Controller {
	return player.NewController(media, testCatalog(n), player.WithDispatcher(syncDispatch))
}

// sharedURLCatalog has two entries pointing at the same resource.
func sharedURLCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Track{
		{ID: "cut-a", Name: "Cut A", URL: "/shared.mp4"},
		{ID: "cut-b", Name: "Cut B", URL: "/shared.mp4"},
	})
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	return c
}
