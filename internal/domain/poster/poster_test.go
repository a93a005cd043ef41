package poster_test

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/catalog"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/poster"
)

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, image.White)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
}

func decodeBounds(t *testing.T, path string) image.Rectangle {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("thumbnail not found: %v", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("failed to decode thumbnail: %v", err)
	}
	return img.Bounds()
}

func TestThumbnailLandscape(t *testing.T) {
	media := t.TempDir()
	writePNG(t, filepath.Join(media, "images", "poster.png"), 800, 600)

	gen := poster.NewGenerator(media, t.TempDir())
	track := catalog.Track{ID: "max", Poster: "/images/poster.png"}

	path, err := gen.Thumbnail(track, poster.SizeSmall)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}

	b := decodeBounds(t, path)
	if b.Dx() != 150 || b.Dy() != 112 {
		t.Errorf("expected 150x112, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestThumbnailPortrait(t *testing.T) {
	media := t.TempDir()
	writePNG(t, filepath.Join(media, "tall.png"), 400, 800)

	gen := poster.NewGenerator(media, t.TempDir())
	path, err := gen.Thumbnail(catalog.Track{ID: "tall", Poster: "tall.png"}, poster.SizeMedium)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}

	b := decodeBounds(t, path)
	if b.Dx() != 150 || b.Dy() != 300 {
		t.Errorf("expected 150x300, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestThumbnailDoesNotUpscale(t *testing.T) {
	media := t.TempDir()
	writePNG(t, filepath.Join(media, "tiny.png"), 40, 20)

	gen := poster.NewGenerator(media, t.TempDir())
	path, err := gen.Thumbnail(catalog.Track{ID: "tiny", Poster: "/tiny.png"}, poster.SizeLarge)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}

	b := decodeBounds(t, path)
	if b.Dx() != 40 || b.Dy() != 20 {
		t.Errorf("expected 40x20, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestThumbnailCached(t *testing.T) {
	media := t.TempDir()
	source := filepath.Join(media, "p.png")
	writePNG(t, source, 200, 200)

	gen := poster.NewGenerator(media, t.TempDir())
	track := catalog.Track{ID: "p", Poster: "/p.png"}

	first, err := gen.Thumbnail(track, poster.SizeSmall)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}

	// The cached file is served even after the source disappears.
	os.Remove(source)
	second, err := gen.Thumbnail(track, poster.SizeSmall)
	if err != nil {
		t.Fatalf("cached Thumbnail failed: %v", err)
	}
	if first != second {
		t.Errorf("expected same path, got %q and %q", first, second)
	}
}

func TestThumbnailFollowsPosterChange(t *testing.T) {
	media := t.TempDir()
	writePNG(t, filepath.Join(media, "old.png"), 200, 100)
	writePNG(t, filepath.Join(media, "new.png"), 100, 200)

	gen := poster.NewGenerator(media, t.TempDir())

	before, err := gen.Thumbnail(catalog.Track{ID: "same", Poster: "/old.png"}, poster.SizeSmall)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	after, err := gen.Thumbnail(catalog.Track{ID: "same", Poster: "/new.png"}, poster.SizeSmall)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}

	if before == after {
		t.Fatal("a changed poster must not reuse the old thumbnail")
	}
	if b := decodeBounds(t, after); b.Dx() != 75 || b.Dy() != 150 {
		t.Errorf("expected 75x150 from the new poster, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestThumbnailStaysInCacheDir(t *testing.T) {
	media := t.TempDir()
	writePNG(t, filepath.Join(media, "p.png"), 100, 100)

	cache := t.TempDir()
	gen := poster.NewGenerator(media, cache)

	path, err := gen.Thumbnail(catalog.Track{ID: "../../escape", Poster: "/p.png"}, poster.SizeSmall)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(cache, "posters") {
		t.Errorf("thumbnail written outside the cache: %s", path)
	}
}

func TestThumbnailErrors(t *testing.T) {
	gen := poster.NewGenerator(t.TempDir(), t.TempDir())

	if _, err := gen.Thumbnail(catalog.Track{ID: "a"}, poster.SizeSmall); !errors.Is(err, poster.ErrNoPoster) {
		t.Errorf("expected ErrNoPoster, got %v", err)
	}
	remote := catalog.Track{ID: "b", Poster: "https://example.com/b.jpg"}
	if _, err := gen.Thumbnail(remote, poster.SizeSmall); !errors.Is(err, poster.ErrRemote) {
		t.Errorf("expected ErrRemote, got %v", err)
	}
	if _, err := gen.Thumbnail(catalog.Track{ID: "c", Poster: "/missing.png"}, poster.SizeSmall); err == nil {
		t.Error("expected error for missing poster")
	}
}

func TestWarm(t *testing.T) {
	media := t.TempDir()
	writePNG(t, filepath.Join(media, "one.png"), 600, 600)

	cat, err := catalog.New([]catalog.Track{
		{Name: "One", URL: "/one.mp4", Poster: "/one.png"},
		{Name: "Two", URL: "/two.mp4", Poster: "https://example.com/two.jpg"},
		{Name: "Three", URL: "/three.mp4", Poster: "/missing.png"},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	gen := poster.NewGenerator(media, t.TempDir())
	if got := gen.Warm(cat); got != 3 {
		t.Errorf("expected 3 thumbnails, got %d", got)
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want poster.Size
	}{
		{"small", poster.SizeSmall},
		{"LARGE", poster.SizeLarge},
		{"medium", poster.SizeMedium},
		{"", poster.SizeMedium},
		{"huge", poster.SizeMedium},
	}
	for _, tt := range tests {
		if got := poster.ParseSize(tt.in); got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
