// Package poster produces cached thumbnails of track poster images.
package poster

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	"image/jpeg"
	_ "image/png" // PNG decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/catalog"
)

// Size is the longest edge of a thumbnail in pixels.
type Size int

const (
	// SizeSmall is used for playlist rows.
	SizeSmall Size = 150
	// SizeMedium is used for the now-playing card.
	SizeMedium Size = 300
	// SizeLarge is used for the idle screen.
	SizeLarge Size = 500
)

var (
	// ErrRemote is returned for posters that are not local files.
	ErrRemote = errors.New("poster is a remote URL")
	// ErrNoPoster is returned for tracks without a poster.
	ErrNoPoster = errors.New("track has no poster")
)

// ParseSize maps "small", "medium" and "large" to a Size. Anything else is medium.
func ParseSize(s string) Size {
	switch strings.ToLower(s) {
	case "small":
		return SizeSmall
	case "large":
		return SizeLarge
	default:
		return SizeMedium
	}
}

// IsRemote reports whether poster points to an http(s) resource.
func IsRemote(poster string) bool {
	return strings.HasPrefix(poster, "http://") || strings.HasPrefix(poster, "https://")
}

// Generator creates poster thumbnails below cacheDir from images below mediaRoot.
type Generator struct {
	mediaRoot string
	cacheDir  string

	mu sync.Mutex // serializes generation so concurrent requests don't write the same file
}

// NewGenerator creates a generator.
func NewGenerator(mediaRoot, cacheDir string) *Generator {
	return &Generator{
		mediaRoot: mediaRoot,
		cacheDir:  cacheDir,
	}
}

// Thumbnail returns the path of the cached thumbnail of track's poster,
// generating it on first use.
func (g *Generator) Thumbnail(track catalog.Track, size Size) (string, error) {
	if track.Poster == "" {
		return "", ErrNoPoster
	}
	if IsRemote(track.Poster) {
		return "", ErrRemote
	}

	rel := filepath.Clean("/" + filepath.FromSlash(track.Poster))
	thumbDir := filepath.Join(g.cacheDir, "posters")
	thumbPath := filepath.Join(thumbDir, fmt.Sprintf("%s_%d.jpg", cacheKey(rel), size))

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := os.Stat(thumbPath); err == nil {
		return thumbPath, nil
	}

	if err := os.MkdirAll(thumbDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create poster cache directory: %w", err)
	}

	sourcePath := filepath.Join(g.mediaRoot, rel)
	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to open poster: %w", err)
	}
	defer src.Close()

	img, format, err := image.Decode(src)
	if err != nil {
		return "", fmt.Errorf("failed to decode poster: %w", err)
	}

	log.Debug().
		Str("source", sourcePath).
		Str("format", format).
		Int("size", int(size)).
		Msg("Generating poster thumbnail")

	thumb := resize(img, int(size))

	tmp := thumbPath + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: 85}); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, thumbPath); err != nil {
		return "", err
	}

	return thumbPath, nil
}

// cacheKey names the thumbnails of the poster at rel, so a changed poster gets
// fresh thumbnails whatever the track is called.
func cacheKey(rel string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(filepath.ToSlash(rel))).String()
}

// Warm generates every size for every track with a local poster. Failures are
// logged and skipped.
func (g *Generator) Warm(cat *catalog.Catalog) int {
	generated := 0
	for _, track := range cat.Tracks() {
		if track.Poster == "" || IsRemote(track.Poster) {
			continue
		}
		for _, size := range []Size{SizeSmall, SizeMedium, SizeLarge} {
			if _, err := g.Thumbnail(track, size); err != nil {
				log.Warn().
					Err(err).
					Str("track", track.Name).
					Int("size", int(size)).
					Msg("Failed to generate poster thumbnail")
				break
			}
			generated++
		}
	}
	return generated
}

// resize scales src to fit within maxSize while keeping its aspect ratio.
// Images already smaller than maxSize are not upscaled.
func resize(src image.Image, maxSize int) image.Image {
	bounds := src.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	if srcW <= maxSize && srcH <= maxSize {
		maxSize = max(srcW, srcH)
	}

	var newW, newH int
	if srcW > srcH {
		newW = maxSize
		newH = max(1, int(float64(srcH)*float64(maxSize)/float64(srcW)))
	} else {
		newH = maxSize
		newW = max(1, int(float64(srcW)*float64(maxSize)/float64(srcH)))
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
