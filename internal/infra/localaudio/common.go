// Package localaudio plays catalog tracks from a local media directory through
// the system speaker. Only audio is rendered; there is no video surface.
package localaudio

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
)

// ErrUnavailable is returned when the build has no audio output support.
var ErrUnavailable = errors.New("local audio output not available in this build")

// ErrUnsupportedFormat is returned for locators the decoder cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported media format")

// Config configures the local element.
type Config struct {
	// MediaRoot is the directory catalog locators are resolved against.
	MediaRoot string
	// TickInterval is how often time updates are emitted while playing.
	TickInterval time.Duration
}

func (c Config) tick() time.Duration {
	if c.TickInterval <= 0 {
		return 250 * time.Millisecond
	}
	return c.TickInterval
}

// resolvePath maps a catalog locator onto a file below root.
func resolvePath(root, locator string) (string, error) {
	if root == "" {
		return "", errors.New("media root not configured")
	}
	if locator == "" {
		return "", errors.New("empty locator")
	}

	rel := filepath.Clean("/" + filepath.FromSlash(locator))
	path := filepath.Join(root, rel)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if absPath != absRoot && !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("locator %q escapes media root", locator)
	}
	return absPath, nil
}

// format returns the decoder name for path.
func format(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return "mp3", nil
	case ".wav":
		return "wav", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// gain converts a linear volume in [0,1] into a base-2 exponent for the
// volume effect. Zero volume is reported as silent.
func gain(volume float64) (level float64, silent bool) {
	if volume <= 0 || math.IsNaN(volume) {
		return 0, true
	}
	if volume > 1 {
		volume = 1
	}
	return math.Log2(volume), false
}

// seekTarget converts seconds into a sample index within [0, length] and
// returns it with the position in seconds that index stands for.
func seekTarget(seconds float64, rate beep.SampleRate, length int) (int, float64) {
	n := rate.N(time.Duration(seconds * float64(time.Second)))
	n = min(max(n, 0), length)
	return n, rate.D(n).Seconds()
}
