package player

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/catalog"
)

// seekSentinel is the seek range upper bound used while the duration is unknown,
// so a slider never gets an empty [0,0] range.
const seekSentinel = 0.01

// PlaylistEntry is one row of the rendered playlist.
type PlaylistEntry struct {
	Index   int           `json:"index"`
	Track   catalog.Track `json:"track"`
	Active  bool          `json:"active"`
	Playing bool          `json:"playing"`
}

// View is everything a presentation surface needs to render the player.
type View struct {
	State           PlaybackState   `json:"state"`
	Track           catalog.Track   `json:"track"`
	CurrentTimeText string          `json:"currentTimeText"`
	DurationText    string          `json:"durationText"`
	ProgressPercent float64         `json:"progressPercent"`
	VolumePercent   int             `json:"volumePercent"`
	SeekMax         float64         `json:"seekMax"`
	Muted           bool            `json:"muted"`
	Playlist        []PlaylistEntry `json:"playlist"`
}

// BuildView renders st against the catalog.
func BuildView(st PlaybackState, cat *catalog.Catalog) View {
	track, _ := cat.At(st.CurrentTrackIndex)

	return View{
		State:           st,
		Track:           track,
		CurrentTimeText: FormatTime(st.CurrentTime),
		DurationText:    FormatTime(st.Duration),
		ProgressPercent: ProgressPercent(st.CurrentTime, st.Duration),
		VolumePercent:   VolumePercent(st.Volume),
		SeekMax:         SeekUpperBound(st.Duration),
		Muted:           st.Volume == 0,
		Playlist: lo.Map(cat.Tracks(), func(t catalog.Track, i int) PlaylistEntry {
			active := i == st.CurrentTrackIndex
			return PlaylistEntry{
				Index:   i,
				Track:   t,
				Active:  active,
				Playing: active && st.IsPlaying && !st.IsLoading,
			}
		}),
	}
}

// FormatTime renders seconds as MM:SS. Negative or non-numeric input renders as 00:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "00:00"
	}
	total := int64(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// ProgressPercent returns current/duration as a percentage in [0,100].
// It is 0 whenever the duration is unknown.
func ProgressPercent(current, duration float64) float64 {
	if !validSeconds(duration) || duration == 0 || !validSeconds(current) {
		return 0
	}
	return lo.Clamp(current/duration*100, 0, 100)
}

// VolumePercent returns the volume as a rounded percentage.
func VolumePercent(volume float64) int {
	return int(math.Round(clampVolume(volume) * 100))
}

// SeekUpperBound returns the maximum seek target for a duration.
func SeekUpperBound(duration float64) float64 {
	if !validSeconds(duration) || duration == 0 {
		return seekSentinel
	}
	return duration
}

// RendersSame reports whether a and b render the same view. Times compare at
// the one-second resolution of FormatTime.
func RendersSame(a, b PlaybackState) bool {
	a.CurrentTime, b.CurrentTime = math.Floor(a.CurrentTime), math.Floor(b.CurrentTime)
	a.Duration, b.Duration = math.Floor(a.Duration), math.Floor(b.Duration)
	return a == b
}
