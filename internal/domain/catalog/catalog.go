// Package catalog provides the immutable, ordered track catalog the player navigates.
package catalog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrEmpty is returned when a catalog source contains no tracks.
var ErrEmpty = errors.New("catalog has no tracks")

// trackNamespace seeds the name-based UUIDs derived from track URLs.
var trackNamespace = uuid.MustParse("5b0c4a52-7f3e-4c1d-9a58-2f7d8e6b9c10")

// Track is one playable item.
type Track struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Poster string `json:"poster"`
	Author string `json:"author"`
}

// Catalog is an ordered, read-only sequence of tracks.
// It is safe for concurrent access because it is never mutated after New.
type Catalog struct {
	tracks []Track
}

// New creates a catalog from the given tracks. Tracks without an ID get a stable
// ID derived from their URL so the same URL always maps to the same ID.
func New(tracks []Track) (*Catalog, error) {
	if len(tracks) == 0 {
		return nil, ErrEmpty
	}

	owned := make([]Track, len(tracks))
	for i, t := range tracks {
		if t.URL == "" {
			return nil, fmt.Errorf("track %d (%q) has no url", i, t.Name)
		}
		if t.ID == "" {
			t.ID = TrackID(t.URL)
		}
		owned[i] = t
	}

	return &Catalog{tracks: owned}, nil
}

// TrackID returns the stable ID for a track URL.
func TrackID(url string) string {
	return uuid.NewSHA1(trackNamespace, []byte(url)).String()
}

// Len returns the number of tracks.
func (c *Catalog) Len() int {
	return len(c.tracks)
}

// At returns the track at index i. The second result is false when i is out of range.
func (c *Catalog) At(i int) (Track, bool) {
	if i < 0 || i >= len(c.tracks) {
		return Track{}, false
	}
	return c.tracks[i], true
}

// IndexOf returns the index of the track with the given ID, or -1.
func (c *Catalog) IndexOf(id string) int {
	for i, t := range c.tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Tracks returns a copy of all tracks in order.
func (c *Catalog) Tracks() []Track {
	out := make([]Track, len(c.tracks))
	copy(out, c.tracks)
	return out
}

// Default returns the built-in demo catalog.
func Default() *Catalog {
	c, _ := New([]Track{
		{Name: "Max", URL: "/max.mp4", Poster: "/images/poster.jpg", Author: "Stellar"},
		{Name: "Big Buck Bunny", URL: "/videos/big-buck-bunny.mp4", Poster: "/images/big-buck-bunny.jpg", Author: "Blender Foundation"},
		{Name: "Sintel", URL: "/videos/sintel.mp4", Poster: "/images/sintel.jpg", Author: "Blender Foundation"},
	})
	return c
}
