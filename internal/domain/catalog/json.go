package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadJSON reads a catalog from a JSON file holding an array of tracks.
func LoadJSON(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var tracks []Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}

	return New(tracks)
}
