package ranking

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/audio"
)

// ReferenceFromFile builds a reference track from a local file's tags and
// its probed duration. Missing artist or title fall back to an
// "Artist - Title" file name.
func ReferenceFromFile(ctx context.Context, path string) (ReferenceTrack, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReferenceTrack{}, err
	}
	defer f.Close()

	var ref ReferenceTrack
	if m, err := tag.ReadFrom(f); err == nil {
		ref.Artist = strings.TrimSpace(m.Artist())
		ref.Title = strings.TrimSpace(m.Title())
		ref.Album = strings.TrimSpace(m.Album())
		if m.Year() > 0 {
			ref.Year = strconv.Itoa(m.Year())
		}
	}

	if ref.Artist == "" || ref.Title == "" {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if artist, title, ok := strings.Cut(stem, " - "); ok {
			if ref.Artist == "" {
				ref.Artist = strings.TrimSpace(artist)
			}
			if ref.Title == "" {
				ref.Title = strings.TrimSpace(title)
			}
		} else if ref.Title == "" {
			ref.Title = stem
		}
	}

	meta, err := audio.ReadMetadata(ctx, path)
	if err != nil {
		return ReferenceTrack{}, fmt.Errorf("probing duration: %w", err)
	}
	ref.DurationSecs = int(math.Floor(meta.DurationSec))

	return ref, nil
}
