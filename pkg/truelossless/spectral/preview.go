package spectral

import (
	"context"
	"fmt"
	"os"

	"github.com/himanishpuri/TrueLossless/pkg/truelossless/audio"
)

const (
	DefaultPreviewSeconds = 30.0
	// previewStartRatio skips intros.
	previewStartRatio = 0.2
)

// PreviewClip is a temporary file the caller must Close once delivered.
type PreviewClip struct {
	Path            string
	StartSeconds    float64
	DurationSeconds float64
	SampleRate      int
	BitDepth        int
}

// Close deletes the clip from disk. It is safe to call more than once.
func (c *PreviewClip) Close() error {
	if c == nil || c.Path == "" {
		return nil
	}
	err := os.Remove(c.Path)
	if os.IsNotExist(err) {
		err = nil
	}
	c.Path = ""
	return err
}

type PreviewConfig struct {
	DurationSeconds float64 // defaults to DefaultPreviewSeconds
	OutDir          string  // where the clip is written; os.TempDir() if empty
}

// previewWindow returns the first frame and frame count of the clip. The clip
// starts 20% in; when that leaves less than the requested duration the start
// is pulled back so the clip runs to the end of the file.
func previewWindow(totalFrames int64, sampleRate int, seconds float64) (start, frames int64) {
	want := int64(seconds * float64(sampleRate))
	start = int64(float64(totalFrames) * previewStartRatio)
	if totalFrames-start < want {
		start = max(0, totalFrames-want)
	}
	frames = min(want, totalFrames-start)
	return start, frames
}

// ExtractPreview cuts a short clip out of path for size-limited delivery.
func ExtractPreview(ctx context.Context, path string, cfg PreviewConfig) (*PreviewClip, error) {
	seconds := cfg.DurationSeconds
	if seconds <= 0 {
		seconds = DefaultPreviewSeconds
	}

	meta, err := audio.ReadMetadata(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if meta.TotalFrames <= 0 {
		return nil, fmt.Errorf("%w: %s has no audio frames", ErrDecodeFailure, path)
	}

	start, frames := previewWindow(meta.TotalFrames, meta.SampleRate, seconds)

	outPath, err := audio.WriteClip(ctx, path, meta, start, frames, cfg.OutDir)
	if err != nil {
		return nil, fmt.Errorf("cutting preview of %s: %w", path, err)
	}

	sr := float64(meta.SampleRate)
	return &PreviewClip{
		Path:            outPath,
		StartSeconds:    float64(start) / sr,
		DurationSeconds: float64(frames) / sr,
		SampleRate:      meta.SampleRate,
		BitDepth:        meta.BitDepth,
	}, nil
}
