// Package spectral judges whether a nominally lossless file really carries
// full-bandwidth content or shows the low-pass shelf of a lossy encoder.
package spectral

import (
	"context"
	"fmt"
	"math"

	"github.com/himanishpuri/TrueLossless/pkg/truelossless/audio"
)

// DefaultWindowSeconds is how much audio Analyze decodes.
const DefaultWindowSeconds = 30.0

// ErrDecodeFailure is re-exported so callers need only this package.
var ErrDecodeFailure = audio.ErrDecodeFailure

type AnalyzeConfig struct {
	WindowSeconds float64 // defaults to DefaultWindowSeconds
	TempDir       string  // scratch space for non-WAV decoding
}

// Analyze reads a window starting a third of the way into path and returns
// its verdict. Any decoding problem is reported as an error wrapping
// ErrDecodeFailure and must never be read as FAKE.
func Analyze(ctx context.Context, path string, cfg AnalyzeConfig) (*Verdict, error) {
	seg, err := ReadAnalysisWindow(ctx, path, cfg)
	if err != nil {
		return nil, err
	}
	v := AnalyzeSegment(seg)
	return &v, nil
}

// ReadAnalysisWindow decodes the window Analyze would look at.
func ReadAnalysisWindow(ctx context.Context, path string, cfg AnalyzeConfig) (*audio.Segment, error) {
	window := cfg.WindowSeconds
	if window <= 0 {
		window = DefaultWindowSeconds
	}

	meta, err := audio.ReadMetadata(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	start := meta.TotalFrames / 3
	frames := min(int64(float64(meta.SampleRate)*window), meta.TotalFrames-start)

	seg, err := audio.DecodeWindow(ctx, path, meta, start, frames, audio.DecodeConfig{TempDir: cfg.TempDir})
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return seg, nil
}

// AnalyzeSegment is the numerical core of Analyze. It holds no state and is
// safe to call from many goroutines at once.
func AnalyzeSegment(seg *audio.Segment) Verdict {
	nyquistHz := float64(seg.SampleRate) / 2
	nyquistKHz := nyquistHz / 1000

	full := Verdict{
		Classification: Authentic,
		CutoffKHz:      round2(nyquistKHz),
		NyquistKHz:     round2(nyquistKHz),
		SampleRate:     seg.SampleRate,
		BitDepth:       seg.BitDepth,
	}

	if RMS(seg.Samples) < silenceRMS {
		return full
	}

	psd := WelchPSD(seg.Samples, seg.SampleRate)
	cutoffHz, enough := detectCutoff(psd, nyquistHz)
	if !enough {
		return full
	}

	cutoffKHz := min(cutoffHz/1000, nyquistKHz)
	return Verdict{
		Classification: classify(cutoffKHz, nyquistKHz),
		CutoffKHz:      round2(cutoffKHz),
		NyquistKHz:     round2(nyquistKHz),
		SampleRate:     seg.SampleRate,
		BitDepth:       seg.BitDepth,
	}
}

// RMS is the root-mean-square level of samples; 0 for an empty slice.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
