package spectral

import (
	"errors"
	"image"
	"image/draw"

	"github.com/eligwz/spectrogram"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/audio"
)

const (
	spectrogramWidth  = 2048
	spectrogramHeight = 512
)

// RenderSpectrogram draws seg as a PNG at outPath so the cutoff shelf can be
// checked by eye.
func RenderSpectrogram(seg *audio.Segment, outPath string) error {
	if seg == nil || len(seg.Samples) == 0 {
		return errors.New("no samples to render")
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, spectrogramWidth, spectrogramHeight))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, magnitude, linear scale
	spectrogram.Drawfft(
		img,
		seg.Samples,
		uint32(seg.SampleRate),
		uint32(spectrogramHeight),
		false,
		false,
		true,
		false,
	)

	return spectrogram.SavePng(img, outPath)
}
