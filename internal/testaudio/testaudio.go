// Package testaudio synthesizes signals and WAV fixtures for tests.
package testaudio

import (
	"math"
	"math/rand/v2"
	"os"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mjibson/go-dsp/fft"
)

// WhiteNoise returns n uniform samples in [-amp, amp], reproducible per seed.
func WhiteNoise(n int, amp float64, seed uint64) []float64 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float64, n)
	for i := range out {
		out[i] = (r.Float64()*2 - 1) * amp
	}
	return out
}

func Sine(n, sampleRate int, freqHz, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate))
	}
	return out
}

// LowPass removes everything above cutoffHz with an ideal FFT brick wall,
// the shape a lossy encoder leaves behind.
func LowPass(samples []float64, sampleRate int, cutoffHz float64) []float64 {
	n := len(samples)
	spec := fft.FFTReal(samples)
	for k := 0; k <= n/2; k++ {
		if float64(k)*float64(sampleRate)/float64(n) > cutoffHz {
			spec[k] = 0
			if k > 0 {
				spec[n-k] = 0
			}
		}
	}
	back := fft.IFFT(spec)
	out := make([]float64, n)
	for i, c := range back {
		out[i] = real(c)
	}
	return out
}

// WriteWAV writes samples to path as PCM. A single slice is mono; pass one
// slice per channel for multichannel output. Values are clipped to [-1, 1].
func WriteWAV(t testing.TB, path string, sampleRate, bitDepth int, channels ...[]float64) {
	t.Helper()

	if len(channels) == 0 {
		t.Fatal("WriteWAV needs at least one channel")
	}
	frames := len(channels[0])
	nch := len(channels)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	defer f.Close()

	peak := float64(int64(1)<<(bitDepth-1)) - 1
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	data := make([]int, frames*nch)
	for i := 0; i < frames; i++ {
		for c := 0; c < nch; c++ {
			v := math.Max(-1, math.Min(1, channels[c][i]))
			data[i*nch+c] = int(math.Round(v*peak)) + offset
		}
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, nch, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: nch, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("closing %s: %v", path, err)
	}
}
