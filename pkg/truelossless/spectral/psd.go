package spectral

import (
	"math"

	"github.com/mjibson/go-dsp/spectral"
	"github.com/mjibson/go-dsp/window"
)

const (
	// MaxSegmentSize caps the Welch segment length.
	MaxSegmentSize = 8192

	// dbFloor keeps log10 away from zero on digitally silent bins.
	dbFloor = 1e-30
)

// PSD is a one-sided power spectral density on a linear frequency axis.
type PSD struct {
	Freqs []float64 // Hz, ascending
	DB    []float64 // 10*log10(power + dbFloor)
}

// WelchPSD estimates the power spectrum with Hann-windowed segments of
// min(MaxSegmentSize, len(samples)) points and 50% overlap.
func WelchPSD(samples []float64, sampleRate int) PSD {
	nperseg := min(MaxSegmentSize, len(samples))
	nperseg -= nperseg % 2 // Pwelch wants an even NFFT
	if nperseg < 2 || sampleRate <= 0 {
		return PSD{}
	}

	// constant detrend
	var mean float64
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))
	centered := make([]float64, len(samples))
	for i, s := range samples {
		centered[i] = s - mean
	}

	pxx, freqs := spectral.Pwelch(centered, float64(sampleRate), &spectral.PwelchOptions{
		NFFT:     nperseg,
		Noverlap: nperseg / 2,
		Window:   window.Hann,
	})

	db := make([]float64, len(pxx))
	for i, p := range pxx {
		db[i] = 10 * math.Log10(p+dbFloor)
	}
	return PSD{Freqs: freqs, DB: db}
}

// MeanDB averages the dB values of bins with lo <= f <= hi. ok is false if
// the band holds no bins.
func (p PSD) MeanDB(lo, hi float64) (mean float64, ok bool) {
	var sum float64
	var n int
	for i, f := range p.Freqs {
		if f >= lo && f <= hi {
			sum += p.DB[i]
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
