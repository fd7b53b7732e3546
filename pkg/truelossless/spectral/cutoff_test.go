package spectral

import (
	"math"
	"testing"
)

// syntheticPSD builds a PSD on the bin grid Welch produces for nfft points.
func syntheticPSD(sampleRate, nfft int, level func(f float64) float64) PSD {
	bins := nfft/2 + 1
	p := PSD{Freqs: make([]float64, bins), DB: make([]float64, bins)}
	for i := range p.Freqs {
		f := float64(i) * float64(sampleRate) / float64(nfft)
		p.Freqs[i] = f
		p.DB[i] = level(f)
	}
	return p
}

func firstBinAtOrAbove(p PSD, hz float64) float64 {
	for _, f := range p.Freqs {
		if f >= hz {
			return f
		}
	}
	return math.NaN()
}

func TestDetectCutoffShelf(t *testing.T) {
	p := syntheticPSD(44100, 8192, func(f float64) float64 {
		if f < 16000 {
			return -20
		}
		return -90
	})

	got, enough := detectCutoff(p, 22050)
	if !enough {
		t.Fatal("Expected enough high-band resolution")
	}
	if want := firstBinAtOrAbove(p, 16000); got != want {
		t.Errorf("cutoff = %.2f Hz, want %.2f Hz", got, want)
	}
}

func TestDetectCutoffFlatSpectrum(t *testing.T) {
	p := syntheticPSD(44100, 8192, func(float64) float64 { return -40 })

	got, enough := detectCutoff(p, 22050)
	if !enough {
		t.Fatal("Expected enough high-band resolution")
	}
	if got != 22050 {
		t.Errorf("cutoff = %.2f, want Nyquist", got)
	}
}

func TestDetectCutoffRunLength(t *testing.T) {
	base := syntheticPSD(44100, 8192, func(float64) float64 { return -20 })
	start := 0
	for i, f := range base.Freqs {
		if f >= 17000 {
			start = i
			break
		}
	}

	tests := []struct {
		name   string
		run    int
		wantHz float64
	}{
		{"single dip", 1, 22050},
		{"three bins is two pairs", 3, 22050},
		{"four bins is three pairs", 4, base.Freqs[start]},
		{"long run", 200, base.Freqs[start]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PSD{Freqs: base.Freqs, DB: append([]float64(nil), base.DB...)}
			for i := start; i < start+tt.run; i++ {
				p.DB[i] = -80
			}
			got, _ := detectCutoff(p, 22050)
			if got != tt.wantHz {
				t.Errorf("cutoff = %.2f, want %.2f", got, tt.wantHz)
			}
		})
	}
}

func TestDetectCutoffScatteredDips(t *testing.T) {
	p := syntheticPSD(44100, 8192, func(float64) float64 { return -20 })
	for i := range p.DB {
		if p.Freqs[i] >= 14000 && i%2 == 0 {
			p.DB[i] = -90
		}
	}

	if got, _ := detectCutoff(p, 22050); got != 22050 {
		t.Errorf("Alternating dips should not form a cutoff, got %.2f", got)
	}
}

func TestDetectCutoffCoarseResolution(t *testing.T) {
	// 32-point grid: 14 kHz..22.05 kHz holds only 6 bins
	p := syntheticPSD(44100, 32, func(f float64) float64 {
		if f > 15000 {
			return -120
		}
		return -10
	})

	got, enough := detectCutoff(p, 22050)
	if enough {
		t.Error("Expected too few high-band bins to judge")
	}
	if got != 22050 {
		t.Errorf("cutoff = %.2f, want Nyquist", got)
	}
}

func TestDetectCutoffFallbackReference(t *testing.T) {
	// No bins inside 2-8 kHz, so the fixed -60 dB reference applies.
	mk := func(high float64) PSD {
		p := PSD{}
		for f := 10000.0; f <= 22050; f += 10 {
			p.Freqs = append(p.Freqs, f)
			if f >= 18000 {
				p.DB = append(p.DB, high)
			} else {
				p.DB = append(p.DB, -60)
			}
		}
		return p
	}

	if got, _ := detectCutoff(mk(-100), 22050); got != 18000 {
		t.Errorf("cutoff = %.2f, want 18000", got)
	}
	if got, _ := detectCutoff(mk(-80), 22050); got != 22050 {
		t.Errorf("A 20 dB drop should not count, got %.2f", got)
	}
}

func TestMeanDB(t *testing.T) {
	p := PSD{Freqs: []float64{0, 1000, 2000, 3000}, DB: []float64{-10, -20, -30, -40}}

	mean, ok := p.MeanDB(1000, 2000)
	if !ok || mean != -25 {
		t.Errorf("MeanDB(1000, 2000) = %v, %v; want -25, true", mean, ok)
	}
	if _, ok := p.MeanDB(5000, 6000); ok {
		t.Error("Expected ok=false for an empty band")
	}
}

func TestWelchPSDGrid(t *testing.T) {
	samples := make([]float64, 20000)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 1000 * float64(i) / 44100)
	}

	p := WelchPSD(samples, 44100)
	if len(p.Freqs) != MaxSegmentSize/2+1 {
		t.Fatalf("Expected %d bins, got %d", MaxSegmentSize/2+1, len(p.Freqs))
	}
	if p.Freqs[len(p.Freqs)-1] != 22050 {
		t.Errorf("Last bin = %.2f, want 22050", p.Freqs[len(p.Freqs)-1])
	}

	peak := 0
	for i := range p.DB {
		if p.DB[i] > p.DB[peak] {
			peak = i
		}
	}
	if math.Abs(p.Freqs[peak]-1000) > 2*44100.0/MaxSegmentSize {
		t.Errorf("Peak at %.1f Hz, want about 1000 Hz", p.Freqs[peak])
	}
}

func TestWelchPSDShortInput(t *testing.T) {
	p := WelchPSD(make([]float64, 101), 44100)
	if len(p.Freqs) != 51 {
		t.Errorf("Expected 100-point segment (51 bins), got %d bins", len(p.Freqs))
	}
	if p := WelchPSD(nil, 44100); len(p.Freqs) != 0 {
		t.Error("Expected empty PSD for empty input")
	}
}
