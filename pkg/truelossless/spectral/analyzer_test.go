package spectral

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/TrueLossless/internal/testaudio"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/audio"
)

const testFrames = 1 << 18

func segmentOf(samples []float64, sampleRate, bitDepth int) *audio.Segment {
	return &audio.Segment{
		Samples:     samples,
		SampleRate:  sampleRate,
		BitDepth:    bitDepth,
		TotalFrames: int64(len(samples)),
	}
}

func TestAnalyzeSegmentWhiteNoise(t *testing.T) {
	tests := []struct {
		sampleRate int
		nyquistKHz float64
	}{
		{44100, 22.05},
		{48000, 24},
		{96000, 48},
	}
	for _, tt := range tests {
		noise := testaudio.WhiteNoise(testFrames, 0.5, uint64(tt.sampleRate))
		v := AnalyzeSegment(segmentOf(noise, tt.sampleRate, 16))

		if v.Classification != Authentic {
			t.Errorf("%d Hz white noise: got %s (cutoff %.2f), want AUTHENTIC", tt.sampleRate, v.Classification, v.CutoffKHz)
		}
		if v.CutoffKHz != tt.nyquistKHz || v.NyquistKHz != tt.nyquistKHz {
			t.Errorf("%d Hz white noise: cutoff %.2f / nyquist %.2f, want %.2f", tt.sampleRate, v.CutoffKHz, v.NyquistKHz, tt.nyquistKHz)
		}
		if v.SampleRate != tt.sampleRate || v.BitDepth != 16 {
			t.Errorf("Verdict format %d/%d not carried through", v.SampleRate, v.BitDepth)
		}
	}
}

func TestAnalyzeSegmentLowPassed(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		cutoffHz   float64
		want       Classification
	}{
		{"128k mp3 shelf", 44100, 15000, Fake},
		{"192k mp3 shelf", 44100, 17500, Suspicious},
		{"320k mp3 shelf", 44100, 19500, Warning},
		{"CD upsampled to 96k", 96000, 22000, Warning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			noise := testaudio.WhiteNoise(testFrames, 0.5, 42)
			filtered := testaudio.LowPass(noise, tt.sampleRate, tt.cutoffHz)

			v := AnalyzeSegment(segmentOf(filtered, tt.sampleRate, 16))
			if v.Classification != tt.want {
				t.Errorf("got %s (cutoff %.2f kHz), want %s", v.Classification, v.CutoffKHz, tt.want)
			}
			wantKHz := tt.cutoffHz / 1000
			if v.CutoffKHz < wantKHz-0.1 || v.CutoffKHz > wantKHz+0.2 {
				t.Errorf("cutoff %.2f kHz, want about %.2f kHz", v.CutoffKHz, wantKHz)
			}
		})
	}
}

func TestAnalyzeSegmentSilence(t *testing.T) {
	v := AnalyzeSegment(segmentOf(make([]float64, testFrames), 44100, 24))
	if v.Classification != Authentic {
		t.Errorf("Silence classified %s, want AUTHENTIC", v.Classification)
	}
	if v.CutoffKHz != v.NyquistKHz {
		t.Errorf("Silence cutoff %.2f, want Nyquist %.2f", v.CutoffKHz, v.NyquistKHz)
	}
}

func TestAnalyzeSegmentNearSilence(t *testing.T) {
	// RMS of uniform noise at 0.0005 is about 0.0003, under the silence floor.
	quiet := testaudio.LowPass(testaudio.WhiteNoise(testFrames, 0.0005, 9), 44100, 12000)
	if RMS(quiet) >= silenceRMS {
		t.Fatalf("test signal too loud: RMS %f", RMS(quiet))
	}

	v := AnalyzeSegment(segmentOf(quiet, 44100, 16))
	if v.Classification != Authentic || v.CutoffKHz != 22.05 {
		t.Errorf("Near-silent window should be AUTHENTIC at Nyquist, got %s at %.2f", v.Classification, v.CutoffKHz)
	}
}

func TestAnalyzeSegmentTooShort(t *testing.T) {
	v := AnalyzeSegment(segmentOf(testaudio.WhiteNoise(20, 0.5, 5), 44100, 16))
	if v.Classification != Authentic {
		t.Errorf("Too-short window should be AUTHENTIC, got %s", v.Classification)
	}
}

func TestAnalyzeSegmentCutoffNeverExceedsNyquist(t *testing.T) {
	signals := map[string][]float64{
		"noise":    testaudio.WhiteNoise(testFrames, 0.9, 11),
		"sine 1k":  testaudio.Sine(testFrames, 44100, 1000, 0.5),
		"sine 20k": testaudio.Sine(testFrames, 44100, 20000, 0.5),
		"lowpass":  testaudio.LowPass(testaudio.WhiteNoise(testFrames, 0.5, 12), 44100, 10000),
	}
	for name, s := range signals {
		v := AnalyzeSegment(segmentOf(s, 44100, 16))
		if v.CutoffKHz > v.NyquistKHz {
			t.Errorf("%s: cutoff %.2f exceeds Nyquist %.2f", name, v.CutoffKHz, v.NyquistKHz)
		}
		if v.Classification.Rank() < 0 {
			t.Errorf("%s: unknown classification %q", name, v.Classification)
		}
	}
}

func TestAnalyzeSegmentDeterministic(t *testing.T) {
	s := testaudio.LowPass(testaudio.WhiteNoise(testFrames, 0.5, 77), 44100, 16000)
	a := AnalyzeSegment(segmentOf(s, 44100, 16))
	b := AnalyzeSegment(segmentOf(s, 44100, 16))
	if a != b {
		t.Errorf("Repeated analysis differs: %+v vs %+v", a, b)
	}
}

func TestRMS(t *testing.T) {
	if RMS(nil) != 0 {
		t.Error("RMS of empty slice should be 0")
	}
	if got := RMS([]float64{1, -1, 1, -1}); got != 1 {
		t.Errorf("RMS = %f, want 1", got)
	}
	if got := RMS(testaudio.Sine(44100, 44100, 100, 1)); math.Abs(got-1/math.Sqrt2) > 1e-3 {
		t.Errorf("RMS of unit sine = %f, want %f", got, 1/math.Sqrt2)
	}
}

func TestAnalyzeWAVFiles(t *testing.T) {
	dir := t.TempDir()

	authentic := filepath.Join(dir, "authentic.wav")
	testaudio.WriteWAV(t, authentic, 44100, 16, testaudio.WhiteNoise(testFrames*2, 0.5, 1))

	transcode := filepath.Join(dir, "transcode.wav")
	testaudio.WriteWAV(t, transcode, 44100, 16, testaudio.LowPass(testaudio.WhiteNoise(testFrames*2, 0.5, 2), 44100, 16000))

	cfg := AnalyzeConfig{WindowSeconds: 4, TempDir: dir}

	v, err := Analyze(context.Background(), authentic, cfg)
	if err != nil {
		t.Fatalf("Analyze(authentic) failed: %v", err)
	}
	if v.Classification != Authentic {
		t.Errorf("authentic.wav: got %s (cutoff %.2f)", v.Classification, v.CutoffKHz)
	}

	v, err = Analyze(context.Background(), transcode, cfg)
	if err != nil {
		t.Fatalf("Analyze(transcode) failed: %v", err)
	}
	if v.Classification != Fake {
		t.Errorf("transcode.wav: got %s (cutoff %.2f), want FAKE", v.Classification, v.CutoffKHz)
	}
}

func TestReadAnalysisWindowPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ten.wav")
	testaudio.WriteWAV(t, path, 8000, 16, testaudio.WhiteNoise(8000*10, 0.3, 4))

	seg, err := ReadAnalysisWindow(context.Background(), path, AnalyzeConfig{WindowSeconds: 30})
	if err != nil {
		t.Fatalf("ReadAnalysisWindow failed: %v", err)
	}
	if seg.StartFrame != 80000/3 {
		t.Errorf("StartFrame = %d, want %d", seg.StartFrame, 80000/3)
	}
	// The window is clipped to what remains after the start.
	if want := 80000 - 80000/3; len(seg.Samples) != want {
		t.Errorf("Got %d samples, want %d", len(seg.Samples), want)
	}
}

func TestAnalyzeDecodeFailure(t *testing.T) {
	dir := t.TempDir()

	_, err := Analyze(context.Background(), filepath.Join(dir, "missing.flac"), AnalyzeConfig{})
	if !errors.Is(err, ErrDecodeFailure) {
		t.Errorf("Missing file: expected ErrDecodeFailure, got %v", err)
	}

	junk := filepath.Join(dir, "junk.wav")
	if err := os.WriteFile(junk, []byte("not a riff file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := Analyze(context.Background(), junk, AnalyzeConfig{})
	if !errors.Is(err, ErrDecodeFailure) {
		t.Errorf("Corrupt file: expected ErrDecodeFailure, got %v", err)
	}
	if v != nil {
		t.Errorf("Corrupt file must not yield a verdict, got %+v", v)
	}
}
