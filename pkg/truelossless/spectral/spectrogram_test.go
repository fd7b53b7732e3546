package spectral

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/TrueLossless/internal/testaudio"
)

func TestRenderSpectrogram(t *testing.T) {
	out := filepath.Join(t.TempDir(), "spec.png")
	seg := segmentOf(testaudio.WhiteNoise(44100, 0.5, 31), 44100, 16)

	if err := RenderSpectrogram(seg, out); err != nil {
		t.Fatalf("RenderSpectrogram failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("Opening PNG: %v", err)
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	if cfg.Width != spectrogramWidth || cfg.Height != spectrogramHeight {
		t.Errorf("PNG is %dx%d, want %dx%d", cfg.Width, cfg.Height, spectrogramWidth, spectrogramHeight)
	}
}

func TestRenderSpectrogramEmpty(t *testing.T) {
	if err := RenderSpectrogram(nil, filepath.Join(t.TempDir(), "x.png")); err == nil {
		t.Error("Expected error for nil segment")
	}
}
