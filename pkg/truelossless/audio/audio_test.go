package audio

import (
	"context"
	"errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/TrueLossless/internal/testaudio"
)

func requireFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH", bin)
		}
	}
}

func TestReadMetadataWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	samples := testaudio.Sine(44100*2, 44100, 440, 0.5)
	testaudio.WriteWAV(t, path, 44100, 16, samples, samples)

	meta, err := ReadMetadata(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadMetadata failed: %v", err)
	}

	if meta.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", meta.SampleRate)
	}
	if meta.Channels != 2 {
		t.Errorf("Channels = %d, want 2", meta.Channels)
	}
	if meta.BitDepth != 16 {
		t.Errorf("BitDepth = %d, want 16", meta.BitDepth)
	}
	if meta.TotalFrames != 88200 {
		t.Errorf("TotalFrames = %d, want 88200", meta.TotalFrames)
	}
	if math.Abs(meta.DurationSec-2.0) > 0.001 {
		t.Errorf("DurationSec = %f, want 2.0", meta.DurationSec)
	}
}

func TestReadMetadataWAVFrameCount(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		bitDepth   int
		channels   int
		frames     int
	}{
		{"8-bit mono", 8000, 8, 1, 80000},
		{"16-bit mono", 8000, 16, 1, 80000},
		{"16-bit stereo", 44100, 16, 2, 44100},
		{"24-bit stereo", 48000, 24, 2, 48000},
		{"32-bit mono", 22050, 32, 1, 22050},
		{"odd length", 8000, 16, 2, 12345},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tone.wav")
			chans := make([][]float64, tt.channels)
			for c := range chans {
				chans[c] = testaudio.Sine(tt.frames, tt.sampleRate, 440, 0.5)
			}
			testaudio.WriteWAV(t, path, tt.sampleRate, tt.bitDepth, chans...)

			meta, err := ReadMetadata(context.Background(), path)
			if err != nil {
				t.Fatalf("ReadMetadata failed: %v", err)
			}
			if meta.TotalFrames != int64(tt.frames) {
				t.Errorf("TotalFrames = %d, want %d", meta.TotalFrames, tt.frames)
			}
			want := float64(tt.frames) / float64(tt.sampleRate)
			if math.Abs(meta.DurationSec-want) > 1e-9 {
				t.Errorf("DurationSec = %f, want %f", meta.DurationSec, want)
			}
		})
	}
}

func TestReadMetadataMissingFile(t *testing.T) {
	_, err := ReadMetadata(context.Background(), filepath.Join(t.TempDir(), "nope.flac"))
	if !errors.Is(err, ErrDecodeFailure) {
		t.Fatalf("Expected ErrDecodeFailure, got %v", err)
	}
}

func TestReadMetadataCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("definitely not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Without ffprobe the fallback fails to start; with it, the probe finds
	// no stream. Either way the result is a decode failure.
	_, err := ReadMetadata(context.Background(), path)
	if !errors.Is(err, ErrDecodeFailure) {
		t.Fatalf("Expected ErrDecodeFailure, got %v", err)
	}
}

func TestDecodeWindowWAVMono(t *testing.T) {
	const sr = 8000
	ramp := make([]float64, sr)
	for i := range ramp {
		ramp[i] = float64(i)/float64(sr) - 0.5
	}
	path := filepath.Join(t.TempDir(), "ramp.wav")
	testaudio.WriteWAV(t, path, sr, 16, ramp)

	meta, err := ReadMetadata(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadMetadata failed: %v", err)
	}

	seg, err := DecodeWindow(context.Background(), path, meta, 1000, 500, DecodeConfig{})
	if err != nil {
		t.Fatalf("DecodeWindow failed: %v", err)
	}

	if len(seg.Samples) != 500 {
		t.Fatalf("Expected 500 samples, got %d", len(seg.Samples))
	}
	if seg.StartFrame != 1000 {
		t.Errorf("StartFrame = %d, want 1000", seg.StartFrame)
	}
	// 16-bit quantization keeps values within ~3e-5
	for _, i := range []int{0, 250, 499} {
		want := ramp[1000+i]
		if math.Abs(seg.Samples[i]-want) > 1e-3 {
			t.Errorf("Samples[%d] = %f, want %f", i, seg.Samples[i], want)
		}
	}
	if math.Abs(seg.DurationSec()-500.0/sr) > 1e-9 {
		t.Errorf("DurationSec = %f", seg.DurationSec())
	}
}

func TestDecodeWindowAveragesChannels(t *testing.T) {
	const n = 4096
	left := make([]float64, n)
	right := make([]float64, n)
	for i := range left {
		left[i] = 0.5
		right[i] = -0.25
	}
	path := filepath.Join(t.TempDir(), "stereo.wav")
	testaudio.WriteWAV(t, path, 44100, 24, left, right)

	meta, err := ReadMetadata(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadMetadata failed: %v", err)
	}
	if meta.BitDepth != 24 {
		t.Errorf("BitDepth = %d, want 24", meta.BitDepth)
	}

	seg, err := DecodeWindow(context.Background(), path, meta, 0, n, DecodeConfig{})
	if err != nil {
		t.Fatalf("DecodeWindow failed: %v", err)
	}
	for i, v := range seg.Samples {
		if math.Abs(v-0.125) > 1e-4 {
			t.Fatalf("Samples[%d] = %f, want 0.125", i, v)
		}
	}
}

func TestMonoMixerCarriesPartialFrames(t *testing.T) {
	m := newMonoMixer(2, 16)
	full := 1 << 15

	// The first read stops between the left and right sample of frame two.
	out := m.add(nil, []int{full / 2, -full / 4, full / 4})
	if len(out) != 1 {
		t.Fatalf("Expected 1 sample after first read, got %d", len(out))
	}
	out = m.add(out, []int{full / 4, 0})
	out = m.add(out, []int{full / 2})

	want := []float64{0.125, 0.25, 0.25}
	if len(out) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(out))
	}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-9 {
			t.Errorf("out[%d] = %f, want %f", i, out[i], want[i])
		}
	}
}

func TestDecodeWindowTruncatesAtEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.wav")
	testaudio.WriteWAV(t, path, 44100, 16, testaudio.WhiteNoise(10000, 0.3, 1))

	meta, err := ReadMetadata(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadMetadata failed: %v", err)
	}

	seg, err := DecodeWindow(context.Background(), path, meta, 9000, 5000, DecodeConfig{})
	if err != nil {
		t.Fatalf("DecodeWindow failed: %v", err)
	}
	if len(seg.Samples) != 1000 {
		t.Errorf("Expected 1000 samples before EOF, got %d", len(seg.Samples))
	}
}

func TestDecodeWindowRequiresMetadata(t *testing.T) {
	_, err := DecodeWindow(context.Background(), "x.wav", nil, 0, 10, DecodeConfig{})
	if !errors.Is(err, ErrDecodeFailure) {
		t.Fatalf("Expected ErrDecodeFailure, got %v", err)
	}
}

func TestWriteClipWAV(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "song.wav")
	testaudio.WriteWAV(t, src, 48000, 24, testaudio.WhiteNoise(48000*3, 0.4, 7))

	meta, err := ReadMetadata(context.Background(), src)
	if err != nil {
		t.Fatalf("ReadMetadata failed: %v", err)
	}

	outDir := filepath.Join(dir, "out")
	if err := os.Mkdir(outDir, 0o755); err != nil {
		t.Fatal(err)
	}

	clipPath, err := WriteClip(context.Background(), src, meta, 48000, 48000, outDir)
	if err != nil {
		t.Fatalf("WriteClip failed: %v", err)
	}
	if filepath.Dir(clipPath) != outDir {
		t.Errorf("Clip written to %s, want dir %s", clipPath, outDir)
	}
	if filepath.Ext(clipPath) != ".wav" {
		t.Errorf("Clip extension = %s, want .wav", filepath.Ext(clipPath))
	}

	clipMeta, err := ReadMetadata(context.Background(), clipPath)
	if err != nil {
		t.Fatalf("ReadMetadata on clip failed: %v", err)
	}
	if clipMeta.SampleRate != 48000 || clipMeta.BitDepth != 24 {
		t.Errorf("Clip format %dHz/%dbit, want 48000Hz/24bit", clipMeta.SampleRate, clipMeta.BitDepth)
	}
	if clipMeta.TotalFrames != 48000 {
		t.Errorf("Clip frames = %d, want 48000", clipMeta.TotalFrames)
	}
}

func TestWriteClipCleansUpOnError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.wav")
	if err := os.WriteFile(src, []byte("RIFF garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")
	os.Mkdir(outDir, 0o755)

	meta := &Metadata{SampleRate: 44100, BitDepth: 16, Channels: 1, TotalFrames: 44100}
	if _, err := WriteClip(context.Background(), src, meta, 0, 100, outDir); err == nil {
		t.Fatal("Expected error for corrupt source")
	}

	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("Expected no leftover files, found %d", len(entries))
	}
}

func TestFLACRoundTrip(t *testing.T) {
	requireFFmpeg(t)

	dir := t.TempDir()
	wavPath := filepath.Join(dir, "src.wav")
	flacPath := filepath.Join(dir, "src.flac")
	testaudio.WriteWAV(t, wavPath, 44100, 16, testaudio.WhiteNoise(44100*4, 0.3, 3))

	cmd := exec.Command("ffmpeg", "-y", "-v", "error", "-i", wavPath, "-c:a", "flac", flacPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg encode failed: %v (%s)", err, out)
	}

	meta, err := ReadMetadata(context.Background(), flacPath)
	if err != nil {
		t.Fatalf("ReadMetadata failed: %v", err)
	}
	if meta.Format != "flac" || meta.SampleRate != 44100 || meta.BitDepth != 16 {
		t.Errorf("Unexpected metadata: %+v", meta)
	}
	if meta.TotalFrames != 44100*4 {
		t.Errorf("TotalFrames = %d, want %d", meta.TotalFrames, 44100*4)
	}

	seg, err := DecodeWindow(context.Background(), flacPath, meta, 44100, 44100, DecodeConfig{TempDir: dir})
	if err != nil {
		t.Fatalf("DecodeWindow failed: %v", err)
	}
	if len(seg.Samples) < 44000 || len(seg.Samples) > 44100 {
		t.Errorf("Expected about 44100 samples, got %d", len(seg.Samples))
	}

	clip, err := WriteClip(context.Background(), flacPath, meta, 0, 44100, dir)
	if err != nil {
		t.Fatalf("WriteClip failed: %v", err)
	}
	if filepath.Ext(clip) != ".flac" {
		t.Errorf("Clip extension = %s, want .flac", filepath.Ext(clip))
	}
}

func TestPCMCodecFor(t *testing.T) {
	tests := []struct {
		bits int
		want string
	}{
		{0, "pcm_s16le"},
		{16, "pcm_s16le"},
		{24, "pcm_s24le"},
		{32, "pcm_s32le"},
	}
	for _, tt := range tests {
		if got := pcmCodecFor(tt.bits); got != tt.want {
			t.Errorf("pcmCodecFor(%d) = %s, want %s", tt.bits, got, tt.want)
		}
	}
}

func TestFFprobeBitDepth(t *testing.T) {
	tests := []struct {
		name   string
		stream ffprobeStream
		want   int
	}{
		{"raw sample wins", ffprobeStream{BitsPerRawSample: "24", BitsPerSample: 0, SampleFmt: "s32"}, 24},
		{"bits per sample", ffprobeStream{BitsPerSample: 16, SampleFmt: "s16"}, 16},
		{"from sample fmt", ffprobeStream{SampleFmt: "s32p"}, 32},
		{"unknown", ffprobeStream{SampleFmt: "fltp"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stream.bitDepth(); got != tt.want {
				t.Errorf("bitDepth() = %d, want %d", got, tt.want)
			}
		})
	}
}
