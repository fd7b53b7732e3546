package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Segment is a decoded window of audio, averaged down to mono.
type Segment struct {
	Samples     []float64
	SampleRate  int
	BitDepth    int
	TotalFrames int64
	StartFrame  int64
}

// DurationSec is the length of the decoded window.
func (s *Segment) DurationSec() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

type DecodeConfig struct {
	TempDir string        // where intermediate WAV windows are written
	Timeout time.Duration // bound on the ffmpeg subprocess
}

const readChunkFrames = 4096

// DecodeWindow decodes frames [startFrame, startFrame+nFrames) of path into
// mono float samples normalized to [-1, 1]. WAV files are read directly;
// everything else is cut by ffmpeg into a temporary WAV first.
func DecodeWindow(ctx context.Context, path string, meta *Metadata, startFrame, nFrames int64, cfg DecodeConfig) (*Segment, error) {
	if meta == nil || meta.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing stream metadata", ErrDecodeFailure)
	}
	if startFrame < 0 {
		startFrame = 0
	}
	if nFrames < 0 {
		nFrames = 0
	}

	var samples []float64
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		samples, err = readWAVWindow(path, startFrame, nFrames)
	default:
		samples, err = ffmpegWindow(ctx, path, meta, startFrame, nFrames, cfg)
	}
	if err != nil {
		return nil, err
	}

	return &Segment{
		Samples:     samples,
		SampleRate:  meta.SampleRate,
		BitDepth:    meta.BitDepth,
		TotalFrames: meta.TotalFrames,
		StartFrame:  startFrame,
	}, nil
}

// pcmCodecFor picks an integer PCM codec wide enough for the source.
func pcmCodecFor(bitDepth int) string {
	switch {
	case bitDepth > 24:
		return "pcm_s32le"
	case bitDepth > 16:
		return "pcm_s24le"
	default:
		return "pcm_s16le"
	}
}

func ffmpegWindow(ctx context.Context, path string, meta *Metadata, startFrame, nFrames int64, cfg DecodeConfig) ([]float64, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tmp, err := os.CreateTemp(cfg.TempDir, "window-*.wav")
	if err != nil {
		return nil, fmt.Errorf("creating temp window: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	sr := float64(meta.SampleRate)
	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "error",
		"-ss", fmt.Sprintf("%.6f", float64(startFrame)/sr),
		"-i", path,
		"-t", fmt.Sprintf("%.6f", float64(nFrames)/sr),
		"-map", "0:a:0",
		"-c:a", pcmCodecFor(meta.BitDepth),
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: ffmpeg failed: %v (%s)", ErrDecodeFailure, err, strings.TrimSpace(string(out)))
	}

	return readWAVWindow(tmpPath, 0, nFrames)
}

// readWAVWindow streams the PCM data in fixed chunks so only the requested
// window is ever held in memory.
func readWAVWindow(path string, startFrame, nFrames int64) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrDecodeFailure)
	}

	channels := int(d.NumChans)
	bitDepth := int(d.BitDepth)
	if channels <= 0 || bitDepth <= 0 {
		return nil, fmt.Errorf("%w: bad WAV format (%d channels, %d bits)", ErrDecodeFailure, channels, bitDepth)
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: int(d.SampleRate)},
		Data:           make([]int, readChunkFrames*channels),
		SourceBitDepth: bitDepth,
	}

	skip := startFrame * int64(channels)
	for skip > 0 {
		want := min(int64(len(buf.Data)), skip)
		buf.Data = buf.Data[:want]
		n, err := d.PCMBuffer(buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, fmt.Errorf("%w: skipping to window: %v", ErrDecodeFailure, err)
		}
		if n == 0 {
			break
		}
		skip -= int64(n)
	}

	mix := newMonoMixer(channels, bitDepth)
	out := make([]float64, 0, nFrames)
	remaining := nFrames * int64(channels)
	for remaining > 0 {
		want := min(int64(readChunkFrames*channels), remaining)
		buf.Data = buf.Data[:want]
		n, err := d.PCMBuffer(buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, fmt.Errorf("%w: reading PCM: %v", ErrDecodeFailure, err)
		}
		if n == 0 {
			break
		}
		out = mix.add(out, buf.Data[:n])
		remaining -= int64(n)
	}

	return out, nil
}

// monoMixer averages interleaved samples into one channel. A read may end
// mid-frame, so the samples of an incomplete frame are held until the next
// call supplies the rest.
type monoMixer struct {
	channels int
	offset   int
	scale    float64
	pending  []int
}

func newMonoMixer(channels, bitDepth int) *monoMixer {
	m := &monoMixer{
		channels: channels,
		scale:    1.0 / float64(int64(1)<<(bitDepth-1)),
		pending:  make([]int, 0, channels),
	}
	if bitDepth == 8 {
		m.offset = 128 // 8-bit WAV is unsigned
	}
	return m
}

func (m *monoMixer) add(dst []float64, samples []int) []float64 {
	if m.channels == 1 {
		for _, v := range samples {
			dst = append(dst, float64(v-m.offset)*m.scale)
		}
		return dst
	}

	if len(m.pending) > 0 {
		need := m.channels - len(m.pending)
		if len(samples) < need {
			m.pending = append(m.pending, samples...)
			return dst
		}
		m.pending = append(m.pending, samples[:need]...)
		dst = append(dst, m.frame(m.pending))
		m.pending = m.pending[:0]
		samples = samples[need:]
	}

	whole := len(samples) - len(samples)%m.channels
	for i := 0; i < whole; i += m.channels {
		dst = append(dst, m.frame(samples[i:i+m.channels]))
	}
	m.pending = append(m.pending, samples[whole:]...)
	return dst
}

func (m *monoMixer) frame(f []int) float64 {
	var sum float64
	for _, v := range f {
		sum += float64(v - m.offset)
	}
	return sum / float64(m.channels) * m.scale
}
