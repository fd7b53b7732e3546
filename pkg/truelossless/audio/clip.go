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

// WriteClip copies frames [startFrame, startFrame+nFrames) of path into a new
// file in outDir with the same extension, sample rate and bit depth. The
// returned path belongs to the caller. On error nothing is left on disk.
func WriteClip(ctx context.Context, path string, meta *Metadata, startFrame, nFrames int64, outDir string) (string, error) {
	if meta == nil || meta.SampleRate <= 0 {
		return "", fmt.Errorf("%w: missing stream metadata", ErrDecodeFailure)
	}

	ext := strings.ToLower(filepath.Ext(path))
	out, err := os.CreateTemp(outDir, "preview-*"+ext)
	if err != nil {
		return "", fmt.Errorf("creating preview file: %w", err)
	}
	outPath := out.Name()

	switch ext {
	case ".wav", ".wave":
		err = copyWAVFrames(path, out, startFrame, nFrames)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	default:
		out.Close()
		err = ffmpegClip(ctx, path, meta, startFrame, nFrames, outPath)
	}

	if err != nil {
		os.Remove(outPath)
		return "", err
	}
	return outPath, nil
}

func ffmpegClip(ctx context.Context, path string, meta *Metadata, startFrame, nFrames int64, outPath string) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
	}

	sr := float64(meta.SampleRate)
	args := []string{
		"-y",
		"-v", "error",
		"-ss", fmt.Sprintf("%.6f", float64(startFrame)/sr),
		"-i", path,
		"-t", fmt.Sprintf("%.6f", float64(nFrames)/sr),
		"-map", "0:a:0",
		"-map_metadata", "0",
		"-ar", fmt.Sprintf("%d", meta.SampleRate),
	}
	if meta.Codec == "flac" || strings.EqualFold(filepath.Ext(path), ".flac") {
		args = append(args, "-c:a", "flac")
		if meta.BitDepth > 16 {
			args = append(args, "-sample_fmt", "s32", "-bits_per_raw_sample", fmt.Sprintf("%d", meta.BitDepth))
		} else {
			args = append(args, "-sample_fmt", "s16")
		}
	} else {
		args = append(args, "-c:a", "copy")
	}
	args = append(args, outPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: ffmpeg clip failed: %v (%s)", ErrDecodeFailure, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func copyWAVFrames(path string, dst io.WriteSeeker, startFrame, nFrames int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return fmt.Errorf("%w: not a valid WAV file", ErrDecodeFailure)
	}

	channels := int(d.NumChans)
	format := &goaudio.Format{NumChannels: channels, SampleRate: int(d.SampleRate)}
	buf := &goaudio.IntBuffer{
		Format:         format,
		Data:           make([]int, readChunkFrames*channels),
		SourceBitDepth: int(d.BitDepth),
	}

	enc := wav.NewEncoder(dst, int(d.SampleRate), int(d.BitDepth), channels, int(d.WavAudioFormat))

	pos := int64(0)
	end := (startFrame + nFrames) * int64(channels)
	begin := startFrame * int64(channels)
	for pos < end {
		want := min(int64(readChunkFrames*channels), end-pos)
		if pos < begin {
			want = min(want, begin-pos)
		}
		buf.Data = buf.Data[:want]
		n, err := d.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: reading PCM: %v", ErrDecodeFailure, err)
		}
		if n == 0 {
			break
		}
		if pos >= begin {
			buf.Data = buf.Data[:n]
			if err := enc.Write(buf); err != nil {
				return fmt.Errorf("writing preview PCM: %w", err)
			}
		}
		pos += int64(n)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing preview WAV: %w", err)
	}
	return nil
}
