package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
)

// ErrDecodeFailure is returned when a file is missing, corrupt or in a codec
// the decoders cannot handle. Callers must treat it as "could not determine".
var ErrDecodeFailure = errors.New("audio decode failure")

// Metadata describes an audio file as read from its header.
type Metadata struct {
	Filename    string
	Format      string
	Codec       string
	DurationSec float64
	SampleRate  int
	Channels    int
	BitDepth    int
	TotalFrames int64
}

type ffprobeOutput struct {
	Format struct {
		Filename string `json:"filename"`
		Duration string `json:"duration"`
		Format   string `json:"format_name"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType        string `json:"codec_type"`
	CodecName        string `json:"codec_name"`
	SampleRate       string `json:"sample_rate"`
	SampleFmt        string `json:"sample_fmt"`
	Channels         int    `json:"channels"`
	BitsPerSample    int    `json:"bits_per_sample"`
	BitsPerRawSample string `json:"bits_per_raw_sample"`
	TimeBase         string `json:"time_base"`
	DurationTS       int64  `json:"duration_ts"`
	Duration         string `json:"duration"`
}

func (p *ffprobeOutput) firstAudioStream() *ffprobeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "audio" {
			return &p.Streams[i]
		}
	}
	return nil
}

var digitsRe = regexp.MustCompile(`\d+`)

// bitDepth mirrors how container tools report resolution: FLAC leaves
// bits_per_sample at zero and fills bits_per_raw_sample instead.
func (s *ffprobeStream) bitDepth() int {
	if n, err := strconv.Atoi(s.BitsPerRawSample); err == nil && n > 0 {
		return n
	}
	if s.BitsPerSample > 0 {
		return s.BitsPerSample
	}
	if m := digitsRe.FindString(s.SampleFmt); m != "" {
		n, _ := strconv.Atoi(m)
		return n
	}
	return 0
}

// ReadMetadata reads sample rate, bit depth and frame count from the file
// header without decoding audio. FLAC and WAV are parsed natively; anything
// else goes through ffprobe.
func ReadMetadata(ctx context.Context, path string) (*Metadata, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		if meta, err := readFLACStreamInfo(path); err == nil {
			return meta, nil
		}
	case ".wav", ".wave":
		if meta, err := readWAVHeader(path); err == nil {
			return meta, nil
		}
	}

	return ReadMetadataFFmpeg(ctx, path)
}

func readFLACStreamInfo(path string) (*Metadata, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	info := stream.Info
	if info == nil || info.SampleRate == 0 {
		return nil, errors.New("flac stream info missing")
	}

	sr := int(info.SampleRate)
	return &Metadata{
		Filename:    filepath.Base(path),
		Format:      "flac",
		Codec:       "flac",
		DurationSec: float64(info.NSamples) / float64(sr),
		SampleRate:  sr,
		Channels:    int(info.NChannels),
		BitDepth:    int(info.BitsPerSample),
		TotalFrames: int64(info.NSamples),
	}, nil
}

func readWAVHeader(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	// Frames come from the data chunk length. The RIFF size also counts
	// header bytes.
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("locating WAV data chunk: %w", err)
	}
	frameBytes := int64(d.NumChans) * int64(d.BitDepth/8)
	if frameBytes <= 0 || d.SampleRate == 0 {
		return nil, fmt.Errorf("bad WAV format (%d channels, %d bits)", d.NumChans, d.BitDepth)
	}

	sr := int(d.SampleRate)
	frames := d.PCMLen() / frameBytes
	return &Metadata{
		Filename:    filepath.Base(path),
		Format:      "wav",
		Codec:       "pcm",
		DurationSec: float64(frames) / float64(sr),
		SampleRate:  sr,
		Channels:    int(d.NumChans),
		BitDepth:    int(d.BitDepth),
		TotalFrames: frames,
	}, nil
}

// ReadMetadataFFmpeg probes any container ffprobe understands.
func ReadMetadataFFmpeg(ctx context.Context, path string) (*Metadata, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(
		ctx,
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: ffprobe: %v", ErrDecodeFailure, err)
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("%w: parsing ffprobe output: %v", ErrDecodeFailure, err)
	}

	stream := probe.firstAudioStream()
	if stream == nil {
		return nil, fmt.Errorf("%w: no audio stream found", ErrDecodeFailure)
	}

	sampleRate, _ := strconv.Atoi(stream.SampleRate)
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %q", ErrDecodeFailure, stream.SampleRate)
	}

	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	if duration == 0 {
		duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	}

	frames := int64(math.Round(duration * float64(sampleRate)))
	if stream.DurationTS > 0 && stream.TimeBase == fmt.Sprintf("1/%d", sampleRate) {
		frames = stream.DurationTS
	}

	return &Metadata{
		Filename:    filepath.Base(path),
		Format:      probe.Format.Format,
		Codec:       stream.CodecName,
		DurationSec: duration,
		SampleRate:  sampleRate,
		Channels:    stream.Channels,
		BitDepth:    stream.bitDepth(),
		TotalFrames: frames,
	}, nil
}
