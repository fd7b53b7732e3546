package ranking

import (
	"encoding/json"
	"fmt"
)

var (
	flacExtensions  = map[string]bool{"flac": true}
	audioExtensions = map[string]bool{
		"flac": true, "alac": true, "wav": true, "aiff": true, "mp3": true,
		"aac": true, "m4a": true, "ogg": true, "opus": true, "wma": true,
	}
)

// slskdResponse is one peer's answer in a slskd search state.
type slskdResponse struct {
	Username          string      `json:"username"`
	HasFreeUploadSlot bool        `json:"hasFreeUploadSlot"`
	UploadSpeed       int64       `json:"uploadSpeed"`
	QueueLength       int         `json:"queueLength"`
	Files             []slskdFile `json:"files"`
}

type slskdFile struct {
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	BitRate    *int   `json:"bitRate"`
	BitDepth   *int   `json:"bitDepth"`
	SampleRate *int   `json:"sampleRate"`
	Length     *int   `json:"length"`
}

// ParseResponses flattens raw slskd search responses into hits. raw may be a
// bare response array or a search state object with a "responses" field.
// With flacOnly set only .flac files are kept, otherwise any common audio
// format.
func ParseResponses(raw []byte, flacOnly bool) ([]*SearchHit, error) {
	var responses []slskdResponse
	if err := json.Unmarshal(raw, &responses); err != nil {
		var state struct {
			Responses []slskdResponse `json:"responses"`
		}
		if err2 := json.Unmarshal(raw, &state); err2 != nil {
			return nil, fmt.Errorf("decoding slskd responses: %w", err)
		}
		responses = state.Responses
	}

	allowed := audioExtensions
	if flacOnly {
		allowed = flacExtensions
	}

	hits := make([]*SearchHit, 0)
	for _, resp := range responses {
		for _, f := range resp.Files {
			hit := &SearchHit{
				Username:    resp.Username,
				Filename:    f.Filename,
				Size:        f.Size,
				BitRate:     f.BitRate,
				BitDepth:    f.BitDepth,
				SampleRate:  f.SampleRate,
				Length:      f.Length,
				HasFreeSlot: resp.HasFreeUploadSlot,
				UploadSpeed: resp.UploadSpeed,
				QueueLength: resp.QueueLength,
			}
			if !allowed[hit.Extension()] {
				continue
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

// FilterExtensions keeps hits whose extension is in allowed.
func FilterExtensions(hits []*SearchHit, allowed map[string]bool) []*SearchHit {
	out := make([]*SearchHit, 0, len(hits))
	for _, h := range hits {
		if h != nil && allowed[h.Extension()] {
			out = append(out, h)
		}
	}
	return out
}
