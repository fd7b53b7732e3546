package ranking

import (
	"fmt"
	"strings"
)

// SearchHit is one file offered by a peer in response to a search.
type SearchHit struct {
	Username    string `json:"username"`
	Filename    string `json:"filename"` // full remote path, e.g. "\\Music\\Artist\\Song.flac"
	Size        int64  `json:"size"`
	BitRate     *int   `json:"bit_rate,omitempty"`
	BitDepth    *int   `json:"bit_depth,omitempty"`
	SampleRate  *int   `json:"sample_rate,omitempty"`
	Length      *int   `json:"length,omitempty"` // seconds
	HasFreeSlot bool   `json:"has_free_slot"`
	UploadSpeed int64  `json:"upload_speed"` // bytes/s
	QueueLength int    `json:"queue_length"`

	// Score is set once by Ranker.Rank.
	Score float64 `json:"score"`
}

// Basename strips the remote directory; peers use backslash separators.
func (h *SearchHit) Basename() string {
	if i := strings.LastIndex(h.Filename, "\\"); i >= 0 {
		return h.Filename[i+1:]
	}
	return h.Filename
}

// Extension is the lowercase extension without the dot.
func (h *SearchHit) Extension() string {
	base := h.Basename()
	if i := strings.LastIndex(base, "."); i >= 0 {
		return strings.ToLower(base[i+1:])
	}
	return ""
}

func (h *SearchHit) DurationDisplay() string {
	if h.Length == nil || *h.Length == 0 {
		return "??:??"
	}
	return fmt.Sprintf("%d:%02d", *h.Length/60, *h.Length%60)
}

func (h *SearchHit) SizeMB() float64 {
	return float64(h.Size) / (1024 * 1024)
}

func (h *SearchHit) QualityDisplay() string {
	var parts []string
	if h.BitDepth != nil && *h.BitDepth != 0 && h.SampleRate != nil && *h.SampleRate != 0 {
		parts = append(parts, fmt.Sprintf("%dbit/%.1fkHz", *h.BitDepth, float64(*h.SampleRate)/1000))
	}
	if h.BitRate != nil && *h.BitRate != 0 {
		parts = append(parts, fmt.Sprintf("%dkbps", *h.BitRate))
	}
	if len(parts) == 0 {
		return "FLAC"
	}
	return strings.Join(parts, ", ")
}

func (h *SearchHit) String() string {
	return fmt.Sprintf("%s (%s, %s, %.1fMB)", h.Basename(), h.DurationDisplay(), h.QualityDisplay(), h.SizeMB())
}

// ReferenceTrack is the canonical metadata a hit is compared against.
type ReferenceTrack struct {
	Artist       string `json:"artist"`
	Title        string `json:"title"`
	Album        string `json:"album"`
	DurationSecs int    `json:"duration_secs"`
	Year         string `json:"year"`
}

func (r ReferenceTrack) DurationDisplay() string {
	return fmt.Sprintf("%d:%02d", r.DurationSecs/60, r.DurationSecs%60)
}
