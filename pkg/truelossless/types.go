package truelossless

import (
	"time"

	"github.com/himanishpuri/TrueLossless/pkg/truelossless/ranking"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/spectral"
)

// Report is a verdict tied to the file it was computed for.
type Report struct {
	ID         string           `json:"id,omitempty"` // history row, empty when history is off
	Path       string           `json:"path"`
	FileSize   int64            `json:"file_size"`
	Verdict    spectral.Verdict `json:"verdict"`
	AnalyzedAt time.Time        `json:"analyzed_at"`
}

// RankResult is a ranked hit list. Fallback is set when no FLAC hit
// survived and the list holds other audio formats.
type RankResult struct {
	Hits        []*ranking.SearchHit `json:"hits"`
	Fallback    bool                 `json:"fallback"`
	Suggestions []string             `json:"suggestions,omitempty"`
}

// BatchResult carries either a report or the error that prevented one.
type BatchResult struct {
	Index  int
	Path   string
	Report *Report
	Err    error
}

// AnalysisRecord is a stored verdict.
type AnalysisRecord struct {
	ID             string                  `json:"id"`
	Path           string                  `json:"path"`
	FileSize       int64                   `json:"file_size"`
	Classification spectral.Classification `json:"classification"`
	CutoffKHz      float64                 `json:"cutoff_khz"`
	NyquistKHz     float64                 `json:"nyquist_khz"`
	SampleRate     int                     `json:"sample_rate"`
	BitDepth       int                     `json:"bit_depth"`
	CreatedAt      time.Time               `json:"created_at"`
}

// PickRecord is the winning hit of one ranking.
type PickRecord struct {
	ID         string    `json:"id"`
	Artist     string    `json:"artist"`
	Title      string    `json:"title"`
	Username   string    `json:"username"`
	Filename   string    `json:"filename"`
	Score      float64   `json:"score"`
	Candidates int       `json:"candidates"`
	CreatedAt  time.Time `json:"created_at"`
}

type History struct {
	Analyses []AnalysisRecord                `json:"analyses"`
	Picks    []PickRecord                    `json:"picks"`
	Counts   map[spectral.Classification]int `json:"counts"`
}
