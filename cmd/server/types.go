package main

import (
	"encoding/json"
	"fmt"

	"github.com/himanishpuri/TrueLossless/pkg/truelossless/ranking"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/spectral"
)

// Upload and request limits
const (
	// MaxUploadBytes bounds a single multipart upload (a 24/192 FLAC album
	// track is rarely above 250MB)
	MaxUploadBytes = 512 << 20

	// MaxRankHits is the largest hit list accepted by POST /api/rank
	MaxRankHits = 20000

	// DefaultTopN is how many ranked hits are returned when top is unset
	DefaultTopN = 25
)

// RankRequest is the request body for POST /api/rank. Exactly one of Hits
// or Responses must be set; Responses is the raw slskd search payload.
type RankRequest struct {
	Reference     ranking.ReferenceTrack `json:"reference"`
	Hits          []*ranking.SearchHit   `json:"hits,omitempty"`
	Responses     json.RawMessage        `json:"responses,omitempty"`
	RelaxedLimit  *int                   `json:"relaxed_limit,omitempty"`
	AllFormats    bool                   `json:"all_formats,omitempty"`
	ArtistCatalog bool                   `json:"artist_catalog,omitempty"` // hits came from an artist-only search
	Top           int                    `json:"top,omitempty"`
}

// Validate checks if the request is valid
func (r *RankRequest) Validate() error {
	if r.Reference.Title == "" {
		return fmt.Errorf("reference.title is required")
	}
	if r.Reference.DurationSecs < 0 {
		return fmt.Errorf("reference.duration_secs must not be negative")
	}
	if len(r.Hits) > 0 && len(r.Responses) > 0 {
		return fmt.Errorf("send either hits or responses, not both")
	}
	if len(r.Hits) == 0 && len(r.Responses) == 0 {
		return fmt.Errorf("hits or responses is required")
	}
	if len(r.Hits) > MaxRankHits {
		return fmt.Errorf("too many hits: %d (maximum: %d)", len(r.Hits), MaxRankHits)
	}
	if r.RelaxedLimit != nil && *r.RelaxedLimit < 0 {
		return fmt.Errorf("relaxed_limit must not be negative")
	}
	if r.Top < 0 {
		return fmt.Errorf("top must not be negative")
	}
	return nil
}

// RankResponse is the response for POST /api/rank
type RankResponse struct {
	Results   []*ranking.SearchHit `json:"results"`
	Count     int                  `json:"count"`
	Total     int                  `json:"total"`
	Query     string               `json:"query"`
	Suggested []string             `json:"suggested_queries,omitempty"`
	FLACOnly  bool                 `json:"flac_only"`
	Reference string               `json:"reference"`
}

// AnalyzeResponse is the response for POST /api/analyze
type AnalyzeResponse struct {
	ID       string           `json:"id,omitempty"`
	Filename string           `json:"filename"`
	FileSize int64            `json:"file_size"`
	Size     string           `json:"size"`
	Verdict  spectral.Verdict `json:"verdict"`
	Display  string           `json:"display"`
}

// HistoryResponse is the response for GET /api/history
type HistoryResponse struct {
	Analyses []AnalysisDTO                   `json:"analyses"`
	Picks    []PickDTO                       `json:"picks"`
	Counts   map[spectral.Classification]int `json:"counts"`
}

// AnalysisDTO represents a stored verdict in API responses
type AnalysisDTO struct {
	ID             string                  `json:"id"`
	Path           string                  `json:"path"`
	Classification spectral.Classification `json:"classification"`
	CutoffKHz      float64                 `json:"cutoff_khz"`
	NyquistKHz     float64                 `json:"nyquist_khz"`
	Size           string                  `json:"size"`
	When           string                  `json:"when"`
	CreatedAt      string                  `json:"created_at"`
}

// PickDTO represents a stored pick in API responses
type PickDTO struct {
	ID         string  `json:"id"`
	Artist     string  `json:"artist"`
	Title      string  `json:"title"`
	Username   string  `json:"username"`
	Filename   string  `json:"filename"`
	Score      float64 `json:"score"`
	Candidates int     `json:"candidates"`
	When       string  `json:"when"`
	CreatedAt  string  `json:"created_at"`
}

// MetricsResponse provides server health and history totals
type MetricsResponse struct {
	Status       string                          `json:"status"`
	DatabasePath string                          `json:"database_path,omitempty"`
	Counts       map[spectral.Classification]int `json:"counts"`
	Analyses     int                             `json:"analyses"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
