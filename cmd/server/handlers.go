package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/TrueLossless/pkg/logger"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/ranking"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service truelossless.Service
	config  *ServerConfig
	log     truelossless.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	DBPath         string
	TempDir        string
	HistoryEnabled bool
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service truelossless.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger().WithPrefix("[http]"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "TrueLossless API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":      "GET /health",
			"metrics":     "GET /api/health/metrics",
			"analyze":     "POST /api/analyze",
			"preview":     "POST /api/preview",
			"spectrogram": "POST /api/spectrogram",
			"rank":        "POST /api/rank",
			"history":     "GET /api/history",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	h, err := s.service.History(1)
	if err != nil {
		s.log.Errorf("Failed to read history counts: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	total := 0
	for _, n := range h.Counts {
		total += n
	}
	resp := MetricsResponse{
		Status:   "healthy",
		Counts:   h.Counts,
		Analyses: total,
	}
	if s.config.HistoryEnabled {
		resp.DatabasePath = s.config.DBPath
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// saveUpload copies the "audio" form file into a fresh directory under
// TempDir, keeping its base name so the decoder can pick a format from the
// extension. cleanup removes the directory.
func (s *Server) saveUpload(r *http.Request) (path string, header *multipart.FileHeader, cleanup func(), err error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", nil, nil, fmt.Errorf("failed to parse form data: %w", err)
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		return "", nil, nil, errors.New("audio file is required")
	}
	defer file.Close()

	dir, err := os.MkdirTemp(s.config.TempDir, "upload_")
	if err != nil {
		return "", nil, nil, fmt.Errorf("creating upload dir: %w", err)
	}
	cleanup = func() { os.RemoveAll(dir) }

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = "upload"
	}
	path = filepath.Join(dir, name)

	out, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, nil, fmt.Errorf("creating upload file: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		cleanup()
		return "", nil, nil, fmt.Errorf("saving upload: %w", err)
	}
	if err := out.Close(); err != nil {
		cleanup()
		return "", nil, nil, fmt.Errorf("saving upload: %w", err)
	}
	return path, header, cleanup, nil
}

// uploadStatus maps a saveUpload error to a status code.
func uploadStatus(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// handleAnalyze handles POST /api/analyze (multipart file upload)
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	path, header, cleanup, err := s.saveUpload(r)
	if err != nil {
		s.log.Warnf("Rejected upload: %v", err)
		s.respondError(w, uploadStatus(err), err.Error())
		return
	}
	defer cleanup()

	s.log.Infof("Analyzing uploaded file: %s (%s)", header.Filename, humanize.Bytes(uint64(header.Size)))
	rep, err := s.service.Verify(ctx, path)
	if err != nil {
		if errors.Is(err, truelossless.ErrDecodeFailure) {
			s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Could not decode %s", header.Filename))
			return
		}
		s.log.Errorf("Analysis failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Analysis failed: %v", err))
		return
	}

	s.respondJSON(w, http.StatusOK, AnalyzeResponse{
		ID:       rep.ID,
		Filename: header.Filename,
		FileSize: rep.FileSize,
		Size:     humanize.Bytes(uint64(rep.FileSize)),
		Verdict:  rep.Verdict,
		Display:  rep.Verdict.Display(),
	})
}

// handlePreview handles POST /api/preview and streams the clip back
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	path, header, cleanup, err := s.saveUpload(r)
	if err != nil {
		s.log.Warnf("Rejected upload: %v", err)
		s.respondError(w, uploadStatus(err), err.Error())
		return
	}
	defer cleanup()

	clip, err := s.service.Preview(ctx, path)
	if err != nil {
		if errors.Is(err, truelossless.ErrDecodeFailure) {
			s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Could not decode %s", header.Filename))
			return
		}
		s.log.Errorf("Preview failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Preview failed: %v", err))
		return
	}
	defer clip.Close()

	f, err := os.Open(clip.Path)
	if err != nil {
		s.log.Errorf("Failed to open preview clip: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to read preview")
		return
	}
	defer f.Close()

	name := "preview_" + filepath.Base(header.Filename)
	name = name[:len(name)-len(filepath.Ext(name))] + filepath.Ext(clip.Path)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-Preview-Start", strconv.FormatFloat(clip.StartSeconds, 'f', 2, 64))
	w.Header().Set("X-Preview-Duration", strconv.FormatFloat(clip.DurationSeconds, 'f', 2, 64))
	http.ServeContent(w, r, name, time.Time{}, f)
}

// handleSpectrogram handles POST /api/spectrogram and returns a PNG
func (s *Server) handleSpectrogram(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	path, header, cleanup, err := s.saveUpload(r)
	if err != nil {
		s.log.Warnf("Rejected upload: %v", err)
		s.respondError(w, uploadStatus(err), err.Error())
		return
	}
	defer cleanup()

	pngPath := path + ".png"
	if err := s.service.Spectrogram(ctx, path, pngPath); err != nil {
		if errors.Is(err, truelossless.ErrDecodeFailure) {
			s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Could not decode %s", header.Filename))
			return
		}
		s.log.Errorf("Spectrogram failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Spectrogram failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, pngPath)
}

// handleRank handles POST /api/rank
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	var req RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Warnf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hits := req.Hits
	if len(req.Responses) > 0 {
		parsed, err := ranking.ParseResponses(req.Responses, false)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		hits = parsed
	}
	total := len(hits)

	res, err := s.service.Rank(ctx, hits, req.Reference, ranking.RankOptions{
		RelaxedLimit:  req.RelaxedLimit,
		AllFormats:    req.AllFormats,
		ArtistCatalog: req.ArtistCatalog,
	})
	if err != nil {
		s.log.Errorf("Ranking failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Ranking failed: %v", err))
		return
	}

	top := req.Top
	if top == 0 {
		top = DefaultTopN
	}
	count := len(res.Hits)

	resp := RankResponse{
		Results:   res.Hits[:min(top, count)],
		Count:     count,
		Total:     total,
		Query:     ranking.SearchQuery(req.Reference),
		Suggested: res.Suggestions,
		FLACOnly:  !res.Fallback,
		Reference: fmt.Sprintf("%s - %s (%s)", req.Reference.Artist, req.Reference.Title, req.Reference.DurationDisplay()),
	}

	s.log.Infof("Ranked %d of %d hits for %s", count, total, resp.Reference)
	s.respondJSON(w, http.StatusOK, resp)
}

// handleHistory handles GET /api/history?limit=N
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	h, err := s.service.History(limit)
	if err != nil {
		s.log.Errorf("Failed to read history: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve history")
		return
	}

	resp := HistoryResponse{
		Analyses: make([]AnalysisDTO, len(h.Analyses)),
		Picks:    make([]PickDTO, len(h.Picks)),
		Counts:   h.Counts,
	}
	for i, a := range h.Analyses {
		resp.Analyses[i] = AnalysisDTO{
			ID:             a.ID,
			Path:           a.Path,
			Classification: a.Classification,
			CutoffKHz:      a.CutoffKHz,
			NyquistKHz:     a.NyquistKHz,
			Size:           humanize.Bytes(uint64(a.FileSize)),
			When:           humanize.Time(a.CreatedAt),
			CreatedAt:      a.CreatedAt.Format(time.RFC3339),
		}
	}
	for i, p := range h.Picks {
		resp.Picks[i] = PickDTO{
			ID:         p.ID,
			Artist:     p.Artist,
			Title:      p.Title,
			Username:   p.Username,
			Filename:   p.Filename,
			Score:      p.Score,
			Candidates: p.Candidates,
			When:       humanize.Time(p.CreatedAt),
			CreatedAt:  p.CreatedAt.Format(time.RFC3339),
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// postOnly wraps a handler that only accepts POST
func (s *Server) postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}

// getOnly wraps a handler that only accepts GET
func (s *Server) getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}
