// Package truelossless is the embedding surface for lossless verification:
// spectral verdicts on local files, preview clips and ranking of peer search
// hits, with an optional sqlite history of what was decided.
package truelossless

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/TrueLossless/pkg/logger"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/ranking"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/spectral"
)

// ErrDecodeFailure is returned (wrapped) when a file cannot be decoded. It is
// never reported as a FAKE verdict.
var ErrDecodeFailure = spectral.ErrDecodeFailure

// verifyService is the default implementation of the Service interface.
type verifyService struct {
	storage Storage
	ranker  *ranking.Ranker
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	ranker := cfg.Ranker
	if ranker == nil {
		var err error
		ranker, err = ranking.NewRanker(ranking.WithLogger(cfg.Logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create ranker: %w", err)
		}
	}

	var stor Storage
	switch {
	case cfg.NoHistory:
		stor = discardStorage{}
	case cfg.Storage != nil:
		stor = cfg.Storage
	default:
		var err error
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &verifyService{
		storage: stor,
		ranker:  ranker,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

// Verify analyzes one file and records the verdict.
func (s *verifyService) Verify(ctx context.Context, path string) (*Report, error) {
	s.log.Debugf("Analyzing %s", path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	verdict, err := spectral.Analyze(ctx, path, spectral.AnalyzeConfig{
		WindowSeconds: s.config.AnalysisWindow,
		TempDir:       s.config.TempDir,
	})
	if err != nil {
		s.log.Warnf("Analysis failed for %s: %v", path, err)
		return nil, err
	}

	report := &Report{
		Path:       path,
		FileSize:   info.Size(),
		Verdict:    *verdict,
		AnalyzedAt: time.Now().UTC(),
	}

	id, err := s.storage.RecordAnalysis(AnalysisRecord{
		Path:           path,
		FileSize:       report.FileSize,
		Classification: verdict.Classification,
		CutoffKHz:      verdict.CutoffKHz,
		NyquistKHz:     verdict.NyquistKHz,
		SampleRate:     verdict.SampleRate,
		BitDepth:       verdict.BitDepth,
		CreatedAt:      report.AnalyzedAt,
	})
	if err != nil {
		// history is bookkeeping; the verdict stands
		s.log.Warnf("Failed to record analysis of %s: %v", path, err)
	}
	report.ID = id

	s.log.Infof("%s: %s", path, verdict.Display())
	return report, nil
}

// VerifyBatch runs Verify over paths with at most workers analyses in
// flight. Per-file failures land in the matching BatchResult; only context
// cancellation aborts the batch. onDone, if set, is called once per finished
// file and never concurrently.
func (s *verifyService) VerifyBatch(ctx context.Context, paths []string, workers int, onDone func(BatchResult)) ([]BatchResult, error) {
	if workers <= 0 {
		workers = 1
	}

	results := make([]BatchResult, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := s.Verify(gctx, path)
			res := BatchResult{Index: i, Path: path, Report: report, Err: err}
			results[i] = res

			if onDone != nil {
				mu.Lock()
				onDone(res)
				mu.Unlock()
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	s.log.Infof("Verified %d files", len(paths))
	return results, nil
}

// Preview cuts a clip for delivery; the caller must Close it.
func (s *verifyService) Preview(ctx context.Context, path string) (*spectral.PreviewClip, error) {
	clip, err := spectral.ExtractPreview(ctx, path, spectral.PreviewConfig{
		DurationSeconds: s.config.PreviewDuration,
		OutDir:          s.config.TempDir,
	})
	if err != nil {
		return nil, err
	}
	s.log.Debugf("Preview of %s: %.1fs from %.1fs", path, clip.DurationSeconds, clip.StartSeconds)
	return clip, nil
}

// Spectrogram renders the analysis window of path as a PNG.
func (s *verifyService) Spectrogram(ctx context.Context, path, outPath string) error {
	seg, err := spectral.ReadAnalysisWindow(ctx, path, spectral.AnalyzeConfig{
		WindowSeconds: s.config.AnalysisWindow,
		TempDir:       s.config.TempDir,
	})
	if err != nil {
		return err
	}
	if err := spectral.RenderSpectrogram(seg, outPath); err != nil {
		return fmt.Errorf("rendering spectrogram: %w", err)
	}
	s.log.Infof("Spectrogram written to %s", outPath)
	return nil
}

// Rank orders hits for ref, FLAC first, and records the winner. An empty
// result carries the searches worth trying next instead.
func (s *verifyService) Rank(ctx context.Context, hits []*ranking.SearchHit, ref ranking.ReferenceTrack, opts ranking.RankOptions) (*RankResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked, fallback := s.ranker.RankPreferFLAC(hits, ref, opts)
	res := &RankResult{Hits: ranked, Fallback: fallback}
	if len(ranked) == 0 {
		res.Suggestions = ranking.FallbackQueries(ref)
		return res, nil
	}

	best := ranked[0]
	_, err := s.storage.RecordPick(PickRecord{
		Artist:     ref.Artist,
		Title:      ref.Title,
		Username:   best.Username,
		Filename:   best.Filename,
		Score:      best.Score,
		Candidates: len(ranked),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		s.log.Warnf("Failed to record pick for %s - %s: %v", ref.Artist, ref.Title, err)
	}
	return res, nil
}

// History returns the newest verdicts and picks plus verdict totals.
func (s *verifyService) History(limit int) (*History, error) {
	analyses, err := s.storage.ListAnalyses(limit)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	picks, err := s.storage.ListPicks(limit)
	if err != nil {
		return nil, fmt.Errorf("listing picks: %w", err)
	}
	counts, err := s.storage.CountByClassification()
	if err != nil {
		return nil, fmt.Errorf("counting analyses: %w", err)
	}
	return &History{Analyses: analyses, Picks: picks, Counts: counts}, nil
}

// Close releases all resources held by the service.
func (s *verifyService) Close() error {
	return s.storage.Close()
}
