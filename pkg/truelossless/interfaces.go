package truelossless

import (
	"context"

	"github.com/himanishpuri/TrueLossless/pkg/truelossless/ranking"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/spectral"
)

type Service interface {
	Verify(ctx context.Context, path string) (*Report, error)
	VerifyBatch(ctx context.Context, paths []string, workers int, onDone func(BatchResult)) ([]BatchResult, error)
	Preview(ctx context.Context, path string) (*spectral.PreviewClip, error)
	Spectrogram(ctx context.Context, path, outPath string) error
	Rank(ctx context.Context, hits []*ranking.SearchHit, ref ranking.ReferenceTrack, opts ranking.RankOptions) (*RankResult, error)
	History(limit int) (*History, error)
	Close() error
}

type Storage interface {
	RecordAnalysis(rec AnalysisRecord) (string, error)
	RecordPick(rec PickRecord) (string, error)
	ListAnalyses(limit int) ([]AnalysisRecord, error)
	ListPicks(limit int) ([]PickRecord, error)
	CountByClassification() (map[spectral.Classification]int, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
