package truelossless

import (
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/spectral"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/storage"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) RecordAnalysis(rec AnalysisRecord) (string, error) {
	return s.db.RecordAnalysis(storage.Analysis{
		Path:           rec.Path,
		FileSize:       rec.FileSize,
		Classification: string(rec.Classification),
		CutoffKHz:      rec.CutoffKHz,
		NyquistKHz:     rec.NyquistKHz,
		SampleRate:     rec.SampleRate,
		BitDepth:       rec.BitDepth,
		CreatedAt:      rec.CreatedAt,
	})
}

func (s *storageAdapter) RecordPick(rec PickRecord) (string, error) {
	return s.db.RecordPick(storage.Pick{
		Artist:     rec.Artist,
		Title:      rec.Title,
		Username:   rec.Username,
		Filename:   rec.Filename,
		Score:      rec.Score,
		Candidates: rec.Candidates,
		CreatedAt:  rec.CreatedAt,
	})
}

func (s *storageAdapter) ListAnalyses(limit int) ([]AnalysisRecord, error) {
	rows, err := s.db.ListAnalyses(limit)
	if err != nil {
		return nil, err
	}
	out := make([]AnalysisRecord, len(rows))
	for i, r := range rows {
		out[i] = AnalysisRecord{
			ID:             r.ID,
			Path:           r.Path,
			FileSize:       r.FileSize,
			Classification: spectral.Classification(r.Classification),
			CutoffKHz:      r.CutoffKHz,
			NyquistKHz:     r.NyquistKHz,
			SampleRate:     r.SampleRate,
			BitDepth:       r.BitDepth,
			CreatedAt:      r.CreatedAt,
		}
	}
	return out, nil
}

func (s *storageAdapter) ListPicks(limit int) ([]PickRecord, error) {
	rows, err := s.db.ListPicks(limit)
	if err != nil {
		return nil, err
	}
	out := make([]PickRecord, len(rows))
	for i, r := range rows {
		out[i] = PickRecord{
			ID:         r.ID,
			Artist:     r.Artist,
			Title:      r.Title,
			Username:   r.Username,
			Filename:   r.Filename,
			Score:      r.Score,
			Candidates: r.Candidates,
			CreatedAt:  r.CreatedAt,
		}
	}
	return out, nil
}

func (s *storageAdapter) CountByClassification() (map[spectral.Classification]int, error) {
	counts, err := s.db.CountByClassification()
	if err != nil {
		return nil, err
	}
	out := make(map[spectral.Classification]int, len(counts))
	for k, v := range counts {
		out[spectral.Classification(k)] = v
	}
	return out, nil
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

// discardStorage backs WithoutHistory.
type discardStorage struct{}

func (discardStorage) RecordAnalysis(AnalysisRecord) (string, error) { return "", nil }
func (discardStorage) RecordPick(PickRecord) (string, error)         { return "", nil }
func (discardStorage) ListAnalyses(int) ([]AnalysisRecord, error)    { return nil, nil }
func (discardStorage) ListPicks(int) ([]PickRecord, error)           { return nil, nil }
func (discardStorage) Close() error                                   { return nil }

func (discardStorage) CountByClassification() (map[spectral.Classification]int, error) {
	return map[spectral.Classification]int{}, nil
}
