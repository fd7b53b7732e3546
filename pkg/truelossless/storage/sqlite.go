package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "truelossless.sqlite3"
const errDBClientNil = "db client is nil"

// DefaultHistoryLimit caps list queries when the caller passes 0.
const DefaultHistoryLimit = 50

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Analysis is one spectral verdict recorded for a local file.
type Analysis struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Path           string    `gorm:"index:idx_analysis_path" json:"path"`
	FileSize       int64     `json:"file_size"`
	Classification string    `gorm:"index:idx_classification" json:"classification"`
	CutoffKHz      float64   `json:"cutoff_khz"`
	NyquistKHz     float64   `json:"nyquist_khz"`
	SampleRate     int       `json:"sample_rate"`
	BitDepth       int       `json:"bit_depth"`
	CreatedAt      time.Time `gorm:"index:idx_analysis_created" json:"created_at"`
}

// Pick is the top-ranked search hit chosen for a reference track.
type Pick struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Artist     string    `gorm:"index:idx_pick_track,priority:1" json:"artist"`
	Title      string    `gorm:"index:idx_pick_track,priority:2" json:"title"`
	Username   string    `json:"username"`
	Filename   string    `json:"filename"`
	Score      float64   `json:"score"`
	Candidates int       `json:"candidates"`
	CreatedAt  time.Time `gorm:"index:idx_pick_created" json:"created_at"`
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// Batch scans write from several goroutines; sqlite allows one writer.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Analysis{}, &Pick{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RecordAnalysis stores a and returns its new ID. CreatedAt is filled in when
// zero.
func (c *DBClient) RecordAnalysis(a Analysis) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}
	a.ID = uuid.NewString()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if err := c.DB.Create(&a).Error; err != nil {
		return "", fmt.Errorf("creating analysis: %w", err)
	}
	return a.ID, nil
}

func (c *DBClient) RecordPick(p Pick) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}
	p.ID = uuid.NewString()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := c.DB.Create(&p).Error; err != nil {
		return "", fmt.Errorf("creating pick: %w", err)
	}
	return p.ID, nil
}

// ListAnalyses returns the newest analyses first.
func (c *DBClient) ListAnalyses(limit int) ([]Analysis, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var rows []Analysis
	if err := c.DB.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	return rows, nil
}

func (c *DBClient) ListPicks(limit int) ([]Pick, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var rows []Pick
	if err := c.DB.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing picks: %w", err)
	}
	return rows, nil
}

// LatestAnalysisForPath returns the most recent verdict recorded for path,
// or gorm.ErrRecordNotFound.
func (c *DBClient) LatestAnalysisForPath(path string) (*Analysis, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var a Analysis
	if err := c.DB.Where("path = ?", path).Order("created_at DESC").First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// CountByClassification tallies every recorded verdict.
func (c *DBClient) CountByClassification() (map[string]int, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []struct {
		Classification string
		Count          int
	}
	err := c.DB.Model(&Analysis{}).
		Select("classification, COUNT(*) AS count").
		Group("classification").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting analyses: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Classification] = r.Count
	}
	return out, nil
}

// DeleteHistory removes every analysis and pick.
func (c *DBClient) DeleteHistory() error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Analysis{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&Pick{}).Error
	})
}
