package truelossless

import (
	"os"

	"github.com/himanishpuri/TrueLossless/pkg/truelossless/ranking"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/spectral"
)

type Config struct {
	DBPath          string
	TempDir         string
	AnalysisWindow  float64 // seconds decoded per verdict
	PreviewDuration float64 // seconds per preview clip
	Logger          Logger
	Storage         Storage
	Ranker          *ranking.Ranker
	NoHistory       bool
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithAnalysisWindow(seconds float64) Option {
	return func(c *Config) {
		c.AnalysisWindow = seconds
	}
}

func WithPreviewDuration(seconds float64) Option {
	return func(c *Config) {
		c.PreviewDuration = seconds
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithRanker overrides the ranker built from defaults.
func WithRanker(r *ranking.Ranker) Option {
	return func(c *Config) {
		c.Ranker = r
	}
}

// WithoutHistory keeps verdicts and picks out of the database entirely.
func WithoutHistory() Option {
	return func(c *Config) {
		c.NoHistory = true
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:          "truelossless.sqlite3",
		TempDir:         os.TempDir(),
		AnalysisWindow:  spectral.DefaultWindowSeconds,
		PreviewDuration: spectral.DefaultPreviewSeconds,
	}
}
