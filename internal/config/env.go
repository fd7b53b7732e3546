// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/himanishpuri/TrueLossless/pkg/logger"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/ranking"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/spectral"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/storage"
)

type Env struct {
	DurationToleranceSecs int     `mapstructure:"DURATION_TOLERANCE_SECS"`
	ExcludeKeywords       string  `mapstructure:"EXCLUDE_KEYWORDS"`
	LogLevel              string  `mapstructure:"LOG_LEVEL"`
	DBPath                string  `mapstructure:"TRUELOSSLESS_DB_PATH"`
	TempDir               string  `mapstructure:"TRUELOSSLESS_TEMP_DIR"`
	AnalysisWindowSecs    float64 `mapstructure:"ANALYSIS_WINDOW_SECS"`
	PreviewDurationSecs   float64 `mapstructure:"PREVIEW_DURATION_SECS"`
	ScanWorkers           int     `mapstructure:"SCAN_WORKERS"`
	HTTPPort              string  `mapstructure:"HTTP_PORT"`
}

var defaults = map[string]any{
	"DURATION_TOLERANCE_SECS": ranking.DefaultDurationTolerance,
	"EXCLUDE_KEYWORDS":        strings.Join(ranking.DefaultExcludeKeywords, ","),
	"LOG_LEVEL":               "INFO",
	"TRUELOSSLESS_DB_PATH":    storage.DefaultDBFile,
	"TRUELOSSLESS_TEMP_DIR":   os.TempDir(),
	"ANALYSIS_WINDOW_SECS":    spectral.DefaultWindowSeconds,
	"PREVIEW_DURATION_SECS":   spectral.DefaultPreviewSeconds,
	"SCAN_WORKERS":            4,
	"HTTP_PORT":               "8080",
}

// Load reads settings in order of precedence: process environment, then
// envFile (skipped when empty or missing), then built-in defaults.
func Load(envFile string) (*Env, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading %s: %w", envFile, err)
			}
		}
	}

	env := &Env{}
	if err := v.Unmarshal(env); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return env, nil
}

func (e *Env) validate() error {
	if e.DurationToleranceSecs < 0 {
		return fmt.Errorf("DURATION_TOLERANCE_SECS must not be negative, got %d", e.DurationToleranceSecs)
	}
	if e.ScanWorkers < 1 {
		return fmt.Errorf("SCAN_WORKERS must be at least 1, got %d", e.ScanWorkers)
	}
	if e.AnalysisWindowSecs <= 0 {
		return fmt.Errorf("ANALYSIS_WINDOW_SECS must be positive, got %v", e.AnalysisWindowSecs)
	}
	if e.PreviewDurationSecs <= 0 {
		return fmt.Errorf("PREVIEW_DURATION_SECS must be positive, got %v", e.PreviewDurationSecs)
	}
	if _, ok := logger.ParseLevel(e.LogLevel); !ok {
		return fmt.Errorf("LOG_LEVEL %q is not one of DEBUG, INFO, WARN, ERROR", e.LogLevel)
	}
	return nil
}

// Keywords splits EXCLUDE_KEYWORDS on commas and trims each entry. Blank
// entries are kept so the ranker can reject them; an entirely blank value
// means no keywords.
func (e *Env) Keywords() []string {
	if strings.TrimSpace(e.ExcludeKeywords) == "" {
		return nil
	}
	parts := strings.Split(e.ExcludeKeywords, ",")
	for i, kw := range parts {
		parts[i] = strings.TrimSpace(kw)
	}
	return parts
}

func (e *Env) Level() logger.LogLevel {
	lvl, _ := logger.ParseLevel(e.LogLevel)
	return lvl
}

// Ranker builds a ranker from the tolerance and keyword settings.
func (e *Env) Ranker(log ranking.Logger) (*ranking.Ranker, error) {
	return ranking.NewRanker(
		ranking.WithDurationTolerance(e.DurationToleranceSecs),
		ranking.WithExcludeKeywords(e.Keywords()),
		ranking.WithLogger(log),
	)
}
