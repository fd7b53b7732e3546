// Package ranking scores peer search hits against a reference track and
// picks the most trustworthy candidates.
package ranking

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/himanishpuri/TrueLossless/pkg/logger"
)

// ErrInvalidConfiguration is returned by NewRanker for unusable options.
var ErrInvalidConfiguration = errors.New("invalid ranker configuration")

// DefaultDurationTolerance is the near-perfect duration window in seconds.
const DefaultDurationTolerance = 5

// DefaultExcludeKeywords names versions that are almost never the wanted
// studio recording.
var DefaultExcludeKeywords = []string{
	"live",
	"remix",
	"acoustic",
	"karaoke",
	"instrumental",
	"cover",
	"demo",
	"radio edit",
	"tribute",
}

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
}

// Ranker is immutable after construction and safe for concurrent use.
type Ranker struct {
	tolerance int
	keywords  []string
	log       Logger
}

type Option func(*rankerConfig)

type rankerConfig struct {
	tolerance int
	keywords  []string
	log       Logger
}

func WithDurationTolerance(secs int) Option {
	return func(c *rankerConfig) {
		c.tolerance = secs
	}
}

// WithExcludeKeywords replaces the default keyword list. Keywords are
// lowercased and trimmed.
func WithExcludeKeywords(keywords []string) Option {
	return func(c *rankerConfig) {
		c.keywords = keywords
	}
}

func WithLogger(log Logger) Option {
	return func(c *rankerConfig) {
		c.log = log
	}
}

func NewRanker(opts ...Option) (*Ranker, error) {
	cfg := &rankerConfig{
		tolerance: DefaultDurationTolerance,
		keywords:  DefaultExcludeKeywords,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.tolerance < 0 {
		return nil, fmt.Errorf("%w: negative duration tolerance %d", ErrInvalidConfiguration, cfg.tolerance)
	}

	keywords := make([]string, 0, len(cfg.keywords))
	for i, kw := range cfg.keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return nil, fmt.Errorf("%w: exclude keyword %d is blank", ErrInvalidConfiguration, i)
		}
		keywords = append(keywords, kw)
	}

	if cfg.log == nil {
		cfg.log = logger.GetLogger()
	}

	return &Ranker{
		tolerance: cfg.tolerance,
		keywords:  keywords,
		log:       cfg.log,
	}, nil
}

func (r *Ranker) DurationTolerance() int {
	return r.tolerance
}

func (r *Ranker) ExcludeKeywords() []string {
	out := make([]string, len(r.keywords))
	copy(out, r.keywords)
	return out
}

// Rank scores every hit, drops excluded ones, sorts by descending score and
// keeps only the best hit per case-insensitive basename. relaxedLimit, when
// set, lets hits more than 30s off the reference survive with zero duration
// points as long as they stay within the limit.
func (r *Ranker) Rank(hits []*SearchHit, ref ReferenceTrack, relaxedLimit *int) []*SearchHit {
	scored := make([]*SearchHit, 0, len(hits))
	for _, hit := range hits {
		if hit == nil {
			continue
		}
		score, ok := r.score(hit, ref, relaxedLimit)
		if !ok {
			continue
		}
		hit.Score = score
		scored = append(scored, hit)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	seen := make(map[string]struct{}, len(scored))
	ranked := make([]*SearchHit, 0, len(scored))
	for _, hit := range scored {
		key := strings.ToLower(hit.Basename())
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ranked = append(ranked, hit)
	}

	r.log.Infof("Scored %d results, %d after dedup (from %d total)", len(scored), len(ranked), len(hits))
	return ranked
}

// RankOptions tunes RankPreferFLAC.
type RankOptions struct {
	// RelaxedLimit is passed through to Rank.
	RelaxedLimit *int

	// AllFormats allows a second pass over every audio format when no FLAC
	// hit survives. Non-audio files never qualify.
	AllFormats bool

	// ArtistCatalog marks hits that came from an artist-only search. Those
	// are first narrowed to files naming a Latin keyword of the title.
	ArtistCatalog bool
}

// RankPreferFLAC ranks the FLAC hits first. Only with opts.AllFormats does
// it fall back to the other audio formats, and fallback reports whether the
// returned list came from that second pass.
func (r *Ranker) RankPreferFLAC(hits []*SearchHit, ref ReferenceTrack, opts RankOptions) (ranked []*SearchHit, fallback bool) {
	ranked = r.rankPass(FilterExtensions(hits, flacExtensions), ref, opts)
	if len(ranked) > 0 || !opts.AllFormats {
		return ranked, false
	}
	ranked = r.rankPass(FilterExtensions(hits, audioExtensions), ref, opts)
	return ranked, len(ranked) > 0
}

func (r *Ranker) rankPass(hits []*SearchHit, ref ReferenceTrack, opts RankOptions) []*SearchHit {
	if opts.ArtistCatalog {
		if kw := LatinKeywords(CleanSearchTitle(ref.Title)); len(kw) > 0 {
			matched := FilterByKeywords(hits, kw)
			r.log.Debugf("Keyword filter %v kept %d of %d hits", kw, len(matched), len(hits))
			if ranked := r.Rank(matched, ref, opts.RelaxedLimit); len(ranked) > 0 {
				return ranked
			}
		}
	}
	return r.Rank(hits, ref, opts.RelaxedLimit)
}

// score returns the total for one hit, or ok=false when the hit is vetoed.
func (r *Ranker) score(hit *SearchHit, ref ReferenceTrack, relaxedLimit *int) (float64, bool) {
	base := strings.ToLower(hit.Basename())
	title := strings.ToLower(ref.Title)
	for _, kw := range r.keywords {
		if strings.Contains(base, kw) && !strings.Contains(title, kw) {
			r.log.Debugf("Excluded (keyword '%s'): %s", kw, hit.Basename())
			return 0, false
		}
	}

	duration, ok := durationScore(hit.Length, ref.DurationSecs, r.tolerance, relaxedLimit)
	if !ok {
		r.log.Debugf("Excluded (duration %ds vs %ds): %s", *hit.Length, ref.DurationSecs, hit.Basename())
		return 0, false
	}

	total := duration +
		qualityScore(hit.BitDepth, hit.SampleRate) +
		sourceScore(hit.HasFreeSlot, hit.UploadSpeed, hit.QueueLength) +
		relevanceScore(hit.Filename, ref)

	return round2(total), true
}
