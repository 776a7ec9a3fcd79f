// Package pipeline wires the harvest stages together: college collection and
// identity folding, then library search and authorship scoring.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/facultyscope/internal/aggregate"
	"github.com/ppiankov/facultyscope/internal/cache"
	"github.com/ppiankov/facultyscope/internal/college"
	"github.com/ppiankov/facultyscope/internal/dedup"
	"github.com/ppiankov/facultyscope/internal/fetch"
	"github.com/ppiankov/facultyscope/internal/library"
	"github.com/ppiankov/facultyscope/internal/model"
	"github.com/ppiankov/facultyscope/internal/observability"
	"github.com/ppiankov/facultyscope/internal/score"
	"github.com/ppiankov/facultyscope/internal/util"
	"github.com/ppiankov/facultyscope/internal/worker"
)

// ErrAllCollegesFailed is returned when no college produced records
var ErrAllCollegesFailed = errors.New("every college failed")

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics records pipeline metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithRegistry replaces the college kind registry
func WithRegistry(r *college.Registry) Option {
	return func(p *Pipeline) { p.registry = r }
}

// Pipeline orchestrates a complete harvest
type Pipeline struct {
	config   *model.Config
	fetcher  *fetch.Fetcher
	cache    cache.Cache
	registry *college.Registry
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// New creates a pipeline for cfg
func New(cfg *model.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		config:   cfg,
		registry: college.NewRegistry(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if cfg.Cache.Enabled {
		p.cache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	fetchOpts := []fetch.Option{
		fetch.WithLimiter(worker.NewLimiterFromConfig(cfg.RateLimiting)),
		fetch.WithMetrics(p.metrics),
		fetch.WithLogger(p.logger),
	}
	if cfg.HTTP.RespectRobots {
		fetchOpts = append(fetchOpts, fetch.WithRobots(util.NewRobotsCheckerFromConfig(cfg.HTTP)))
	}
	if p.cache != nil {
		fetchOpts = append(fetchOpts, fetch.WithCache(p.cache))
	}
	p.fetcher = fetch.NewFetcher(cfg.HTTP, fetchOpts...)

	return p
}

// Merger returns the record merger, recognizing the homepages of every
// configured college
func (p *Pipeline) Merger() dedup.Merger {
	markers := make([]string, 0, len(p.config.Colleges)+len(p.config.Dedup.HomepageMarkers))
	for _, c := range p.config.Colleges {
		if m := dedup.HomepageMarker(c.BaseURL); m != "" {
			markers = append(markers, m)
		}
	}
	markers = append(markers, p.config.Dedup.HomepageMarkers...)
	return dedup.NewMerger(markers...)
}

// Sources builds one collector per configured college
func (p *Pipeline) Sources() ([]aggregate.Source, error) {
	sources := make([]aggregate.Source, 0, len(p.config.Colleges))
	for _, cfg := range p.config.Colleges {
		c, err := p.registry.New(cfg, p.fetcher,
			college.WithMemberFetches(p.config.Concurrency.MemberFetches),
			college.WithLogger(p.logger),
			college.WithMetrics(p.metrics),
		)
		if err != nil {
			return nil, err
		}
		sources = append(sources, c)
	}
	return sources, nil
}

// FacultyResult is the outcome of the faculty stage
type FacultyResult struct {
	Records []model.FacultyRecord
	Summary aggregate.Summary
	Elapsed time.Duration
}

// HarvestFaculty collects every college concurrently and folds the batches
// into one deduplicated record list. Failed colleges are logged and skipped;
// the stage fails only when every college fails.
func (p *Pipeline) HarvestFaculty(ctx context.Context) (*FacultyResult, error) {
	start := time.Now()

	sources, err := p.Sources()
	if err != nil {
		return nil, fmt.Errorf("build collectors: %w", err)
	}

	idx := aggregate.NewIndex(p.Merger())
	summary := aggregate.Run(ctx, sources, idx, p.logger,
		aggregate.InSourceOrder(p.config.Dedup.SourceOrder),
		aggregate.OnBatch(func(b aggregate.Batch, stats aggregate.FoldStats) {
			if b.Err != nil {
				p.metrics.RecordCollegeFailed()
				return
			}
			p.metrics.RecordFold(stats.Merged, stats.Appended)
		}),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(sources) > 0 && summary.Failed() == len(sources) {
		return nil, ErrAllCollegesFailed
	}

	result := &FacultyResult{
		Records: idx.Records(),
		Summary: summary,
		Elapsed: time.Since(start),
	}
	p.logger.Info().
		Int("colleges", len(sources)).
		Int("failed", summary.Failed()).
		Int("faculty", len(result.Records)).
		Int("merged", summary.Merged).
		Int("namesakes", summary.Appended).
		Dur("elapsed", result.Elapsed).
		Msg("faculty harvested")
	return result, nil
}

// NewSearcher builds the library session used by the paper stage
func (p *Pipeline) NewSearcher() (*library.Session, error) {
	scoreCache := p.cache
	if scoreCache == nil {
		scoreCache = cache.NewMemoryCache(p.config.Cache.MemoryTTL, 10*time.Minute)
	}
	scorer, err := score.NewScorer(p.config.Relevance, p.config.HTTP, scoreCache)
	if err != nil {
		return nil, err
	}

	client := library.NewClient(p.config.Library, p.fetcher)
	return library.NewSession(client, scorer, p.config.Library,
		library.WithScoreWorkers(p.config.Concurrency.ScoreWorkers),
		library.WithLogger(p.logger),
		library.WithMetrics(p.metrics),
	), nil
}

// PapersResult is the outcome of the paper stage
type PapersResult struct {
	Papers   []model.PaperRecord
	Searched int
	Failed   int
	Elapsed  time.Duration
}

// HarvestPapers searches the papers of every faculty member. A failed search
// is logged and contributes no papers. Papers keep the faculty order.
func (p *Pipeline) HarvestPapers(ctx context.Context, records []model.FacultyRecord, searcher worker.PaperSearcher) (*PapersResult, error) {
	start := time.Now()

	processor := worker.NewBatchProcessor(searcher, p.config.Concurrency.PaperSearches)
	results := processor.ProcessRecords(ctx, records)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &PapersResult{Searched: len(results)}
	for _, r := range results {
		if r.Error != nil {
			out.Failed++
			observability.WithFaculty(p.logger, r.Faculty).Warn().Err(r.Error).Msg("paper search failed")
			continue
		}
		out.Papers = append(out.Papers, r.Papers...)
	}
	out.Elapsed = time.Since(start)

	p.logger.Info().
		Int("faculty", out.Searched).
		Int("failed", out.Failed).
		Int("papers", len(out.Papers)).
		Dur("elapsed", out.Elapsed).
		Msg("papers harvested")
	return out, nil
}
