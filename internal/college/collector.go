// Package college collects faculty records from college directory sites.
// Each college is described by a model.CollegeConfig; the kind selects how the
// member directory is listed and the field references select where each
// record attribute is read from.
package college

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ppiankov/facultyscope/internal/fetch"
	"github.com/ppiankov/facultyscope/internal/model"
	"github.com/ppiankov/facultyscope/internal/observability"
)

const defaultMemberFetches = 6

// Fetcher performs HTTP requests with retries
type Fetcher interface {
	FetchWithRetry(ctx context.Context, rawURL string) (*fetch.Result, error)
	DoWithRetry(ctx context.Context, req fetch.Request) (*fetch.Result, error)
}

// Lister returns the member directory of a college
type Lister interface {
	List(ctx context.Context) ([]Entry, error)
}

// ListerFactory builds the lister of one college kind. keys are the listing
// entry keys the field configuration reads.
type ListerFactory func(cfg model.CollegeConfig, f Fetcher, keys []string) (Lister, error)

// Registry maps college kinds to listers
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ListerFactory
}

// NewRegistry creates a registry with the built-in kinds
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]ListerFactory)}
	r.Register(model.CollegeKindWP3, newWP3Lister)
	r.Register(model.CollegeKindListPage, newListPageLister)
	r.Register(model.CollegeKindAZIndex, newAZIndexLister)
	return r
}

// Register adds or replaces the lister factory of a kind
func (r *Registry) Register(kind string, factory ListerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Kinds returns the registered kinds, sorted
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Option configures a Collector
type Option func(*Collector)

// WithMemberFetches bounds the concurrent member page fetches
func WithMemberFetches(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.memberFetches = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Collector) {
		c.logger = l
	}
}

// WithMetrics records collection metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Collector) {
		c.metrics = m
	}
}

// Collector harvests the faculty records of one college
type Collector struct {
	cfg           model.CollegeConfig
	specs         []fieldSpec
	lister        Lister
	fetcher       Fetcher
	fetchPages    bool
	pageKey       string
	memberFetches int
	logger        zerolog.Logger
	metrics       *observability.Metrics
}

// New builds the collector of cfg using the registry's lister for its kind
func (r *Registry) New(cfg model.CollegeConfig, f Fetcher, opts ...Option) (*Collector, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("college %s: unknown kind %q", cfg.Code, cfg.Kind)
	}

	specs, err := parseFields(cfg.Fields)
	if err != nil {
		return nil, fmt.Errorf("college %s: %w", cfg.Code, err)
	}
	pageKey := cfg.PageKey
	if pageKey == "" {
		pageKey = "url"
	}
	lister, err := factory(cfg, f, entryKeys(specs, pageKey))
	if err != nil {
		return nil, err
	}

	c := &Collector{
		cfg:           cfg,
		specs:         specs,
		lister:        lister,
		fetcher:       f,
		fetchPages:    cfg.FetchPages && needsPage(specs),
		pageKey:       pageKey,
		memberFetches: defaultMemberFetches,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = observability.WithCollege(c.logger, cfg.Code)
	return c, nil
}

// New builds a collector with the built-in kinds
func New(cfg model.CollegeConfig, f Fetcher, opts ...Option) (*Collector, error) {
	return NewRegistry().New(cfg, f, opts...)
}

// Name returns the college code
func (c *Collector) Name() string {
	return c.cfg.Code
}

// Collect lists the college directory and builds one record per member.
// Members without a name are dropped. A member page that cannot be fetched
// leaves a record built from the listing alone.
func (c *Collector) Collect(ctx context.Context) ([]model.FacultyRecord, error) {
	entries, err := c.lister.List(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Int("entries", len(entries)).Msg("directory listed")

	pages := make([]*Profile, len(entries))
	if c.fetchPages {
		if err := c.fetchProfiles(ctx, entries, pages); err != nil {
			return nil, err
		}
	}

	records := make([]model.FacultyRecord, 0, len(entries))
	for i, entry := range entries {
		rec := buildRecord(c.specs, c.cfg, entry, pages[i])
		if err := rec.Validate(); err != nil {
			c.logger.Debug().Err(err).Str("url", entry[c.pageKey]).Msg("skipping entry")
			continue
		}
		records = append(records, rec)
	}

	c.metrics.RecordCollected(c.cfg.Code, len(records))
	return records, nil
}

// fetchProfiles fetches member pages with at most memberFetches in flight
func (c *Collector) fetchProfiles(ctx context.Context, entries []Entry, pages []*Profile) error {
	sem := make(chan struct{}, c.memberFetches)
	var wg sync.WaitGroup

	for i, entry := range entries {
		pageURL := cleanWebsite(entry[c.pageKey], c.cfg.BaseURL)
		if pageURL == "" {
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		}

		wg.Add(1)
		go func(i int, pageURL string) {
			defer wg.Done()
			defer func() { <-sem }()

			page, err := c.fetchProfile(ctx, pageURL)
			if err != nil {
				c.logger.Warn().Err(err).Str("url", pageURL).Msg("member page unavailable, using listing only")
				return
			}
			pages[i] = page
		}(i, pageURL)
	}

	wg.Wait()
	return ctx.Err()
}

func (c *Collector) fetchProfile(ctx context.Context, pageURL string) (*Profile, error) {
	result, err := c.fetcher.FetchWithRetry(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return ParseProfile(result.Body)
}
