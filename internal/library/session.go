package library

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/facultyscope/internal/fetch"
	"github.com/ppiankov/facultyscope/internal/model"
	"github.com/ppiankov/facultyscope/internal/observability"
	"github.com/ppiankov/facultyscope/internal/worker"
)

const (
	defaultLimit        = 10
	defaultMaxAttempts  = 3
	defaultScoreWorkers = 4
	retryPause          = time.Second
)

// sleepFunc waits for d or until ctx is done
var sleepFunc = func(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// jitterFunc returns a random pause in [0, limit)
var jitterFunc = func(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(limit)))
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithToken starts the session with an existing guest token
func WithToken(token string) SessionOption {
	return func(s *Session) { s.token = token }
}

// WithScoreWorkers sets how many documents are scored concurrently
func WithScoreWorkers(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.scoreWorkers = n
		}
	}
}

// WithLogger sets the session logger
func WithLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithMetrics records search and scoring metrics
func WithMetrics(m *observability.Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// Session searches the library on behalf of faculty members, reusing one
// guest token across searches. It is safe for concurrent use.
type Session struct {
	client       *Client
	scorer       model.RelevanceScorer
	limit        int
	maxAttempts  int
	jitter       time.Duration
	scoreWorkers int
	logger       zerolog.Logger
	metrics      *observability.Metrics

	mu    sync.Mutex
	token string
}

// NewSession creates a session. The guest token is obtained on first use
// unless WithToken supplies one.
func NewSession(client *Client, scorer model.RelevanceScorer, cfg model.LibraryConfig, opts ...SessionOption) *Session {
	s := &Session{
		client:       client,
		scorer:       scorer,
		limit:        cfg.Limit,
		maxAttempts:  cfg.MaxAttempts,
		jitter:       cfg.RetryJitter,
		scoreWorkers: defaultScoreWorkers,
		logger:       zerolog.Nop(),
	}
	if s.limit <= 0 {
		s.limit = defaultLimit
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns the session token, obtaining one if needed
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}
	token, err := s.client.GuestJWT(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	return token, nil
}

// invalidate drops the token if it is still the one that was rejected
func (s *Session) invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == token {
		s.token = ""
	}
}

// SearchArticles returns the articles found for the member's name, unscored.
// Each attempt is preceded by a random pause of up to RetryJitter; a failed
// attempt is followed by a one second pause. A rejected token is replaced before the next attempt.
func (s *Session) SearchArticles(ctx context.Context, faculty model.FacultyRecord) ([]model.Document, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		sleepFunc(ctx, jitterFunc(s.jitter))
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		docs, err := s.search(ctx, faculty.Name)
		if err == nil {
			s.metrics.RecordSearch("ok")
			return docs, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		s.metrics.RecordSearch("error")
		observability.WithFaculty(s.logger, faculty).Debug().
			Err(err).
			Int("attempt", attempt).
			Msg("library search failed")
		sleepFunc(ctx, retryPause)
	}
	return nil, fmt.Errorf("search papers of %s after %d attempts: %w", faculty.Name, s.maxAttempts, lastErr)
}

func (s *Session) search(ctx context.Context, name string) ([]model.Document, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}

	pnxs, err := s.client.PNXs(ctx, token, name, s.limit)
	if err != nil {
		var status *fetch.StatusError
		if errors.As(err, &status) && (status.Code == http.StatusUnauthorized || status.Code == http.StatusForbidden) {
			s.invalidate(token)
		}
		return nil, err
	}

	docs := make([]model.Document, 0, len(pnxs))
	for _, p := range pnxs {
		if doc := FromPNX(p); doc.IsArticle() {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// FilterArticles keeps the documents judged to be written by the member.
// Documents are scored concurrently; input order is preserved.
func (s *Session) FilterArticles(ctx context.Context, faculty model.FacultyRecord, docs []model.Document) ([]model.Document, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	pool := worker.NewPoolWithContext(ctx, s.scoreWorkers)
	pool.Start()
	for i, doc := range docs {
		pool.Submit(&scoreJob{index: i, doc: doc, faculty: faculty, scorer: s.scorer})
	}
	results := pool.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	accepted := make([]bool, len(docs))
	for _, r := range results {
		res := r.(*scoreResult)
		if res.err != nil {
			return nil, fmt.Errorf("score document: %w", res.err)
		}
		accepted[res.index] = res.accepted
		s.metrics.RecordScored(res.accepted)
	}

	var kept []model.Document
	for i, doc := range docs {
		if accepted[i] {
			kept = append(kept, doc)
		}
	}
	return kept, nil
}

// SearchPapers searches, filters and converts the member's articles to
// paper records
func (s *Session) SearchPapers(ctx context.Context, faculty model.FacultyRecord) ([]model.PaperRecord, error) {
	docs, err := s.SearchArticles(ctx, faculty)
	if err != nil {
		return nil, err
	}
	kept, err := s.FilterArticles(ctx, faculty, docs)
	if err != nil {
		return nil, err
	}

	papers := make([]model.PaperRecord, 0, len(kept))
	for _, doc := range kept {
		papers = append(papers, model.NewPaperRecord(faculty, doc))
	}
	observability.WithFaculty(s.logger, faculty).Debug().
		Int("candidates", len(docs)).
		Int("accepted", len(papers)).
		Msg("papers searched")
	return papers, nil
}

type scoreJob struct {
	index   int
	doc     model.Document
	faculty model.FacultyRecord
	scorer  model.RelevanceScorer
}

func (j *scoreJob) Execute(ctx context.Context) worker.Result {
	ok, err := j.doc.IsByTeacher(ctx, j.faculty, j.scorer)
	return &scoreResult{index: j.index, accepted: ok, err: err}
}

type scoreResult struct {
	index    int
	accepted bool
	err      error
}

func (r *scoreResult) GetError() error {
	return r.err
}
