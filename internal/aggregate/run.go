package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/facultyscope/internal/model"
)

// Source produces the faculty records of one college
type Source interface {
	Name() string
	Collect(ctx context.Context) ([]model.FacultyRecord, error)
}

// Batch is the complete output of one source
type Batch struct {
	Index   int
	Source  string
	Records []model.FacultyRecord
	Err     error
	Elapsed time.Duration
}

// SourceReport summarizes one source
type SourceReport struct {
	Name    string
	Records int
	Err     error
	Elapsed time.Duration
}

// Summary describes a completed run
type Summary struct {
	Sources []SourceReport
	FoldStats
}

// Failed returns the number of sources that failed
func (s Summary) Failed() int {
	n := 0
	for _, src := range s.Sources {
		if src.Err != nil {
			n++
		}
	}
	return n
}

type runOptions struct {
	sourceOrder bool
	onBatch     func(Batch, FoldStats)
}

// RunOption configures Run
type RunOption func(*runOptions)

// InSourceOrder folds batches in the order the sources were given rather
// than the order they complete
func InSourceOrder(enabled bool) RunOption {
	return func(o *runOptions) { o.sourceOrder = enabled }
}

// OnBatch registers a callback invoked by the folding goroutine after each
// batch is handled
func OnBatch(fn func(Batch, FoldStats)) RunOption {
	return func(o *runOptions) { o.onBatch = fn }
}

// Run collects from every source concurrently and folds each finished batch
// into idx. Only the calling goroutine touches idx. A failed or panicking
// source is logged and its output discarded; the others still complete.
func Run(ctx context.Context, sources []Source, idx *Index, logger zerolog.Logger, opts ...RunOption) Summary {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	batches := make(chan Batch, len(sources))
	for i, src := range sources {
		go collect(ctx, i, src, batches)
	}

	summary := Summary{Sources: make([]SourceReport, len(sources))}
	pending := make(map[int]Batch)
	next := 0

	handle := func(b Batch) {
		summary.Sources[b.Index] = SourceReport{
			Name:    b.Source,
			Records: len(b.Records),
			Err:     b.Err,
			Elapsed: b.Elapsed,
		}

		var stats FoldStats
		if b.Err != nil {
			logger.Error().Err(b.Err).Str("college", b.Source).Msg("college collection failed")
		} else {
			stats = idx.Fold(b.Records)
			summary.Created += stats.Created
			summary.Merged += stats.Merged
			summary.Appended += stats.Appended
			summary.Skipped += stats.Skipped
			logger.Info().
				Str("college", b.Source).
				Int("records", len(b.Records)).
				Int("merged", stats.Merged).
				Int("namesakes", stats.Appended).
				Dur("elapsed", b.Elapsed).
				Msg("college folded")
			if stats.Skipped > 0 {
				logger.Warn().Str("college", b.Source).Int("skipped", stats.Skipped).Msg("records without a name skipped")
			}
		}
		if o.onBatch != nil {
			o.onBatch(b, stats)
		}
	}

	for range sources {
		b := <-batches
		if !o.sourceOrder {
			handle(b)
			continue
		}
		pending[b.Index] = b
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			handle(ready)
			next++
		}
	}

	return summary
}

func collect(ctx context.Context, index int, src Source, out chan<- Batch) {
	start := time.Now()
	b := Batch{Index: index}
	defer func() {
		if r := recover(); r != nil {
			b.Records = nil
			b.Err = fmt.Errorf("collector panic: %v", r)
		}
		b.Elapsed = time.Since(start)
		out <- b
	}()

	b.Source = src.Name()
	records, err := src.Collect(ctx)
	if err != nil {
		b.Err = fmt.Errorf("collect %s: %w", src.Name(), err)
		return
	}
	b.Records = records
}
