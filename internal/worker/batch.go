package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/facultyscope/internal/model"
)

// PaperSearcher finds the papers authored by one faculty member
type PaperSearcher interface {
	SearchPapers(ctx context.Context, faculty model.FacultyRecord) ([]model.PaperRecord, error)
}

// SearchJob represents the paper search for one faculty member
type SearchJob struct {
	Faculty  model.FacultyRecord
	Searcher PaperSearcher
}

// Execute executes the search job
func (j *SearchJob) Execute(ctx context.Context) Result {
	papers, err := j.Searcher.SearchPapers(ctx, j.Faculty)
	if err != nil {
		return &SearchResult{Faculty: j.Faculty, Error: err}
	}
	return &SearchResult{Faculty: j.Faculty, Papers: papers}
}

// SearchResult represents the result of a search job
type SearchResult struct {
	Faculty model.FacultyRecord
	Papers  []model.PaperRecord
	Error   error
}

// GetError returns the error from the search result
func (r *SearchResult) GetError() error {
	return r.Error
}

// BatchProcessor searches papers for many faculty members concurrently
type BatchProcessor struct {
	searcher    PaperSearcher
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(searcher PaperSearcher, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		searcher:    searcher,
		concurrency: concurrency,
	}
}

// ProcessRecords runs one search per record. Results keep the input order.
func (b *BatchProcessor) ProcessRecords(ctx context.Context, records []model.FacultyRecord) []*SearchResult {
	if len(records) == 0 {
		return []*SearchResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for _, rec := range records {
		pool.Submit(&SearchJob{
			Faculty:  rec,
			Searcher: b.searcher,
		})
	}

	results := pool.Wait()

	searchResults := make([]*SearchResult, len(results))
	for i, result := range results {
		searchResults[i] = result.(*SearchResult)
	}

	return searchResults
}

// FilterByNames keeps the records whose name is in names; an empty names
// list keeps everything
func FilterByNames(records []model.FacultyRecord, names []string) []model.FacultyRecord {
	if len(names) == 0 {
		return records
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var out []model.FacultyRecord
	for _, rec := range records {
		if wanted[rec.Name] {
			out = append(out, rec)
		}
	}
	return out
}

// ReadNamesFromFile reads faculty names from a file (one per line)
func ReadNamesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var names []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			names = append(names, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return names, nil
}
