// Package aggregate folds per-college faculty batches into one deduplicated,
// name-keyed collection.
package aggregate

import (
	"github.com/ppiankov/facultyscope/internal/dedup"
	"github.com/ppiankov/facultyscope/internal/model"
)

// Outcome describes what Add did with a record
type Outcome int

const (
	// Created means the name was new
	Created Outcome = iota
	// Merged means the record was merged into an existing identity
	Merged
	// Appended means the record was kept as a distinct namesake
	Appended
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Merged:
		return "merged"
	case Appended:
		return "appended"
	}
	return "unknown"
}

// FoldStats counts the outcomes of a fold
type FoldStats struct {
	Created  int
	Merged   int
	Appended int
	Skipped  int
}

func (s *FoldStats) add(o Outcome) {
	switch o {
	case Created:
		s.Created++
	case Merged:
		s.Merged++
	case Appended:
		s.Appended++
	}
}

// Index maps a name to the distinct people sharing it. Names keep
// first-seen order. An Index is not safe for concurrent use; Run serializes
// all writes through one goroutine.
type Index struct {
	names  []string
	byName map[string][]model.FacultyRecord
	merger dedup.Merger
}

// NewIndex creates an empty index
func NewIndex(merger dedup.Merger) *Index {
	return &Index{
		byName: make(map[string][]model.FacultyRecord),
		merger: merger,
	}
}

// Add folds one record into the index. The first entry under the same name
// that denotes the same person is replaced by the merged record; otherwise
// the record is added as a new person. A merge can widen the merged entry
// enough to match another namesake, so matching entries are folded into it
// until no two entries under the name denote the same person.
func (idx *Index) Add(rec model.FacultyRecord) Outcome {
	entries, ok := idx.byName[rec.Name]
	if !ok {
		idx.names = append(idx.names, rec.Name)
		idx.byName[rec.Name] = []model.FacultyRecord{rec}
		return Created
	}

	for i, existing := range entries {
		if dedup.IsSamePerson(rec, existing) {
			entries[i] = idx.merger.Merge(rec, existing)
			idx.byName[rec.Name] = idx.collapse(entries, i)
			return Merged
		}
	}

	idx.byName[rec.Name] = append(entries, rec)
	return Appended
}

// collapse folds every other entry matching entries[i] into it, repeating
// until the merged entry matches none of the rest
func (idx *Index) collapse(entries []model.FacultyRecord, i int) []model.FacultyRecord {
	for changed := true; changed; {
		changed = false
		for j := range entries {
			if j == i || !dedup.IsSamePerson(entries[i], entries[j]) {
				continue
			}
			entries[i] = idx.merger.Merge(entries[i], entries[j])
			entries = append(entries[:j], entries[j+1:]...)
			if j < i {
				i--
			}
			changed = true
			break
		}
	}
	return entries
}

// Fold adds a batch in order. Records without a name are skipped.
func (idx *Index) Fold(batch []model.FacultyRecord) FoldStats {
	var stats FoldStats
	for _, rec := range batch {
		if rec.Validate() != nil {
			stats.Skipped++
			continue
		}
		stats.add(idx.Add(rec))
	}
	return stats
}

// Lookup returns the people recorded under name
func (idx *Index) Lookup(name string) []model.FacultyRecord {
	return append([]model.FacultyRecord(nil), idx.byName[name]...)
}

// Records flattens the index, names in first-seen order
func (idx *Index) Records() []model.FacultyRecord {
	out := make([]model.FacultyRecord, 0, idx.Len())
	for _, name := range idx.names {
		out = append(out, idx.byName[name]...)
	}
	return out
}

// Len returns the number of distinct people
func (idx *Index) Len() int {
	n := 0
	for _, entries := range idx.byName {
		n += len(entries)
	}
	return n
}

// Names returns the number of distinct names
func (idx *Index) Names() int {
	return len(idx.names)
}
