package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/facultyscope/internal/model"
)

// mockSearcher implements PaperSearcher
type mockSearcher struct {
	shouldError bool
}

func (m *mockSearcher) SearchPapers(ctx context.Context, faculty model.FacultyRecord) ([]model.PaperRecord, error) {
	time.Sleep(10 * time.Millisecond) // Simulate work
	if m.shouldError {
		return nil, errors.New("search error")
	}
	return []model.PaperRecord{{PersonID: faculty.PersonID, AuthorCN: faculty.Name}}, nil
}

func faculty(names ...string) []model.FacultyRecord {
	out := make([]model.FacultyRecord, len(names))
	for i, n := range names {
		out[i] = model.FacultyRecord{PersonID: "70000" + string(rune('0'+i)), Name: n}
	}
	return out
}

func TestBatchProcessor_ProcessRecords(t *testing.T) {
	processor := NewBatchProcessor(&mockSearcher{}, 2)

	results := processor.ProcessRecords(context.Background(), faculty("张三", "李四", "王五"))

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, want := range []string{"张三", "李四", "王五"} {
		res := results[i]
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Faculty.Name, res.Error)
		}
		if res.Faculty.Name != want {
			t.Errorf("result %d is %s, want %s", i, res.Faculty.Name, want)
		}
		if len(res.Papers) != 1 || res.Papers[0].AuthorCN != want {
			t.Errorf("unexpected papers for %s: %+v", want, res.Papers)
		}
	}
}

func TestBatchProcessor_ProcessRecords_Error(t *testing.T) {
	processor := NewBatchProcessor(&mockSearcher{shouldError: true}, 2)

	results := processor.ProcessRecords(context.Background(), faculty("张三"))

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Papers != nil {
		t.Error("expected no papers on error")
	}
}

func TestBatchProcessor_ProcessRecords_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockSearcher{}, 2)

	results := processor.ProcessRecords(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestSearchResult_GetError(t *testing.T) {
	r1 := &SearchResult{}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("search failed")
	r2 := &SearchResult{Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}

func TestFilterByNames(t *testing.T) {
	records := faculty("张三", "李四", "王五")

	if got := FilterByNames(records, nil); len(got) != 3 {
		t.Errorf("empty filter should keep all records, got %d", len(got))
	}

	got := FilterByNames(records, []string{"王五", "赵六"})
	if len(got) != 1 || got[0].Name != "王五" {
		t.Errorf("unexpected filter result: %+v", got)
	}
}

func TestReadNamesFromFile(t *testing.T) {
	content := "张三\n# comment\n李四\n   \n张三\n王五   "

	path := filepath.Join(t.TempDir(), "names.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	names, err := ReadNamesFromFile(path)
	if err != nil {
		t.Fatalf("ReadNamesFromFile failed: %v", err)
	}

	expected := []string{"张三", "李四", "王五"}
	if len(names) != len(expected) {
		t.Fatalf("expected %d names, got %d", len(expected), len(names))
	}
	for i, name := range names {
		if name != expected[i] {
			t.Errorf("expected %s at index %d, got %s", expected[i], i, name)
		}
	}
}

func TestReadNamesFromFile_NonExistent(t *testing.T) {
	if _, err := ReadNamesFromFile("non_existent_file.txt"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}
