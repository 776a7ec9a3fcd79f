// Package output reads and writes the newline-delimited JSON files consumed
// downstream. The encoding matches Python's json.dump(obj, f,
// ensure_ascii=False) followed by a newline, byte for byte.
package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ppiankov/facultyscope/internal/model"
)

// Record is anything serializable as ordered key/value pairs
type Record interface {
	Pairs() [][2]string
}

// Writer appends records to a JSONL stream. It is safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	w   *bufio.Writer
	c   io.Closer
	n   int
	buf bytes.Buffer
}

// NewWriter wraps w
func NewWriter(w io.Writer) *Writer {
	out := &Writer{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		out.c = c
	}
	return out
}

// Create creates (or truncates) the file at path, creating parent
// directories as needed
func Create(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return NewWriter(f), nil
}

// Write appends one record as a single line
func (w *Writer) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Reset()
	AppendObject(&w.buf, rec.Pairs())
	w.buf.WriteByte('\n')
	if _, err := w.w.Write(w.buf.Bytes()); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.n++
	return nil
}

// Count returns the number of records written
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Flush writes buffered data to the underlying writer
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Flush()
}

// Close flushes and closes the underlying writer when it is closable
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if w.c != nil {
		return w.c.Close()
	}
	return nil
}

// WriteAll writes every record to path
func WriteAll[R Record](path string, records []R) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}

// AppendObject encodes pairs as a JSON object using ", " and ": " separators
func AppendObject(buf *bytes.Buffer, pairs [][2]string) {
	buf.WriteByte('{')
	for i, kv := range pairs {
		if i > 0 {
			buf.WriteString(", ")
		}
		appendString(buf, kv[0])
		buf.WriteString(": ")
		appendString(buf, kv[1])
	}
	buf.WriteByte('}')
}

// appendString quotes s like Python with ensure_ascii=False: only the quote,
// the backslash and control characters are escaped
func appendString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				buf.WriteString("\uFFFD")
			} else {
				buf.WriteString(s[i : i+size])
			}
			i += size
			continue
		}
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			if c < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, c)
			} else {
				buf.WriteByte(c)
			}
		}
		i++
	}
	buf.WriteByte('"')
}

// ReadFaculty reads faculty records from a JSONL file, skipping blank lines
func ReadFaculty(path string) ([]model.FacultyRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open faculty file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return DecodeFaculty(f)
}

// DecodeFaculty reads faculty records from r, skipping blank lines
func DecodeFaculty(r io.Reader) ([]model.FacultyRecord, error) {
	var records []model.FacultyRecord

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec model.FacultyRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("decode line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan faculty file: %w", err)
	}
	return records, nil
}
