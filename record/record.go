package record

import (
	"context"
	"sync"

	"github.com/kbukum/recordbind/pipeline"
)

// Record is one row of fields and the source line it started on.
// Records are not modified after a source returns them.
type Record struct {
	Line   int64
	Fields []string
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.Fields) }

// Field returns the field at col, or "" when the record is shorter.
func (r Record) Field(col int) string {
	if col < 0 || col >= len(r.Fields) {
		return ""
	}
	return r.Fields[col]
}

// LineOf reports a record's source line. Use it as a pipeline Stage line func.
func LineOf(r Record) int64 { return r.Line }

// Source yields records sequentially. Next returns (Record{}, false, nil) once
// the input is exhausted.
type Source interface {
	pipeline.Iterator[Record]
}

// Sink accepts rendered rows.
type Sink interface {
	Write(fields []string) error
	Flush() error
}

// FromRows returns a source over in-memory rows, numbering them from startLine.
func FromRows(rows [][]string, startLine int64) Source {
	return &rowSource{rows: rows, line: startLine}
}

type rowSource struct {
	rows [][]string
	pos  int
	line int64
}

func (s *rowSource) Next(ctx context.Context) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	if s.pos >= len(s.rows) {
		return Record{}, false, nil
	}
	rec := Record{Line: s.line + int64(s.pos), Fields: s.rows[s.pos]}
	s.pos++
	return rec, true, nil
}

func (s *rowSource) Close() error { return nil }

// SliceSink keeps written rows in memory.
type SliceSink struct {
	mu      sync.Mutex
	rows    [][]string
	flushes int
}

// NewSliceSink creates an empty in-memory sink.
func NewSliceSink() *SliceSink { return &SliceSink{} }

func (s *SliceSink) Write(fields []string) error {
	row := make([]string, len(fields))
	copy(row, fields)
	s.mu.Lock()
	s.rows = append(s.rows, row)
	s.mu.Unlock()
	return nil
}

func (s *SliceSink) Flush() error {
	s.mu.Lock()
	s.flushes++
	s.mu.Unlock()
	return nil
}

// Rows returns a copy of the rows written so far.
func (s *SliceSink) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	copy(out, s.rows)
	return out
}

// Flushes returns how many times Flush was called.
func (s *SliceSink) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}
