package record

import (
	"bufio"
	"context"
	"encoding/csv"
	stderrors "errors"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/kbukum/recordbind/errors"
)

type csvOptions struct {
	comma            rune
	comment          rune
	lazyQuotes       bool
	trimLeadingSpace bool
	skipLines        int
	useCRLF          bool
}

// CSVOption configures a CSVSource or CSVSink.
type CSVOption func(*csvOptions)

// WithComma sets the field delimiter. The default is ','.
func WithComma(r rune) CSVOption {
	return func(o *csvOptions) { o.comma = r }
}

// WithComment makes lines starting with r comments. Zero disables comments.
func WithComment(r rune) CSVOption {
	return func(o *csvOptions) { o.comment = r }
}

// WithLazyQuotes tolerates quotes inside unquoted fields.
func WithLazyQuotes(lazy bool) CSVOption {
	return func(o *csvOptions) { o.lazyQuotes = lazy }
}

// WithTrimLeadingSpace ignores leading white space in fields.
func WithTrimLeadingSpace(trim bool) CSVOption {
	return func(o *csvOptions) { o.trimLeadingSpace = trim }
}

// WithSkipLines discards n physical lines before parsing starts.
func WithSkipLines(n int) CSVOption {
	return func(o *csvOptions) { o.skipLines = n }
}

// WithCRLF makes a CSVSink terminate rows with \r\n.
func WithCRLF(crlf bool) CSVOption {
	return func(o *csvOptions) { o.useCRLF = crlf }
}

func newCSVOptions(opts []CSVOption) (csvOptions, error) {
	o := csvOptions{comma: ','}
	for _, opt := range opts {
		opt(&o)
	}
	if !validDelim(o.comma) {
		return o, errors.BadConfiguration("invalid csv delimiter " + string(o.comma))
	}
	if o.comment != 0 && (!validDelim(o.comment) || o.comment == o.comma) {
		return o, errors.BadConfiguration("invalid csv comment character " + string(o.comment))
	}
	if o.skipLines < 0 {
		return o, errors.BadConfiguration("skip lines must not be negative")
	}
	return o, nil
}

func validDelim(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

// CSVSource reads records from delimited text. Records may span several
// physical lines; Line is the line the record starts on.
type CSVSource struct {
	in        io.Reader
	opts      csvOptions
	r         *csv.Reader
	offset    int64
	closeOnce sync.Once
	closeErr  error
}

// NewCSVSource creates a source over in. Invalid options fail with
// BAD_CONFIGURATION. Close closes in when it is an io.Closer.
func NewCSVSource(in io.Reader, opts ...CSVOption) (*CSVSource, error) {
	o, err := newCSVOptions(opts)
	if err != nil {
		return nil, err
	}
	return &CSVSource{in: in, opts: o}, nil
}

func (s *CSVSource) init() error {
	br := bufio.NewReader(s.in)
	for i := 0; i < s.opts.skipLines; i++ {
		line, err := br.ReadString('\n')
		if err == io.EOF {
			if line != "" {
				s.offset++
			}
			break
		}
		if err != nil {
			return errors.SourceFailure(err)
		}
		s.offset++
	}

	r := csv.NewReader(br)
	r.Comma = s.opts.comma
	r.Comment = s.opts.comment
	r.LazyQuotes = s.opts.lazyQuotes
	r.TrimLeadingSpace = s.opts.trimLeadingSpace
	r.FieldsPerRecord = -1
	s.r = r
	return nil
}

// Next reads the next record.
func (s *CSVSource) Next(ctx context.Context) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	if s.r == nil {
		if err := s.init(); err != nil {
			return Record{}, false, err
		}
	}
	fields, err := s.r.Read()
	if err == io.EOF {
		return Record{}, false, nil
	}
	if err != nil {
		var pe *csv.ParseError
		if stderrors.As(err, &pe) {
			return Record{}, false, errors.SourceFailure(pe.Err).
				At(int64(pe.StartLine)+s.offset).
				WithDetail("column", pe.Column).
				WithDetail("error_line", int64(pe.Line)+s.offset)
		}
		return Record{}, false, errors.SourceFailure(err)
	}
	line, _ := s.r.FieldPos(0)
	return Record{Line: int64(line) + s.offset, Fields: fields}, true, nil
}

// Close closes the underlying reader if it is closable.
func (s *CSVSource) Close() error {
	s.closeOnce.Do(func() {
		if c, ok := s.in.(io.Closer); ok {
			s.closeErr = c.Close()
		}
	})
	return s.closeErr
}

// CSVSink writes rows as delimited text.
type CSVSink struct {
	w *csv.Writer
}

// NewCSVSink creates a sink writing to out. Only WithComma and WithCRLF apply.
func NewCSVSink(out io.Writer, opts ...CSVOption) (*CSVSink, error) {
	o, err := newCSVOptions(opts)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(out)
	w.Comma = o.comma
	w.UseCRLF = o.useCRLF
	return &CSVSink{w: w}, nil
}

func (s *CSVSink) Write(fields []string) error { return s.w.Write(fields) }

// Flush writes buffered rows to the underlying writer.
func (s *CSVSink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}
