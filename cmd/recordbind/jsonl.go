package main

import (
	"bufio"
	"bytes"
	"context"
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/kbukum/recordbind/errors"
	"github.com/kbukum/recordbind/mapping"
)

const maxLineSize = 16 << 20

// jsonLines yields one row per non-blank line of a JSON lines stream. Numbers
// stay textual until the schema coerces them, so large integers keep their
// precision.
type jsonLines struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int64
}

func newJSONLines(r io.ReadCloser) *jsonLines {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	return &jsonLines{scanner: s, closer: r}
}

func (j *jsonLines) Next(ctx context.Context) (mapping.Row, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		if !j.scanner.Scan() {
			if err := j.scanner.Err(); err != nil {
				return nil, false, errors.SourceFailure(err).At(j.line + 1)
			}
			return nil, false, nil
		}
		j.line++
		data := bytes.TrimSpace(j.scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var row mapping.Row
		dec := gojson.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&row); err != nil {
			return nil, false, errors.SourceFailure(err).At(j.line)
		}
		return row, true, nil
	}
}

func (j *jsonLines) Close() error { return j.closer.Close() }
