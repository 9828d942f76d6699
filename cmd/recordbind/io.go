package main

import (
	"io"
	"os"

	"github.com/kbukum/recordbind/record"
)

// compressionFor resolves a --compression value; "auto" picks by extension.
func compressionFor(path, name string) (record.Compression, error) {
	if name == "" || name == "auto" {
		if path == "-" {
			return record.None, nil
		}
		return record.CompressionFromPath(path), nil
	}
	return record.ParseCompression(name)
}

// closers closes a stack of streams innermost first.
type closers []io.Closer

func (cs closers) Close() error {
	var first error
	for _, c := range cs {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type input struct {
	io.Reader
	closers
}

type output struct {
	io.Writer
	closers
}

// openInput opens path ("-" for stdin) and decompresses it.
func openInput(path, compression string, stdin io.Reader) (io.ReadCloser, error) {
	c, err := compressionFor(path, compression)
	if err != nil {
		return nil, err
	}
	raw := io.NopCloser(stdin)
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		raw = f
	}
	dec, err := record.NewReader(raw, c)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return input{Reader: dec, closers: closers{dec, raw}}, nil
}

// createOutput creates path ("-" for stdout) with compression applied.
// Close flushes the compressor before closing the file.
func createOutput(path, compression string, stdout io.Writer) (io.WriteCloser, error) {
	c, err := compressionFor(path, compression)
	if err != nil {
		return nil, err
	}
	raw, cs := stdout, closers{}
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		raw, cs = f, closers{f}
	}
	enc, err := record.NewWriter(raw, c)
	if err != nil {
		cs.Close()
		return nil, err
	}
	return output{Writer: enc, closers: append(closers{enc}, cs...)}, nil
}
