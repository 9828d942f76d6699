package record

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/kbukum/recordbind/errors"
)

// Compression names a stream compression format.
type Compression string

const (
	None   Compression = "none"
	Gzip   Compression = "gzip"
	Zstd   Compression = "zstd"
	S2     Compression = "s2"
	Snappy Compression = "snappy"
	LZ4    Compression = "lz4"
)

var extensions = map[string]Compression{
	".gz":     Gzip,
	".gzip":   Gzip,
	".zst":    Zstd,
	".zstd":   Zstd,
	".s2":     S2,
	".sz":     Snappy,
	".snappy": Snappy,
	".lz4":    LZ4,
}

// CompressionFromPath infers the format from a file extension.
func CompressionFromPath(path string) Compression {
	if c, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return c
	}
	return None
}

// ParseCompression accepts a format name; "" and "auto" return None.
func ParseCompression(name string) (Compression, error) {
	switch c := Compression(strings.ToLower(name)); c {
	case "", "auto", None:
		return None, nil
	case Gzip, Zstd, S2, Snappy, LZ4:
		return c, nil
	default:
		return None, errors.BadConfiguration("unknown compression " + name)
	}
}

// NewReader wraps r so reads return decompressed bytes.
func NewReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case "", None:
		return io.NopCloser(r), nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.SourceFailure(err)
		}
		return zr, nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.SourceFailure(err)
		}
		return dec.IOReadCloser(), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, errors.BadConfiguration("unknown compression " + string(c))
	}
}

// NewWriter wraps w so writes are compressed. Close flushes the compressed
// stream but leaves w open.
func NewWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case "", None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, errors.BadConfiguration("zstd encoder: " + err.Error())
		}
		return enc, nil
	case S2:
		return s2.NewWriter(w), nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case LZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, errors.BadConfiguration("unknown compression " + string(c))
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
