package tracefile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// A Source is an opened trace.
type Source struct {
	io.Reader

	Location    string
	Compression Compression

	closers []io.Closer
}

// Close releases the decompressor and the underlying file or object.
func (s *Source) Close() error {
	var first error

	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}

	s.closers = nil

	return first
}

// Open opens a trace from a local path, "-" for standard input, or an
// s3://bucket/key URL. Compressed traces are detected from their content.
func Open(ctx context.Context, location string) (*Source, error) {
	var (
		raw io.Reader
		src = &Source{Location: location}
	)

	switch {
	case location == "-":
		raw = os.Stdin
	case strings.HasPrefix(location, "s3://"):
		obj, err := openS3(ctx, location)
		if err != nil {
			return nil, err
		}

		raw = obj
		src.closers = append(src.closers, obj)
	default:
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("opening trace: %w", err)
		}

		raw = f
		src.closers = append(src.closers, f)
	}

	rc, compression, err := Decompress(raw)
	if err != nil {
		_ = src.Close()
		return nil, err
	}

	src.Reader = rc
	src.Compression = compression
	src.closers = append(src.closers, rc)

	slog.Debug("trace opened",
		"location", location,
		"compression", string(compression))

	return src, nil
}
