package tracefile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Compression names a supported trace compression.
type Compression string

// Supported compressions.
const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// Detect sniffs the compression from the first bytes of a stream.
func Detect(header []byte) Compression {
	switch {
	case bytes.HasPrefix(header, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(header, lz4Magic):
		return CompressionLZ4
	case bytes.HasPrefix(header, gzipMagic):
		return CompressionGzip
	default:
		return CompressionNone
	}
}

// Decompress wraps r so that gzip, zstd and lz4 streams are transparently
// decompressed. Plain text passes through. Closing the result does not close
// r.
func Decompress(r io.Reader) (io.ReadCloser, Compression, error) {
	br := bufio.NewReader(r)

	header, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, CompressionNone, fmt.Errorf("sniffing trace header: %w", err)
	}

	compression := Detect(header)

	switch compression {
	case CompressionGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, compression, fmt.Errorf("opening gzip trace: %w", err)
		}

		return zr, compression, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, compression, fmt.Errorf("opening zstd trace: %w", err)
		}

		return dec.IOReadCloser(), compression, nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(br)), compression, nil
	default:
		return io.NopCloser(br), compression, nil
	}
}
