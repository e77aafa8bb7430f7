// Package tracefile reads memory reference traces.
//
// A trace is a text file with one reference per line: a numeric label
// (0 data load, 1 data store, 2 instruction fetch) followed by a hexadecimal
// address. Blank lines and lines starting with '#' are skipped; fields after
// the address are ignored.
package tracefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/cachesim/mem/cache"
)

// A Record is one memory reference.
type Record struct {
	Kind    cache.AccessKind
	Address uint64
	Line    int
}

// ErrMalformed is wrapped by every ParseError.
var ErrMalformed = errors.New("malformed trace record")

// A ParseError reports a line that is not a valid record.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// A Reader decodes records one at a time.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader on top of r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next record, or io.EOF once the input is exhausted.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++

		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		return ParseRecord(r.line, text)
	}

	if err := r.scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("reading trace: %w", err)
	}

	return Record{}, io.EOF
}

// LinesRead returns the number of lines consumed so far.
func (r *Reader) LinesRead() int {
	return r.line
}

// ParseRecord decodes a single non-empty trace line.
func ParseRecord(line int, text string) (Record, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return Record{}, &ParseError{
			Line: line, Text: text,
			Err: fmt.Errorf("%w: want a label and an address", ErrMalformed),
		}
	}

	label, err := strconv.Atoi(fields[0])
	if err != nil || !cache.AccessKind(label).Valid() {
		return Record{}, &ParseError{
			Line: line, Text: text,
			Err: fmt.Errorf("%w: bad label %q", ErrMalformed, fields[0]),
		}
	}

	hex := strings.TrimPrefix(strings.ToLower(fields[1]), "0x")

	addr, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return Record{}, &ParseError{
			Line: line, Text: text,
			Err: fmt.Errorf("%w: bad address %q", ErrMalformed, fields[1]),
		}
	}

	return Record{
		Kind:    cache.AccessKind(label),
		Address: addr,
		Line:    line,
	}, nil
}
