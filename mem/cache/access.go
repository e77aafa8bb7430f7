package cache

import "fmt"

// AccessKind is the kind of a memory reference. The values match the labels
// used in trace files.
type AccessKind int

// Access kinds.
const (
	DataLoad         AccessKind = 0
	DataStore        AccessKind = 1
	InstructionFetch AccessKind = 2
)

func (k AccessKind) String() string {
	switch k {
	case DataLoad:
		return "load"
	case DataStore:
		return "store"
	case InstructionFetch:
		return "ifetch"
	default:
		return fmt.Sprintf("AccessKind(%d)", int(k))
	}
}

// Valid reports whether k is one of the three access kinds.
func (k AccessKind) Valid() bool {
	return k >= DataLoad && k <= InstructionFetch
}

// Stream returns the logical stream an access belongs to.
func (k AccessKind) Stream() Stream {
	if k == InstructionFetch {
		return StreamInstruction
	}

	return StreamData
}

// Stream identifies the instruction or the data reference stream. Statistics
// are kept per stream even when both share one cache.
type Stream int

// Streams.
const (
	StreamInstruction Stream = iota
	StreamData
	numStreams
)

// Streams lists all the streams in report order.
var Streams = []Stream{StreamInstruction, StreamData}

func (s Stream) String() string {
	switch s {
	case StreamInstruction:
		return "instruction"
	case StreamData:
		return "data"
	default:
		return fmt.Sprintf("Stream(%d)", int(s))
	}
}

// ParseStream accepts "instruction"/"i" and "data"/"d".
func ParseStream(name string) (Stream, error) {
	switch name {
	case "instruction", "inst", "i":
		return StreamInstruction, nil
	case "data", "d":
		return StreamData, nil
	default:
		return 0, fmt.Errorf("unknown stream %q", name)
	}
}
