package cache

import "github.com/sarchlab/cachesim/sim/hooking"

// HookPosAccess marks the completion of an access. The item is an
// AccessEvent.
var HookPosAccess = &hooking.HookPos{Name: "Cache Access"}

// HookPosFlush marks a dirty line being written back by a flush. The item is
// a FlushEvent.
var HookPosFlush = &hooking.HookPos{Name: "Cache Flush"}

// HookPosFlushDone marks the end of a flush, after every cache is emptied.
// The item is the number of dirty lines written back.
var HookPosFlushDone = &hooking.HookPos{Name: "Cache Flush Done"}

// Outcome is how an access was served.
type Outcome int

// Outcomes.
const (
	OutcomeHit Outcome = iota
	OutcomeMiss
	// OutcomeBypass is a store miss under no-write-allocate. It counts as a
	// miss but goes straight to memory.
	OutcomeBypass
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeMiss:
		return "miss"
	case OutcomeBypass:
		return "bypass"
	default:
		return "unknown"
	}
}

// IsMiss reports whether the access missed, bypass included.
func (o Outcome) IsMiss() bool {
	return o != OutcomeHit
}

// An AccessEvent describes one processed access.
type AccessEvent struct {
	Seq     uint64
	Stream  Stream
	Kind    AccessKind
	Address uint64
	SetID   int
	Tag     uint64
	Outcome Outcome

	Evicted      bool
	EvictedAddr  uint64
	EvictedDirty bool

	// Traffic caused by this access, in words.
	DemandFetch uint64
	CopyBack    uint64
}

// A FlushEvent describes a dirty line written back during a flush.
type FlushEvent struct {
	Stream    Stream
	SetID     int
	BlockAddr uint64
	CopyBack  uint64
}
