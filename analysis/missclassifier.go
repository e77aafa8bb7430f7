// Package analysis provides hooks that explain the behavior of a cache
// simulation.
package analysis

import (
	"fmt"
	"math/bits"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// MissClass is the reason of a miss.
type MissClass int

// Miss classes. A compulsory miss is the first reference to a block. A
// capacity miss would also miss in a fully associative LRU cache of the same
// size. Every other miss is a conflict miss.
const (
	MissCompulsory MissClass = iota
	MissCapacity
	MissConflict
)

func (c MissClass) String() string {
	switch c {
	case MissCompulsory:
		return "compulsory"
	case MissCapacity:
		return "capacity"
	case MissConflict:
		return "conflict"
	default:
		return fmt.Sprintf("MissClass(%d)", int(c))
	}
}

// Breakdown counts the misses of one stream by class.
type Breakdown struct {
	Compulsory uint64 `json:"compulsory"`
	Capacity   uint64 `json:"capacity"`
	Conflict   uint64 `json:"conflict"`
}

// Total returns the number of classified misses.
func (b Breakdown) Total() uint64 {
	return b.Compulsory + b.Capacity + b.Conflict
}

func (b *Breakdown) add(c MissClass) {
	switch c {
	case MissCompulsory:
		b.Compulsory++
	case MissCapacity:
		b.Capacity++
	case MissConflict:
		b.Conflict++
	}
}

// classifierState follows one physical cache.
type classifierState struct {
	offsetBits uint
	seen       *roaring64.Bitmap
	shadow     *shadowCache
}

// MissClassifier is a hook that sorts the misses of a simulator into
// compulsory, capacity and conflict misses.
type MissClassifier struct {
	states    [2]*classifierState
	breakdown [2]Breakdown
}

// NewMissClassifier creates a classifier that follows the caches of sim. It
// must be registered on sim before the first access.
func NewMissClassifier(sim *cache.Simulator) *MissClassifier {
	c := &MissClassifier{}

	i := newClassifierState(sim.Geometry(cache.StreamInstruction))
	c.states[cache.StreamInstruction] = i

	if sim.SharedCache() {
		c.states[cache.StreamData] = i
	} else {
		c.states[cache.StreamData] =
			newClassifierState(sim.Geometry(cache.StreamData))
	}

	return c
}

func newClassifierState(g cache.Geometry) *classifierState {
	return &classifierState{
		offsetBits: uint(bits.TrailingZeros64(uint64(g.BlockSize))),
		seen:       roaring64.New(),
		shadow:     newShadowCache(g.NumSets * g.NumWays),
	}
}

// Func classifies the access carried by ctx.
func (c *MissClassifier) Func(ctx hooking.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	event, ok := ctx.Item.(cache.AccessEvent)
	if !ok {
		return
	}

	c.Classify(event)
}

// Classify updates the classifier with one access. For a miss, it returns the
// class of the miss and true.
func (c *MissClassifier) Classify(event cache.AccessEvent) (MissClass, bool) {
	state := c.states[event.Stream]
	block := event.Address >> state.offsetBits

	// A store that bypasses the cache does not allocate, so the block is not
	// marked as seen and the shadow cache is left alone.
	var firstTouch, inShadow bool
	if event.Outcome == cache.OutcomeBypass {
		firstTouch = !state.seen.Contains(block)
		inShadow = state.shadow.Contains(block)
	} else {
		firstTouch = state.seen.CheckedAdd(block)
		inShadow = state.shadow.Access(block)
	}

	if !event.Outcome.IsMiss() {
		return 0, false
	}

	class := MissConflict

	switch {
	case firstTouch:
		class = MissCompulsory
	case !inShadow:
		class = MissCapacity
	}

	c.breakdown[event.Stream].add(class)

	return class, true
}

// Breakdown returns the miss classes of a stream.
func (c *MissClassifier) Breakdown(stream cache.Stream) Breakdown {
	return c.breakdown[stream]
}

// UniqueBlocks returns the number of distinct blocks brought into a stream's
// cache.
func (c *MissClassifier) UniqueBlocks(stream cache.Stream) uint64 {
	return c.states[stream].seen.GetCardinality()
}
