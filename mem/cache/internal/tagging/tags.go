// Package tagging keeps track of which blocks are resident in a cache.
package tagging

// A TagArray is the tag store of one physical cache: the geometry, the sets,
// and the occupancy counters.
type TagArray struct {
	NumSets   int
	NumWays   int
	BlockSize int
	Sets      []Set

	decoder   AddressDecoder
	occupancy int
}

// NewTagArray creates an empty tag array. Block size and number of sets must
// be powers of two.
func NewTagArray(
	numSets int,
	numWays int,
	blockSize int,
) *TagArray {
	if numWays <= 0 {
		panic("number of ways must be positive")
	}

	t := &TagArray{
		NumSets:   numSets,
		NumWays:   numWays,
		BlockSize: blockSize,
		decoder:   NewAddressDecoder(blockSize, numSets),
	}

	t.Sets = make([]Set, numSets)
	for i := range t.Sets {
		t.Sets[i] = NewSet(numWays)
	}

	return t
}

// TotalSize returns the maximum number of bytes can be stored in the cache
func (t *TagArray) TotalSize() uint64 {
	return uint64(t.NumSets) * uint64(t.NumWays) * uint64(t.BlockSize)
}

// Decoder returns the address decoder that matches the geometry.
func (t *TagArray) Decoder() AddressDecoder {
	return t.decoder
}

// Decode returns the set index and tag of an address.
func (t *TagArray) Decode(addr uint64) (setID int, tag uint64) {
	return t.decoder.Decode(addr)
}

// GetSet returns the set with the given index.
func (t *TagArray) GetSet(setID int) *Set {
	return &t.Sets[setID]
}

// Occupancy returns the number of resident lines across all the sets.
func (t *TagArray) Occupancy() int {
	return t.occupancy
}

// Insert places a line at the most recently used position of a set.
func (t *TagArray) Insert(setID int, line Line) {
	t.Sets[setID].InsertMRU(line)
	t.occupancy++
}

// Evict removes the line at position way of a set.
func (t *TagArray) Evict(setID, way int) Line {
	line := t.Sets[setID].Remove(way)
	t.occupancy--

	return line
}

// Visit calls fn for every resident line, set by set, most recently used
// first.
func (t *TagArray) Visit(fn func(setID int, line Line)) {
	for setID := range t.Sets {
		for _, line := range t.Sets[setID].Lines {
			fn(setID, line)
		}
	}
}

// Reset drops every line.
func (t *TagArray) Reset() {
	for i := range t.Sets {
		t.Sets[i].Reset()
	}

	t.occupancy = 0
}
