package tagging

import (
	"fmt"
	"math/bits"
)

// An AddressDecoder splits an address into the set index and the tag.
//
// The lowest OffsetBits bits select a byte within a block, the next IndexBits
// bits select the set, and everything above is the tag.
type AddressDecoder struct {
	OffsetBits uint
	IndexBits  uint
	IndexMask  uint64
}

// NewAddressDecoder creates an AddressDecoder for a cache with the given block
// size in bytes and number of sets. Both must be powers of two.
func NewAddressDecoder(blockSize, numSets int) AddressDecoder {
	mustBePowerOfTwo("block size", blockSize)
	mustBePowerOfTwo("number of sets", numSets)

	return AddressDecoder{
		OffsetBits: Log2(uint64(blockSize)),
		IndexBits:  Log2(uint64(numSets)),
		IndexMask:  uint64(numSets) - 1,
	}
}

// Decode returns the set index and the tag of an address.
func (d AddressDecoder) Decode(addr uint64) (setID int, tag uint64) {
	setID = int((addr >> d.OffsetBits) & d.IndexMask)
	tag = addr >> (d.OffsetBits + d.IndexBits)

	return setID, tag
}

// BlockAddr rebuilds the address of the first byte of the block identified by
// the set index and the tag.
func (d AddressDecoder) BlockAddr(setID int, tag uint64) uint64 {
	return (tag<<d.IndexBits | uint64(setID)) << d.OffsetBits
}

// IsPowerOfTwo reports whether x is a power of two (> 0).
func IsPowerOfTwo(x uint64) bool {
	return x != 0 && (x&(x-1)) == 0
}

// Log2 returns the base-2 logarithm of a power of two.
func Log2(x uint64) uint {
	return uint(bits.TrailingZeros64(x))
}

func mustBePowerOfTwo(what string, x int) {
	if x <= 0 || !IsPowerOfTwo(uint64(x)) {
		panic(fmt.Sprintf("%s must be a power of two, got %d", what, x))
	}
}
