package tagging

// A VictimFinder decides which line of a full set should be evicted.
type VictimFinder interface {
	FindVictim(set *Set) (way int)
}

// LRUVictimFinder evicts the least recently used line.
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// FindVictim returns the position of the least recently used line in a set,
// or -1 if the set is empty.
func (e *LRUVictimFinder) FindVictim(set *Set) int {
	return set.Len() - 1
}
