package tagging

// A Line is the bookkeeping kept for a block that is resident in the cache.
type Line struct {
	Tag   uint64
	Dirty bool
}

// A Set is the list of lines that a certain piece of memory can be stored at.
// Lines are ordered from the most recently used (index 0) to the least
// recently used (the last index).
type Set struct {
	Ways  int
	Lines []Line
}

// NewSet creates an empty set that holds up to ways lines.
func NewSet(ways int) Set {
	return Set{
		Ways:  ways,
		Lines: make([]Line, 0, ways),
	}
}

// Len returns the number of resident lines.
func (s *Set) Len() int {
	return len(s.Lines)
}

// Full reports whether inserting another line requires an eviction.
func (s *Set) Full() bool {
	return len(s.Lines) >= s.Ways
}

// Lookup returns the position of the line holding tag.
func (s *Set) Lookup(tag uint64) (way int, found bool) {
	for i := range s.Lines {
		if s.Lines[i].Tag == tag {
			return i, true
		}
	}

	return -1, false
}

// Line returns the line at position way. The pointer is only valid until the
// set is modified.
func (s *Set) Line(way int) *Line {
	return &s.Lines[way]
}

// Touch moves the line at position way to the most recently used position.
func (s *Set) Touch(way int) {
	if way == 0 {
		return
	}

	line := s.Lines[way]
	copy(s.Lines[1:way+1], s.Lines[:way])
	s.Lines[0] = line
}

// InsertMRU places a line at the most recently used position.
func (s *Set) InsertMRU(line Line) {
	if s.Full() {
		panic("inserting into a full set")
	}

	s.Lines = append(s.Lines, Line{})
	copy(s.Lines[1:], s.Lines[:len(s.Lines)-1])
	s.Lines[0] = line
}

// Remove takes the line at position way out of the set and returns it.
func (s *Set) Remove(way int) Line {
	line := s.Lines[way]
	s.Lines = append(s.Lines[:way], s.Lines[way+1:]...)

	return line
}

// Reset drops all the lines.
func (s *Set) Reset() {
	s.Lines = s.Lines[:0]
}
