package cache

import "fmt"

// LineInfo is a read-only copy of a resident line.
type LineInfo struct {
	Tag       uint64 `json:"tag"`
	BlockAddr uint64 `json:"block_addr"`
	Dirty     bool   `json:"dirty"`
}

// SetInfo is a read-only copy of a set, most recently used line first.
type SetInfo struct {
	Stream Stream     `json:"-"`
	SetID  int        `json:"set_id"`
	Ways   int        `json:"ways"`
	Lines  []LineInfo `json:"lines"`
}

// Geometry describes the shape of the cache serving a stream.
type Geometry struct {
	NumSets   int `json:"num_sets"`
	NumWays   int `json:"num_ways"`
	BlockSize int `json:"block_size"`
	Occupancy int `json:"occupancy"`
}

// Geometry returns the shape and occupancy of the cache serving a stream.
func (s *Simulator) Geometry(stream Stream) Geometry {
	s.mustBeInitialized()

	tags := s.tagArray(stream)

	return Geometry{
		NumSets:   tags.NumSets,
		NumWays:   tags.NumWays,
		BlockSize: tags.BlockSize,
		Occupancy: tags.Occupancy(),
	}
}

// SetInfo copies out the set with index setID of the cache serving a stream.
func (s *Simulator) SetInfo(stream Stream, setID int) (SetInfo, error) {
	s.mustBeInitialized()

	tags := s.tagArray(stream)
	if setID < 0 || setID >= tags.NumSets {
		return SetInfo{}, fmt.Errorf(
			"set %d out of range [0, %d)", setID, tags.NumSets)
	}

	set := tags.GetSet(setID)
	info := SetInfo{
		Stream: stream,
		SetID:  setID,
		Ways:   set.Ways,
		Lines:  make([]LineInfo, 0, set.Len()),
	}

	for _, l := range set.Lines {
		info.Lines = append(info.Lines, LineInfo{
			Tag:       l.Tag,
			BlockAddr: tags.Decoder().BlockAddr(setID, l.Tag),
			Dirty:     l.Dirty,
		})
	}

	return info, nil
}

// SharedCache reports whether both streams use the same cache.
func (s *Simulator) SharedCache() bool {
	s.mustBeInitialized()

	return s.icache == s.dcache
}
