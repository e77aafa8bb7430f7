package cache

import (
	"fmt"
	"strings"
)

// DescribeConfiguration returns a human-readable dump of every policy knob.
func (s *Simulator) DescribeConfiguration() string {
	c := s.config
	b := new(strings.Builder)

	fmt.Fprintf(b, "*** CACHE SETTINGS ***\n")

	if c.Split() {
		fmt.Fprintf(b, "  Split I- D-cache\n")
		fmt.Fprintf(b, "  I-cache size: \t%d\n", c.InstructionSize)
		fmt.Fprintf(b, "  D-cache size: \t%d\n", c.DataSize)
	} else {
		fmt.Fprintf(b, "  Unified I- D-cache\n")
		fmt.Fprintf(b, "  Size: \t%d\n", c.UnifiedSize)
	}

	fmt.Fprintf(b, "  Associativity: \t%d\n", c.Associativity)
	fmt.Fprintf(b, "  Block size: \t%d\n", c.BlockSize)
	fmt.Fprintf(b, "  Write policy: \t%s\n", c.WritePolicy())
	fmt.Fprintf(b, "  Allocation policy: \t%s\n", c.AllocationPolicy())

	return b.String()
}

// WritePolicy names the write policy.
func (c Config) WritePolicy() string {
	if c.WriteBack {
		return "WRITE BACK"
	}

	return "WRITE THROUGH"
}

// AllocationPolicy names the store miss policy.
func (c Config) AllocationPolicy() string {
	if c.WriteAllocate {
		return "WRITE ALLOCATE"
	}

	return "WRITE NO ALLOCATE"
}
