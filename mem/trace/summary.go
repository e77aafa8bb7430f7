package trace

import (
	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
)

// StatsTableName is the table holding the final statistics of each run.
const StatsTableName = "cache_stats"

// StatsEntry is a row of the statistics table.
type StatsEntry struct {
	RunID         string
	Stream        string
	Accesses      uint64
	Misses        uint64
	Replacements  uint64
	DemandFetches uint64
	CopiesBack    uint64
	MissRate      float64
}

// RecordStats stores the final statistics of both streams.
func RecordStats(
	dataRecorder datarecording.DataRecorder,
	runID string,
	s *cache.Simulator,
) {
	dataRecorder.CreateTable(StatsTableName, StatsEntry{})

	for _, stream := range cache.Streams {
		st := s.Statistics(stream)
		dataRecorder.InsertData(StatsTableName, StatsEntry{
			RunID:         runID,
			Stream:        stream.String(),
			Accesses:      st.Accesses,
			Misses:        st.Misses,
			Replacements:  st.Replacements,
			DemandFetches: st.DemandFetches,
			CopiesBack:    st.CopiesBack,
			MissRate:      st.MissRate(),
		})
	}

	dataRecorder.Flush()
}

// MapTables registers the tables written by the tracers on reader.
func MapTables(reader datarecording.DataReader) {
	reader.MapTable(AccessTableName, AccessEntry{})
	reader.MapTable(FlushTableName, FlushEntry{})
	reader.MapTable(StatsTableName, StatsEntry{})
}
