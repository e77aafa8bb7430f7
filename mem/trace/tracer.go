// Package trace provides tracers that record every cache access of a
// simulation.
package trace

import (
	"log"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// Table names used by the database tracer.
const (
	AccessTableName = "cache_access"
	FlushTableName  = "cache_flush"
)

// AccessEntry is a row of the access table.
type AccessEntry struct {
	RunID        string
	Seq          uint64
	Stream       string
	Kind         string
	Address      uint64
	SetID        int
	Tag          uint64
	Outcome      string
	Evicted      bool
	EvictedAddr  uint64
	EvictedDirty bool
	DemandFetch  uint64
	CopyBack     uint64
}

// FlushEntry is a row of the flush table: a dirty line written back by a
// flush.
type FlushEntry struct {
	RunID     string
	Stream    string
	SetID     int
	BlockAddr uint64
	CopyBack  uint64
}

// A tracer is a hook that prints every access as a line of text.
type tracer struct {
	logger *log.Logger
}

// A dbTracer is a hook that records accesses into a database using the data
// recorder.
type dbTracer struct {
	runID        string
	dataRecorder datarecording.DataRecorder
}

// NewTracer creates a tracer that prints accesses to logger.
func NewTracer(logger *log.Logger) hooking.Hook {
	return &tracer{logger: logger}
}

// Func prints the access or flush.
func (t *tracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case cache.HookPosAccess:
		e := ctx.Item.(cache.AccessEvent)
		t.logger.Printf("access, %d, %s, %s, 0x%x, %d, %s\n",
			e.Seq, e.Stream, e.Kind, e.Address, e.SetID, e.Outcome)

		if e.Evicted {
			t.logger.Printf("evict, %d, 0x%x, dirty=%t\n",
				e.Seq, e.EvictedAddr, e.EvictedDirty)
		}
	case cache.HookPosFlush:
		e := ctx.Item.(cache.FlushEvent)
		t.logger.Printf("flush, %d, 0x%x\n", e.SetID, e.BlockAddr)
	}
}

// NewDBTracer creates a database-based tracer. Every row carries runID so
// that several runs can share a database.
func NewDBTracer(
	dataRecorder datarecording.DataRecorder,
	runID string,
) hooking.Hook {
	t := &dbTracer{
		runID:        runID,
		dataRecorder: dataRecorder,
	}

	t.dataRecorder.CreateTable(AccessTableName, AccessEntry{})
	t.dataRecorder.CreateTable(FlushTableName, FlushEntry{})

	return t
}

// Func records the access or flush.
func (t *dbTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case cache.HookPosAccess:
		t.recordAccess(ctx.Item.(cache.AccessEvent))
	case cache.HookPosFlush:
		t.recordFlush(ctx.Item.(cache.FlushEvent))
	}
}

func (t *dbTracer) recordAccess(e cache.AccessEvent) {
	t.dataRecorder.InsertData(AccessTableName, AccessEntry{
		RunID:        t.runID,
		Seq:          e.Seq,
		Stream:       e.Stream.String(),
		Kind:         e.Kind.String(),
		Address:      e.Address,
		SetID:        e.SetID,
		Tag:          e.Tag,
		Outcome:      e.Outcome.String(),
		Evicted:      e.Evicted,
		EvictedAddr:  e.EvictedAddr,
		EvictedDirty: e.EvictedDirty,
		DemandFetch:  e.DemandFetch,
		CopyBack:     e.CopyBack,
	})
}

func (t *dbTracer) recordFlush(e cache.FlushEvent) {
	t.dataRecorder.InsertData(FlushTableName, FlushEntry{
		RunID:     t.runID,
		Stream:    e.Stream.String(),
		SetID:     e.SetID,
		BlockAddr: e.BlockAddr,
		CopyBack:  e.CopyBack,
	})
}
