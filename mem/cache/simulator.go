// Package cache models a set-associative cache with LRU replacement under a
// stream of memory references and counts hits, misses and memory traffic.
package cache

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// A Simulator owns the configuration, the caches and the statistics of one
// simulation. It is not safe for concurrent use.
type Simulator struct {
	hooking.HookableBase

	config       Config
	logger       *slog.Logger
	victimFinder tagging.VictimFinder

	icache *tagging.TagArray
	dcache *tagging.TagArray
	stats  [numStreams]Stats
	seq    uint64
}

// NewSimulator creates a simulator that still accepts configuration changes.
// Initialize must be called before the first access.
func NewSimulator(config Config) *Simulator {
	return &Simulator{
		config:       config,
		logger:       slog.Default(),
		victimFinder: tagging.NewLRUVictimFinder(),
	}
}

// SetLogger replaces the logger. A nil logger is ignored.
func (s *Simulator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Configure changes one parameter. It fails once the simulator is
// initialized.
func (s *Simulator) Configure(kind ParamKind, value int) error {
	if s.Initialized() {
		return configErr(kind.String(), value, ErrAlreadyInitialized)
	}

	return s.config.SetParameter(kind, value)
}

// Config returns the active configuration.
func (s *Simulator) Config() Config {
	return s.config
}

// Initialized reports whether Initialize has succeeded.
func (s *Simulator) Initialized() bool {
	return s.icache != nil
}

// Initialize builds the caches from the configuration and clears the
// statistics. It must be called exactly once.
func (s *Simulator) Initialize() error {
	if s.Initialized() {
		return &ConfigurationError{Param: "initialize", Err: ErrAlreadyInitialized}
	}

	if err := s.config.Validate(); err != nil {
		return err
	}

	if s.config.Mode == ModeUnset {
		s.config.Mode = ModeUnified
	}

	if s.config.Split() {
		s.icache = s.buildTagArray(ParamInstructionSize, s.config.InstructionSize)
		s.dcache = s.buildTagArray(ParamDataSize, s.config.DataSize)
	} else {
		s.icache = s.buildTagArray(ParamUnifiedSize, s.config.UnifiedSize)
		s.dcache = s.icache
	}

	s.stats = [numStreams]Stats{}

	s.logger.Debug("cache initialized",
		"mode", s.config.Mode.String(),
		"icache_sets", s.icache.NumSets,
		"dcache_sets", s.dcache.NumSets,
		"ways", s.config.Associativity,
		"block_size", s.config.BlockSize,
	)

	return nil
}

func (s *Simulator) buildTagArray(kind ParamKind, size int) *tagging.TagArray {
	numSets, err := s.config.NumSets(kind, size)
	if err != nil {
		panic(err)
	}

	return tagging.NewTagArray(numSets, s.config.Associativity, s.config.BlockSize)
}

func (s *Simulator) mustBeInitialized() {
	if !s.Initialized() {
		panic("cache simulator used before Initialize")
	}
}

func (s *Simulator) tagArray(stream Stream) *tagging.TagArray {
	if stream == StreamInstruction {
		return s.icache
	}

	return s.dcache
}

// ProcessAccess runs one reference through the cache of its stream.
func (s *Simulator) ProcessAccess(addr uint64, kind AccessKind) {
	s.mustBeInitialized()

	if !kind.Valid() {
		panic(fmt.Sprintf("unknown access kind %d", int(kind)))
	}

	stream := kind.Stream()
	tags := s.tagArray(stream)
	stats := &s.stats[stream]
	setID, tag := tags.Decode(addr)

	s.seq++
	event := AccessEvent{
		Seq:     s.seq,
		Stream:  stream,
		Kind:    kind,
		Address: addr,
		SetID:   setID,
		Tag:     tag,
	}

	stats.Accesses++

	set := tags.GetSet(setID)
	if way, found := set.Lookup(tag); found {
		s.hit(set, way, kind, &event)
	} else {
		s.miss(tags, setID, kind, &event)
	}

	stats.DemandFetches += event.DemandFetch
	stats.CopiesBack += event.CopyBack

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosAccess,
			Item:   event,
		})
	}
}

func (s *Simulator) hit(
	set *tagging.Set,
	way int,
	kind AccessKind,
	event *AccessEvent,
) {
	event.Outcome = OutcomeHit

	if kind == DataStore {
		if s.config.WriteBack {
			set.Line(way).Dirty = true
		} else {
			event.CopyBack++
		}
	}

	set.Touch(way)
}

func (s *Simulator) miss(
	tags *tagging.TagArray,
	setID int,
	kind AccessKind,
	event *AccessEvent,
) {
	stats := &s.stats[event.Stream]
	stats.Misses++

	if kind == DataStore && !s.config.WriteAllocate {
		event.Outcome = OutcomeBypass
		event.CopyBack++

		return
	}

	event.Outcome = OutcomeMiss
	wordsPerBlock := uint64(s.config.WordsPerBlock())
	event.DemandFetch += wordsPerBlock

	set := tags.GetSet(setID)
	if set.Full() {
		way := s.victimFinder.FindVictim(set)
		victim := tags.Evict(setID, way)

		if victim.Dirty && s.config.WriteBack {
			event.CopyBack += wordsPerBlock
		}

		stats.Replacements++

		event.Evicted = true
		event.EvictedAddr = tags.Decoder().BlockAddr(setID, victim.Tag)
		event.EvictedDirty = victim.Dirty
	}

	line := tagging.Line{Tag: event.Tag}

	if kind == DataStore {
		if s.config.WriteBack {
			line.Dirty = true
		} else {
			event.CopyBack++
		}
	}

	tags.Insert(setID, line)
}

// Flush writes every dirty line back to memory and empties the caches. Only
// data stores make a line dirty, so the traffic is charged to the data
// stream.
func (s *Simulator) Flush() {
	s.mustBeInitialized()

	wordsPerBlock := uint64(s.config.WordsPerBlock())
	written := 0

	for _, tags := range s.physicalCaches() {
		tags.Visit(func(setID int, line tagging.Line) {
			if !line.Dirty || !s.config.WriteBack {
				return
			}

			written++
			s.stats[StreamData].CopiesBack += wordsPerBlock

			if s.NumHooks() > 0 {
				s.InvokeHook(hooking.HookCtx{
					Domain: s,
					Pos:    HookPosFlush,
					Item: FlushEvent{
						Stream:    StreamData,
						SetID:     setID,
						BlockAddr: tags.Decoder().BlockAddr(setID, line.Tag),
						CopyBack:  wordsPerBlock,
					},
				})
			}
		})

		tags.Reset()
	}

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosFlushDone,
			Item:   written,
		})
	}

	s.logger.Debug("cache flushed", "dirty_lines", written)
}

func (s *Simulator) physicalCaches() []*tagging.TagArray {
	if s.icache == s.dcache {
		return []*tagging.TagArray{s.icache}
	}

	return []*tagging.TagArray{s.icache, s.dcache}
}

// Statistics returns a snapshot of the counters of a stream.
func (s *Simulator) Statistics(stream Stream) Stats {
	return s.stats[stream]
}

// Traffic returns the demand fetch and copy back traffic of both streams, in
// words.
func (s *Simulator) Traffic() (demandFetches, copiesBack uint64) {
	total := s.stats[StreamInstruction].Add(s.stats[StreamData])
	return total.DemandFetches, total.CopiesBack
}
