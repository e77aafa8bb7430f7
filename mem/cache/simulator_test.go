package cache

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cachesim/sim/hooking"
	"go.uber.org/mock/gomock"
)

func tagsInSet(s *Simulator, stream Stream, setID int) []uint64 {
	info, err := s.SetInfo(stream, setID)
	Expect(err).NotTo(HaveOccurred())

	tags := []uint64{}
	for _, l := range info.Lines {
		tags = append(tags, l.Tag)
	}

	return tags
}

var _ = Describe("Simulator", func() {
	const (
		addrA = uint64(0x0)
		addrB = uint64(0x10)
		addrC = uint64(0x20)
	)

	Context("single line, write-back, write-allocate", func() {
		var s *Simulator

		BeforeEach(func() {
			var err error
			s, err = MakeBuilder().
				WithBlockSize(16).
				WithUnifiedSize(16).
				WithAssociativity(1).
				WithWriteBack(true).
				WithWriteAllocate(true).
				Build()
			Expect(err).NotTo(HaveOccurred())
		})

		It("should miss then hit on a repeated instruction fetch", func() {
			s.ProcessAccess(0x40, InstructionFetch)
			s.ProcessAccess(0x40, InstructionFetch)

			stats := s.Statistics(StreamInstruction)
			Expect(stats.Accesses).To(Equal(uint64(2)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits()).To(Equal(uint64(1)))
		})

		It("should defer the store and copy back the dirty block on eviction",
			func() {
				s.ProcessAccess(addrA, DataLoad)
				s.ProcessAccess(addrA, DataLoad)
				s.ProcessAccess(addrA, DataStore)

				Expect(s.Statistics(StreamData).CopiesBack).To(BeZero())

				s.ProcessAccess(addrB, DataLoad)

				Expect(s.Statistics(StreamData)).To(Equal(Stats{
					Accesses:      4,
					Misses:        2,
					Replacements:  1,
					DemandFetches: 8,
					CopiesBack:    4,
				}))
				Expect(s.Statistics(StreamInstruction)).To(BeZero())
			})

		It("should not copy back a clean block", func() {
			s.ProcessAccess(addrA, DataLoad)
			s.ProcessAccess(addrB, DataLoad)

			stats := s.Statistics(StreamData)
			Expect(stats.Replacements).To(Equal(uint64(1)))
			Expect(stats.CopiesBack).To(BeZero())
		})

		It("should mark an allocated store miss dirty", func() {
			s.ProcessAccess(addrA, DataStore)

			info, err := s.SetInfo(StreamData, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Lines).To(HaveLen(1))
			Expect(info.Lines[0].Dirty).To(BeTrue())
			Expect(s.Statistics(StreamData).DemandFetches).To(Equal(uint64(4)))
			Expect(s.Statistics(StreamData).CopiesBack).To(BeZero())
		})

		It("should let instructions and data evict each other when unified",
			func() {
				s.ProcessAccess(addrA, InstructionFetch)
				s.ProcessAccess(addrA, DataLoad)
				s.ProcessAccess(addrB, DataStore)
				s.ProcessAccess(addrA, InstructionFetch)

				Expect(s.SharedCache()).To(BeTrue())
				Expect(s.Statistics(StreamInstruction)).To(Equal(Stats{
					Accesses:      2,
					Misses:        2,
					Replacements:  1,
					DemandFetches: 8,
					CopiesBack:    4,
				}))
				Expect(s.Statistics(StreamData)).To(Equal(Stats{
					Accesses:      2,
					Misses:        1,
					Replacements:  1,
					DemandFetches: 4,
				}))
			})

		It("should write back dirty lines on flush", func() {
			s.ProcessAccess(addrA, DataStore)
			s.Flush()

			Expect(s.Statistics(StreamData).CopiesBack).To(Equal(uint64(4)))
			Expect(s.Geometry(StreamData).Occupancy).To(BeZero())

			s.Flush()
			Expect(s.Statistics(StreamData).CopiesBack).To(Equal(uint64(4)))

			s.ProcessAccess(addrA, DataLoad)
			Expect(s.Statistics(StreamData).Misses).To(Equal(uint64(2)))
		})
	})

	Context("write-through", func() {
		var s *Simulator

		BeforeEach(func() {
			var err error
			s, err = MakeBuilder().
				WithBlockSize(16).
				WithUnifiedSize(16).
				WithWriteBack(false).
				WithWriteAllocate(false).
				Build()
			Expect(err).NotTo(HaveOccurred())
		})

		It("should send a store miss straight to memory without allocating",
			func() {
				s.ProcessAccess(0x100, DataStore)

				Expect(s.Statistics(StreamData)).To(Equal(Stats{
					Accesses:   1,
					Misses:     1,
					CopiesBack: 1,
				}))
				Expect(s.Geometry(StreamData).Occupancy).To(BeZero())
				Expect(tagsInSet(s, StreamData, 0)).To(BeEmpty())
			})

		It("should write through a store hit and keep the line clean", func() {
			s.ProcessAccess(addrA, DataLoad)
			s.ProcessAccess(addrA, DataStore)
			s.ProcessAccess(addrB, DataLoad)

			Expect(s.Statistics(StreamData)).To(Equal(Stats{
				Accesses:      3,
				Misses:        2,
				Replacements:  1,
				DemandFetches: 8,
				CopiesBack:    1,
			}))
		})

		It("should fetch and write through an allocated store miss", func() {
			var err error
			s, err = MakeBuilder().
				WithBlockSize(16).
				WithUnifiedSize(16).
				WithWriteBack(false).
				WithWriteAllocate(true).
				Build()
			Expect(err).NotTo(HaveOccurred())

			s.ProcessAccess(addrA, DataStore)
			s.Flush()

			Expect(s.Statistics(StreamData)).To(Equal(Stats{
				Accesses:      1,
				Misses:        1,
				DemandFetches: 4,
				CopiesBack:    1,
			}))
		})
	})

	Context("two-way single set", func() {
		var s *Simulator

		BeforeEach(func() {
			var err error
			s, err = MakeBuilder().
				WithBlockSize(16).
				WithUnifiedSize(32).
				WithAssociativity(2).
				Build()
			Expect(err).NotTo(HaveOccurred())
		})

		It("should keep a hit line at the MRU position", func() {
			s.ProcessAccess(addrA, DataLoad)
			s.ProcessAccess(addrB, DataLoad)

			Expect(tagsInSet(s, StreamData, 0)).To(Equal([]uint64{1, 0}))

			s.ProcessAccess(addrA, DataLoad)

			Expect(tagsInSet(s, StreamData, 0)).To(Equal([]uint64{0, 1}))
		})

		It("should evict the least recently used line", func() {
			s.ProcessAccess(addrA, DataLoad)
			s.ProcessAccess(addrB, DataLoad)
			s.ProcessAccess(addrA, DataLoad)
			s.ProcessAccess(addrC, DataLoad)

			Expect(tagsInSet(s, StreamData, 0)).To(Equal([]uint64{2, 0}))

			s.ProcessAccess(addrA, DataLoad)
			s.ProcessAccess(addrB, DataLoad)

			stats := s.Statistics(StreamData)
			Expect(stats.Misses).To(Equal(uint64(4)))
			Expect(stats.Replacements).To(Equal(uint64(2)))
		})

		It("should not replace while the set has room", func() {
			s.ProcessAccess(addrA, DataLoad)
			s.ProcessAccess(addrB, DataLoad)

			Expect(s.Statistics(StreamData).Replacements).To(BeZero())
			Expect(s.Geometry(StreamData).Occupancy).To(Equal(2))
		})
	})

	Context("split caches", func() {
		var s *Simulator

		BeforeEach(func() {
			var err error
			s, err = MakeBuilder().
				WithBlockSize(16).
				WithSplitSizes(16, 16).
				Build()
			Expect(err).NotTo(HaveOccurred())
		})

		It("should keep instructions and data apart", func() {
			s.ProcessAccess(addrA, InstructionFetch)
			s.ProcessAccess(addrB, DataLoad)
			s.ProcessAccess(addrA, InstructionFetch)
			s.ProcessAccess(addrB, DataLoad)

			Expect(s.SharedCache()).To(BeFalse())
			Expect(s.Statistics(StreamInstruction).Misses).To(Equal(uint64(1)))
			Expect(s.Statistics(StreamData).Misses).To(Equal(uint64(1)))
			Expect(s.Geometry(StreamInstruction).Occupancy).To(Equal(1))
			Expect(s.Geometry(StreamData).Occupancy).To(Equal(1))
		})

		It("should flush both caches", func() {
			s.ProcessAccess(addrA, InstructionFetch)
			s.ProcessAccess(addrB, DataStore)
			s.Flush()

			Expect(s.Statistics(StreamData).CopiesBack).To(Equal(uint64(4)))
			Expect(s.Statistics(StreamInstruction).CopiesBack).To(BeZero())
			Expect(s.Geometry(StreamInstruction).Occupancy).To(BeZero())
			Expect(s.Geometry(StreamData).Occupancy).To(BeZero())
		})
	})

	Context("random traces", func() {
		It("should keep the accounting invariants", func() {
			s, err := MakeBuilder().
				WithBlockSize(32).
				WithUnifiedSize(1024).
				WithAssociativity(4).
				Build()
			Expect(err).NotTo(HaveOccurred())

			rng := rand.New(rand.NewSource(7))
			wordsPerBlock := uint64(8)

			for i := 0; i < 5000; i++ {
				kind := AccessKind(rng.Intn(3))
				addr := uint64(rng.Intn(4096))
				before := s.Statistics(kind.Stream())
				occupancy := s.Geometry(kind.Stream()).Occupancy

				s.ProcessAccess(addr, kind)

				after := s.Statistics(kind.Stream())
				Expect(after.Accesses).To(Equal(before.Accesses + 1))

				if after.Misses == before.Misses {
					Expect(after.DemandFetches).To(Equal(before.DemandFetches))
					Expect(after.Replacements).To(Equal(before.Replacements))
				} else {
					Expect(after.DemandFetches).
						To(Equal(before.DemandFetches + wordsPerBlock))

					if after.Replacements > before.Replacements {
						Expect(after.Replacements).To(Equal(before.Replacements + 1))
						Expect(occupancy).To(Equal(s.Geometry(kind.Stream()).Occupancy))
					}
				}

				for setID := range s.icache.Sets {
					Expect(s.icache.Sets[setID].Len()).To(BeNumerically("<=", 4))
				}
			}
		})
	})

	Context("lifecycle", func() {
		It("should panic when used before Initialize", func() {
			s := NewSimulator(DefaultConfig())

			Expect(func() { s.ProcessAccess(0, DataLoad) }).To(Panic())
			Expect(func() { s.Flush() }).To(Panic())
		})

		It("should refuse configuration after Initialize", func() {
			s := NewSimulator(DefaultConfig())
			Expect(s.Configure(ParamAssociativity, 2)).To(Succeed())
			Expect(s.Initialize()).To(Succeed())

			err := s.Configure(ParamAssociativity, 4)

			Expect(errors.Is(err, ErrAlreadyInitialized)).To(BeTrue())
			Expect(errors.Is(s.Initialize(), ErrAlreadyInitialized)).To(BeTrue())
			Expect(s.Config().Associativity).To(Equal(2))
			Expect(s.Config().Mode).To(Equal(ModeUnified))
		})

		It("should report a bad geometry from Build", func() {
			_, err := MakeBuilder().
				WithUnifiedSize(48).
				Build()

			Expect(errors.Is(err, ErrNotPowerOfTwo)).To(BeTrue())
		})

		It("should report mixed modes from Build", func() {
			_, err := MakeBuilder().
				WithUnifiedSize(1024).
				WithSplitSizes(1024, 1024).
				Build()

			Expect(errors.Is(err, ErrModeConflict)).To(BeTrue())
		})

		It("should panic on an unknown access kind", func() {
			s, err := MakeBuilder().Build()
			Expect(err).NotTo(HaveOccurred())

			Expect(func() { s.ProcessAccess(0, AccessKind(7)) }).To(Panic())
		})

		It("should reject set indices out of range", func() {
			s, err := MakeBuilder().Build()
			Expect(err).NotTo(HaveOccurred())

			_, err = s.SetInfo(StreamData, 512)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("hooks", func() {
		var (
			mockCtrl *gomock.Controller
			hook     *MockHook
			s        *Simulator
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			hook = NewMockHook(mockCtrl)

			var err error
			s, err = MakeBuilder().
				WithBlockSize(16).
				WithUnifiedSize(16).
				WithHook(hook).
				Build()
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should report every access", func() {
			var events []AccessEvent
			hook.EXPECT().Func(gomock.Any()).
				Do(func(ctx hooking.HookCtx) {
					Expect(ctx.Pos).To(BeIdenticalTo(HookPosAccess))
					events = append(events, ctx.Item.(AccessEvent))
				}).
				Times(3)

			s.ProcessAccess(addrA, DataStore)
			s.ProcessAccess(addrA, DataLoad)
			s.ProcessAccess(addrB, InstructionFetch)

			Expect(events).To(HaveLen(3))
			Expect(events[0].Outcome).To(Equal(OutcomeMiss))
			Expect(events[0].DemandFetch).To(Equal(uint64(4)))
			Expect(events[1].Outcome).To(Equal(OutcomeHit))
			Expect(events[2].Stream).To(Equal(StreamInstruction))
			Expect(events[2].Evicted).To(BeTrue())
			Expect(events[2].EvictedDirty).To(BeTrue())
			Expect(events[2].EvictedAddr).To(Equal(addrA))
			Expect(events[2].CopyBack).To(Equal(uint64(4)))
			Expect(events[2].Seq).To(Equal(uint64(3)))
		})

		It("should report dirty lines written back by a flush", func() {
			hook.EXPECT().Func(gomock.Any()).Times(1)
			s.ProcessAccess(addrB, DataStore)

			var ctxs []hooking.HookCtx
			hook.EXPECT().Func(gomock.Any()).
				Do(func(ctx hooking.HookCtx) { ctxs = append(ctxs, ctx) }).
				Times(2)
			s.Flush()

			Expect(ctxs[0].Pos).To(BeIdenticalTo(HookPosFlush))
			event := ctxs[0].Item.(FlushEvent)
			Expect(event.BlockAddr).To(Equal(addrB))
			Expect(event.CopyBack).To(Equal(uint64(4)))

			Expect(ctxs[1].Pos).To(BeIdenticalTo(HookPosFlushDone))
			Expect(ctxs[1].Item).To(Equal(1))
		})

		It("should report the end of a flush with no dirty line", func() {
			hook.EXPECT().Func(gomock.Any()).Times(1)
			s.ProcessAccess(addrB, DataLoad)

			hook.EXPECT().Func(gomock.Any()).
				Do(func(ctx hooking.HookCtx) {
					Expect(ctx.Pos).To(BeIdenticalTo(HookPosFlushDone))
					Expect(ctx.Item).To(Equal(0))
					Expect(s.Geometry(StreamData).Occupancy).To(BeZero())
				})
			s.Flush()
		})
	})

	It("should describe every policy knob", func() {
		s, err := MakeBuilder().
			WithSplitSizes(4096, 2048).
			WithAssociativity(2).
			WithBlockSize(32).
			WithWriteBack(false).
			WithWriteAllocate(false).
			Build()
		Expect(err).NotTo(HaveOccurred())

		text := s.DescribeConfiguration()

		Expect(text).To(ContainSubstring("Split I- D-cache"))
		Expect(text).To(ContainSubstring("I-cache size: \t4096"))
		Expect(text).To(ContainSubstring("D-cache size: \t2048"))
		Expect(text).To(ContainSubstring("Associativity: \t2"))
		Expect(text).To(ContainSubstring("Block size: \t32"))
		Expect(text).To(ContainSubstring("WRITE THROUGH"))
		Expect(text).To(ContainSubstring("WRITE NO ALLOCATE"))
	})
})
