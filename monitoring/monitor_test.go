package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cachesim/mem/cache"
)

type directInspector struct {
	sim *cache.Simulator
}

func (i directInspector) Inspect(fn func(s *cache.Simulator)) {
	fn(i.sim)
}

var _ = Describe("Monitor", func() {
	var (
		m   *Monitor
		sim *cache.Simulator
	)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		m.Handler().ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		var err error
		sim, err = cache.MakeBuilder().
			WithSplitSizes(64, 64).
			WithBlockSize(16).
			Build()
		Expect(err).NotTo(HaveOccurred())

		m = NewMonitor()
	})

	It("should reject random low port numbers", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(8080)
		Expect(m.portNumber).To(Equal(8080))
	})

	It("should answer 503 before a simulation is registered", func() {
		rec := get("/api/stats")
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	Context("with a simulation", func() {
		BeforeEach(func() {
			m.RegisterInspector(directInspector{sim: sim})

			sim.ProcessAccess(0x0, cache.InstructionFetch)
			sim.ProcessAccess(0x0, cache.DataStore)
			sim.ProcessAccess(0x4, cache.DataLoad)
		})

		It("should report the configuration", func() {
			rec := get("/api/config")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var rsp configRsp
			Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
			Expect(rsp.Mode).To(Equal("split"))
			Expect(rsp.BlockSize).To(Equal(16))
			Expect(rsp.WritePolicy).To(Equal("WRITE BACK"))
			Expect(rsp.Data.NumSets).To(Equal(4))
			Expect(rsp.Data.Occupancy).To(Equal(1))
			Expect(rsp.Description).To(ContainSubstring("CACHE SETTINGS"))
		})

		It("should report the statistics", func() {
			rec := get("/api/stats")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var rsp statsRsp
			Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
			Expect(rsp.Instruction.Accesses).To(Equal(uint64(1)))
			Expect(rsp.Data.Accesses).To(Equal(uint64(2)))
			Expect(rsp.Data.Misses).To(Equal(uint64(1)))
			Expect(rsp.DemandFetches).To(Equal(uint64(8)))
		})

		It("should dump a set", func() {
			rec := get("/api/set/data/0")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.Len()).To(BeNumerically(">", 0))
		})

		It("should reject an unknown cache", func() {
			rec := get("/api/set/l2/0")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should reject a bad index", func() {
			rec := get("/api/set/data/x")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should answer 404 for a set out of range", func() {
			rec := get("/api/set/instruction/4")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	It("should list progress bars", func() {
		bar := m.CreateProgressBar("trace", 10)
		bar.IncrementFinished(2)

		rec := get("/api/progress")

		var bars []ProgressStatus
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("trace"))
		Expect(bars[0].Finished).To(Equal(uint64(2)))
		Expect(bars[0].Total).To(Equal(uint64(10)))

		m.CompleteProgressBar(bar)

		rec = get("/api/progress")
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(BeEmpty())
	})

	It("should report resources", func() {
		rec := get("/api/resource")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should serve the index page", func() {
		rec := get("/")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should serve metrics", func() {
		h := NewMetricsHook(m.Registry(), "cachesim", nil)
		sim.AcceptHook(h)
		sim.ProcessAccess(0x100, cache.DataLoad)

		rec := get("/metrics")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).
			To(ContainSubstring("cachesim_cache_accesses_total"))
	})
})
