package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// MetricsHook is a hook that exports the activity of a simulator as
// Prometheus counters and gauges.
type MetricsHook struct {
	accesses     *prometheus.CounterVec
	misses       *prometheus.CounterVec
	replacements *prometheus.CounterVec
	demandFetch  *prometheus.CounterVec
	copyBack     *prometheus.CounterVec
	occupancy    *prometheus.GaugeVec
}

// NewMetricsHook constructs a metrics hook.
//   - reg:         registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns:          Prometheus namespace
//   - constLabels: static labels applied to all metrics (may be nil)
func NewMetricsHook(
	reg prometheus.Registerer,
	ns string,
	constLabels prometheus.Labels,
) *MetricsHook {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "cache",
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, labels)
	}

	h := &MetricsHook{
		accesses: counter("accesses_total",
			"Processed references", "stream", "kind"),
		misses: counter("misses_total",
			"Missed references by outcome", "stream", "outcome"),
		replacements: counter("replacements_total",
			"Lines evicted to make room", "stream"),
		demandFetch: counter("demand_fetch_words_total",
			"Words fetched from memory", "stream"),
		copyBack: counter("copy_back_words_total",
			"Words written to memory", "stream"),
		occupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   "cache",
			Name:        "resident_lines",
			Help:        "Number of valid lines",
			ConstLabels: constLabels,
		}, []string{"stream"}),
	}

	reg.MustRegister(h.accesses, h.misses, h.replacements,
		h.demandFetch, h.copyBack, h.occupancy)

	return h
}

// Func updates the metrics with an access or flush event.
func (h *MetricsHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case cache.HookPosAccess:
		h.access(ctx.Item.(cache.AccessEvent))
	case cache.HookPosFlush:
		e := ctx.Item.(cache.FlushEvent)
		h.copyBack.WithLabelValues(e.Stream.String()).Add(float64(e.CopyBack))
	case cache.HookPosFlushDone:
	default:
		return
	}

	if s, ok := ctx.Domain.(*cache.Simulator); ok {
		h.UpdateOccupancy(s)
	}
}

func (h *MetricsHook) access(e cache.AccessEvent) {
	stream := e.Stream.String()

	h.accesses.WithLabelValues(stream, e.Kind.String()).Inc()

	if e.Outcome.IsMiss() {
		h.misses.WithLabelValues(stream, e.Outcome.String()).Inc()
	}

	if e.Evicted {
		h.replacements.WithLabelValues(stream).Inc()
	}

	if e.DemandFetch > 0 {
		h.demandFetch.WithLabelValues(stream).Add(float64(e.DemandFetch))
	}

	if e.CopyBack > 0 {
		h.copyBack.WithLabelValues(stream).Add(float64(e.CopyBack))
	}
}

// UpdateOccupancy sets the resident line gauges from the simulator.
func (h *MetricsHook) UpdateOccupancy(s *cache.Simulator) {
	for _, stream := range cache.Streams {
		h.occupancy.WithLabelValues(stream.String()).
			Set(float64(s.Geometry(stream).Occupancy))
	}
}
