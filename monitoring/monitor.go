// Package monitoring turns a running simulation into a web server so that it
// can be watched from a browser or scraped by Prometheus.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/monitoring/web"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// An Inspector gives serialized access to a simulator that may be running in
// another goroutine.
type Inspector interface {
	Inspect(fn func(s *cache.Simulator))
}

// Monitor can turn a simulation into a server and allows external monitoring
// of the simulation.
type Monitor struct {
	inspector  Inspector
	portNumber int
	registry   *prometheus.Registry

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		registry: prometheus.NewRegistry(),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterInspector sets the simulator to be monitored.
func (m *Monitor) RegisterInspector(i Inspector) {
	m.inspector = i
}

// Registry returns the Prometheus registry served at /metrics.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router that serves the monitoring API.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/config", m.reportConfig)
	r.HandleFunc("/api/stats", m.reportStats)
	r.HandleFunc("/api/set/{cache}/{index}", m.reportSet)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics",
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	handler := m.Handler()

	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()

	return url
}

func (m *Monitor) inspectOr503(
	w http.ResponseWriter,
	fn func(s *cache.Simulator),
) bool {
	if m.inspector == nil {
		http.Error(w, "no simulation registered", http.StatusServiceUnavailable)
		return false
	}

	m.inspector.Inspect(fn)

	return true
}

type configRsp struct {
	Mode          string `json:"mode"`
	BlockSize     int    `json:"block_size"`
	Associativity int    `json:"associativity"`
	WritePolicy   string `json:"write_policy"`
	AllocPolicy   string `json:"allocation_policy"`
	Description   string `json:"description"`

	Instruction cache.Geometry `json:"instruction"`
	Data        cache.Geometry `json:"data"`
}

func (m *Monitor) reportConfig(w http.ResponseWriter, _ *http.Request) {
	var rsp configRsp

	ok := m.inspectOr503(w, func(s *cache.Simulator) {
		c := s.Config()
		rsp = configRsp{
			Mode:          c.Mode.String(),
			BlockSize:     c.BlockSize,
			Associativity: c.Associativity,
			WritePolicy:   c.WritePolicy(),
			AllocPolicy:   c.AllocationPolicy(),
			Description:   s.DescribeConfiguration(),
			Instruction:   s.Geometry(cache.StreamInstruction),
			Data:          s.Geometry(cache.StreamData),
		}
	})
	if !ok {
		return
	}

	writeJSON(w, rsp)
}

type statsRsp struct {
	Instruction   cache.Stats `json:"instruction"`
	Data          cache.Stats `json:"data"`
	DemandFetches uint64      `json:"demand_fetches"`
	CopiesBack    uint64      `json:"copies_back"`
}

func (m *Monitor) reportStats(w http.ResponseWriter, _ *http.Request) {
	var rsp statsRsp

	ok := m.inspectOr503(w, func(s *cache.Simulator) {
		rsp.Instruction = s.Statistics(cache.StreamInstruction)
		rsp.Data = s.Statistics(cache.StreamData)
		rsp.DemandFetches, rsp.CopiesBack = s.Traffic()
	})
	if !ok {
		return
	}

	writeJSON(w, rsp)
}

func (m *Monitor) reportSet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	stream, err := cache.ParseStream(vars["cache"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var (
		info    cache.SetInfo
		infoErr error
	)

	ok := m.inspectOr503(w, func(s *cache.Simulator) {
		info, infoErr = s.SetInfo(stream, index)
	})
	if !ok {
		return
	}

	if infoErr != nil {
		http.Error(w, infoErr.Error(), http.StatusNotFound)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&info)
	serializer.SetMaxDepth(3)
	err = serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]ProgressStatus, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.Status())
	}

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
