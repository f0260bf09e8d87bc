package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "vault_indexer"

	StatusSuccess = "success"
	StatusError   = "error"

	ResultInserted  = "inserted"
	ResultDuplicate = "duplicate"
)

// Metrics holds the indexer's Prometheus collectors. All methods are safe on a nil
// receiver so components can run without metrics.
type Metrics struct {
	chainHead  prometheus.Gauge
	checkpoint prometheus.Gauge

	logsFetched prometheus.Counter
	deposits    *prometheus.CounterVec
	rangeErrors *prometheus.CounterVec

	rangeDuration *prometheus.HistogramVec
	rpcCalls      *prometheus.CounterVec
	rpcDuration   *prometheus.HistogramVec
}

// New creates a Metrics instance and registers all collectors with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		chainHead: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "chain_head",
			Help:      "Latest block height reported by the RPC provider",
		}),
		checkpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "checkpoint",
			Help:      "Last block height fully processed and checkpointed",
		}),
		logsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "logs_fetched_total",
			Help:      "Total token logs returned by the RPC provider",
		}),
		deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "deposits_total",
			Help:      "Vault deposits seen, by insert result",
		}, []string{"result"}),
		rangeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "range_errors_total",
			Help:      "Sub-range failures by scan mode and stage",
		}, []string{"mode", "stage"}),
		rangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "range_duration_seconds",
			Help:      "Time to fetch, decode and store one sub-range",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"mode"}),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "Total RPC calls by method and status",
		}, []string{"method", "status"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "duration_seconds",
			Help:      "RPC call duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method"}),
	}

	collectors := []prometheus.Collector{
		m.chainHead, m.checkpoint, m.logsFetched, m.deposits,
		m.rangeErrors, m.rangeDuration, m.rpcCalls, m.rpcDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) SetChainHead(height uint64) {
	if m == nil {
		return
	}
	m.chainHead.Set(float64(height))
}

func (m *Metrics) SetCheckpoint(height uint64) {
	if m == nil {
		return
	}
	m.checkpoint.Set(float64(height))
}

func (m *Metrics) AddLogsFetched(n int) {
	if m == nil {
		return
	}
	m.logsFetched.Add(float64(n))
}

// IncDeposit counts a deposit by whether the insert wrote a new row.
func (m *Metrics) IncDeposit(inserted bool) {
	if m == nil {
		return
	}
	result := ResultDuplicate
	if inserted {
		result = ResultInserted
	}
	m.deposits.WithLabelValues(result).Inc()
}

func (m *Metrics) IncRangeError(mode, stage string) {
	if m == nil {
		return
	}
	m.rangeErrors.WithLabelValues(mode, stage).Inc()
}

func (m *Metrics) ObserveRange(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.rangeDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// RecordRPCCall records the outcome and latency of one provider call.
func (m *Metrics) RecordRPCCall(method string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.rpcCalls.WithLabelValues(method, status).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(d.Seconds())
}
