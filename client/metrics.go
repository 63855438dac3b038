package client

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mnehpets/rpcrequest/jsonrpc"
)

// OtherMethod labels calls to methods outside a Metrics allow list.
const OtherMethod = "other"

// Metrics records calls made by a Client. A nil *Metrics records nothing.
//
// Method names come from callers and become label values, so a client
// calling arbitrary or generated method names should pass an allow list to
// NewMetrics to bound the number of series.
type Metrics struct {
	// Calls counts calls by method and outcome code ("ok" for responses
	// without an error member).
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec

	methods map[string]bool
}

// NewMetrics registers the client collectors with registry, or with the
// default registerer when registry is nil. When methods are given, calls to
// any other method are labelled OtherMethod.
func NewMetrics(registry prometheus.Registerer, methods ...string) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	var allowed map[string]bool
	if len(methods) > 0 {
		allowed = make(map[string]bool, len(methods))
		for _, m := range methods {
			allowed[m] = true
		}
	}
	factory := promauto.With(registry)
	return &Metrics{
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jsonrpc_client",
			Name:      "calls_total",
			Help:      "The total number of JSON-RPC calls by method and result code",
		}, []string{"method", "code"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jsonrpc_client",
			Name:      "call_duration_seconds",
			Help:      "Time from call start to normalized response",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		methods: allowed,
	}
}

func (m *Metrics) observe(method string, resp *jsonrpc.Response, elapsed time.Duration) {
	if m == nil {
		return
	}
	if m.methods != nil && !m.methods[method] {
		method = OtherMethod
	}
	code := "ok"
	if resp.Error != nil {
		code = strconv.Itoa(resp.Error.Code)
	}
	m.Calls.WithLabelValues(method, code).Inc()
	m.Duration.WithLabelValues(method).Observe(elapsed.Seconds())
}
