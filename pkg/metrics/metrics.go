package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PollsTotal counts synchronization rounds by outcome (published/suppressed).
var PollsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orderbook_client_polls_total",
		Help: "Total number of lifecycle synchronization rounds",
	},
	[]string{"outcome"},
)

// EndpointFailures counts failed event queries by read endpoint
var EndpointFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orderbook_client_endpoint_failures_total",
		Help: "Total number of failed reads per RPC endpoint",
	},
	[]string{"endpoint"},
)

// Event fetch cache metrics
var (
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderbook_client_fetch_cache_hits_total",
			Help: "Event fetches served from the result cache",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderbook_client_fetch_cache_misses_total",
			Help: "Event fetches that invoked the underlying endpoint",
		},
	)
)

// OrdersTracked reports the number of broadcast orders known per maker
var OrdersTracked = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "orderbook_client_orders_tracked",
		Help: "Number of broadcast orders currently tracked per maker",
	},
	[]string{"maker"},
)

// PollDuration records latency distribution of full synchronization rounds
var PollDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "orderbook_client_poll_duration_seconds",
		Help:    "Latency in seconds of a full synchronization round",
		Buckets: prometheus.DefBuckets,
	},
)

func init() {
	prometheus.MustRegister(PollsTotal, EndpointFailures)
	prometheus.MustRegister(CacheHits, CacheMisses)
	prometheus.MustRegister(OrdersTracked, PollDuration)
}
