package network

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerd_messages_received_total",
		Help: "Peer protocol messages received, by command.",
	}, []string{"command"})

	blocksAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerd_blocks_accepted_total",
		Help: "Blocks accepted from peers or mined locally.",
	})

	transactionsPooled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledgerd_mempool_size",
		Help: "Transactions currently held in the mempool.",
	})

	peersKnown = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledgerd_known_peers",
		Help: "Peer addresses currently known to this node.",
	})

	peerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerd_peer_errors_total",
		Help: "Non-fatal errors reaching or handling a peer, by command.",
	}, []string{"command"})
)

// ServeMetrics starts a Prometheus /metrics endpoint on addr. It returns once
// the listener fails (e.g. on shutdown); callers typically run it in a
// goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
