package httpconn

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// openConnections tracks every Connection between newConnection and the
	// moment its last logical reference is released.
	openConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "celeris_httpconn_open_connections",
			Help: "Current number of open HTTP connections (client and server)",
		},
	)

	// connectionReleasesTotal counts every Connection.Release call that
	// dropped the last logical reference and tore the channel down.
	connectionReleasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "celeris_httpconn_connection_releases_total",
			Help: "Total number of connections whose last reference was released",
		},
		[]string{"role"},
	)

	// dialFailuresTotal counts client dials and server accepts that never
	// produced a usable Connection, labeled by which stage failed.
	dialFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "celeris_httpconn_dial_failures_total",
			Help: "Total number of failed client dials or server accepts",
		},
		[]string{"role", "stage"},
	)
)
