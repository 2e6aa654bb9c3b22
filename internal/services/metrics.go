package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// roundsSubmitted counts order rounds submitted across all tables.
	roundsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "table_rounds_submitted_total",
		Help: "Total number of order rounds submitted.",
	})

	// sessionsClosed counts table sessions that completed the close flow.
	sessionsClosed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "table_sessions_closed_total",
		Help: "Total number of table sessions closed and paid.",
	})
)

func init() {
	prometheus.MustRegister(roundsSubmitted, sessionsClosed)
}
