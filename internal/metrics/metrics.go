// Package metrics — prometheus-коллекторы виджета комментариев.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync engine
	EntriesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_comments_entries_read_total",
			Help: "Feed entries merged into the local list",
		},
		[]string{"source"}, // "initial", "live", "history"
	)

	Sends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_comments_sends_total",
			Help: "Send attempts by outcome",
		},
		[]string{"outcome"}, // "confirmed", "rejected", "verification_failed"
	)

	PollsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_comments_polls_skipped_total",
			Help: "Poll ticks suppressed by an operation in flight",
		},
	)

	ReadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_comments_read_failures_total",
			Help: "Transient feed read failures",
		},
		[]string{"operation"}, // "load", "poll", "history"
	)

	Cursor = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_comments_cursor",
			Help: "Local next free feed index",
		},
	)

	// Store
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_comments_store_latency_seconds",
			Help:    "Feed store call latency",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"call"},
	)

	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_comments_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_comments_rate_limit_hits_total",
			Help: "Submits rejected by the rate limiter",
		},
	)

	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_comments_ws_clients",
			Help: "Connected websocket clients",
		},
	)
)
