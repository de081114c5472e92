package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	samplesFiltered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "metricbridge",
		Subsystem: "router",
		Name:      "samples_filtered_total",
		Help:      "Samples dropped as the store's own service activity.",
	})
	metricsUnhandled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "metricbridge",
		Subsystem: "router",
		Name:      "metrics_unhandled_total",
		Help:      "Groups skipped because no resource definition matched.",
	})
	groupsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "metricbridge",
		Subsystem: "router",
		Name:      "groups_processed_total",
		Help:      "Per-metric sample groups routed to the store successfully.",
	})
	groupsAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "metricbridge",
		Subsystem: "router",
		Name:      "groups_abandoned_total",
		Help:      "Groups abandoned after an unexpected workflow or connection error.",
	})
	storeReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "metricbridge",
		Subsystem: "router",
		Name:      "store_reconnects_total",
		Help:      "Times the cached store connection was invalidated after a transport failure.",
	})
)
