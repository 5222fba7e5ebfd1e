package watch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	changeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mongolens_change_events_total",
			Help: "Change events accumulated, by operation type.",
		},
		[]string{"operation"}, // insert, update, replace, delete, ignored
	)
	changeDuplicates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mongolens_change_events_duplicate_total",
			Help: "Change events skipped because their id was already accumulated.",
		},
	)
	changeDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mongolens_change_events_dropped_total",
			Help: "Change events not forwarded because the publisher queue was full.",
		},
	)
	changePublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mongolens_change_events_published_total",
			Help: "Change events handed to the publisher, by outcome.",
		},
		[]string{"outcome"}, // ok, error
	)
	documentLifetime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mongolens_document_lifetime_seconds",
			Help:    "Time between a document's insert and delete events within one session.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
)
