package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Definition
var (
	collectionDocuments = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mongolens_collection_documents",
			Help: "Number of documents analysed in the last report of a collection.",
		},
		[]string{"collection"},
	)
	collectionNumericValues = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mongolens_collection_numeric_values",
			Help: "Number of numeric values extracted in the last report of a collection.",
		},
		[]string{"collection"},
	)
	collectionMean = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mongolens_collection_mean_value",
			Help: "Mean of the numeric values of a collection.",
		},
		[]string{"collection"},
	)
	collectionStdDev = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mongolens_collection_stddev_value",
			Help: "Population standard deviation of the numeric values of a collection.",
		},
		[]string{"collection"},
	)
	collectionSkewness = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mongolens_collection_skewness_value",
			Help: "Skewness of the numeric values of a collection.",
		},
		[]string{"collection"},
	)
	collectionKurtosis = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mongolens_collection_kurtosis_value",
			Help: "Excess kurtosis of the numeric values of a collection.",
		},
		[]string{"collection"},
	)
	collectionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mongolens_collection_failures_total",
			Help: "Number of report attempts for a collection that ended in an error.",
		},
		[]string{"collection", "kind"}, // kind: retrieval, computation
	)
)

func recordReport(report CollectionReport) {
	name := report.Collection
	collectionDocuments.WithLabelValues(name).Set(float64(report.TotalDocuments))
	collectionNumericValues.WithLabelValues(name).Set(float64(report.Statistics.Count))
	collectionMean.WithLabelValues(name).Set(report.Statistics.Basic.Mean)
	collectionStdDev.WithLabelValues(name).Set(report.Statistics.Basic.StandardDeviation)
	collectionSkewness.WithLabelValues(name).Set(report.Statistics.Advanced.Skewness)
	collectionKurtosis.WithLabelValues(name).Set(report.Statistics.Advanced.Kurtosis)
}

func recordFailure(collection, kind string) {
	collectionFailures.WithLabelValues(collection, kind).Inc()
}
