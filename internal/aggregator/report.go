package aggregator

import (
	"github.com/sanspareilsmyn/mongolens/internal/document"
	"github.com/sanspareilsmyn/mongolens/internal/extract"
	"github.com/sanspareilsmyn/mongolens/internal/stats"
)

// CalculateStatistics builds one report per document set. It is the pure core
// of Aggregator.Statistics and never fails.
func CalculateStatistics(sets map[string][]document.Document, opts Options) map[string]CollectionReport {
	reports := make(map[string]CollectionReport, len(sets))
	for name, docs := range sets {
		reports[name] = BuildCollectionReport(name, docs, opts)
	}
	return reports
}

// BuildCollectionReport computes whole-collection numeric statistics, the
// per-field reports requested in opts and the modification summary.
func BuildCollectionReport(collection string, docs []document.Document, opts Options) CollectionReport {
	opts = opts.withDefaults()

	report := CollectionReport{
		Collection:     collection,
		TotalDocuments: len(docs),
		Statistics:     stats.Describe(extract.NumericValues(docs)),
		Modifications:  summarizeModifications(docs, opts),
	}

	if len(opts.Fields) > 0 {
		report.Fields = make(map[string]stats.Report, len(opts.Fields))
		for _, field := range opts.Fields {
			report.Fields[field] = stats.Describe(extract.FieldNumbers(docs, field))
		}
	}
	return report
}

// summarizeModifications counts created and modified documents per period.
// A modified document's modification count is the number of modified
// documents seen so far that share its creation instant; the distribution of
// the final per-instant counts is described in Statistics.
func summarizeModifications(docs []document.Document, opts Options) ModificationSummary {
	summary := ModificationSummary{
		NullValues: extract.NullValues(docs),
		ByPeriod:   make(map[string]PeriodBucket),
	}

	perInstant := make(map[int64]int)
	var instants []int64
	minCount, maxCount := 0, 0

	for _, doc := range docs {
		created, ok := doc.Time(opts.CreatedField)
		if !ok {
			continue
		}
		summary.Timestamped++

		key := BucketKey(created, opts.Period, opts.PeriodCount)
		bucket := summary.ByPeriod[key]
		bucket.Created++

		detail := DocumentModification{
			ID:        documentID(doc),
			CreatedAt: created,
		}
		updated, hasUpdate := doc.Time(opts.UpdatedField)
		if hasUpdate {
			detail.UpdatedAt = &updated
		}

		if hasUpdate && !updated.Equal(created) {
			summary.Modified++
			bucket.Modified++

			instant := created.UnixNano()
			if _, seen := perInstant[instant]; !seen {
				instants = append(instants, instant)
			}
			perInstant[instant]++
			detail.ModificationCount = perInstant[instant]

			if summary.MinDocumentID == "" || detail.ModificationCount < minCount {
				summary.MinDocumentID, minCount = detail.ID, detail.ModificationCount
			}
			if summary.MaxDocumentID == "" || detail.ModificationCount > maxCount {
				summary.MaxDocumentID, maxCount = detail.ID, detail.ModificationCount
			}
		} else {
			summary.Unmodified++
		}
		summary.ByPeriod[key] = bucket
		summary.Documents = append(summary.Documents, detail)
	}

	counts := make([]float64, len(instants))
	for i, instant := range instants {
		counts[i] = float64(perInstant[instant])
	}
	summary.Statistics = stats.Describe(counts)
	return summary
}

func documentID(doc document.Document) string {
	id, ok := doc["_id"]
	if !ok {
		return ""
	}
	return document.FormatValue(id)
}

// CalculateCrossFieldStatistics relates two fields. Each field's frequency
// report uses every document where that field is present; the
// cross-tabulation only pairs documents where both fields are present.
func CalculateCrossFieldStatistics(collection string, docs []document.Document, fieldA, fieldB string) CrossFieldReport {
	xs, ys := extract.Pairs(docs, fieldA, fieldB)
	table := stats.CrossTabulate(extract.Keys(xs), extract.Keys(ys))

	return CrossFieldReport{
		Collection:      collection,
		TotalDocuments:  len(docs),
		FieldA:          fieldFrequency(docs, fieldA),
		FieldB:          fieldFrequency(docs, fieldB),
		PairedDocuments: table.Total(),
		CrossTabulation: table,
	}
}

func fieldFrequency(docs []document.Document, field string) FieldFrequency {
	freq := extract.CountValues(extract.FieldValues(docs, field))
	return FieldFrequency{
		Field:      field,
		Present:    freq.Total(),
		Counts:     freq.Counts,
		Statistics: stats.Describe(freq.Sequence()),
	}
}

// CalculateFieldStatistics summarises the numeric values of one field.
func CalculateFieldStatistics(collection string, docs []document.Document, field string) FieldReport {
	present := extract.FieldValues(docs, field)
	numbers := extract.FieldNumbers(docs, field)

	return FieldReport{
		Collection:     collection,
		Field:          field,
		TotalDocuments: len(docs),
		NullCount:      len(docs) - len(present),
		NonNumeric:     len(present) - len(numbers),
		Statistics:     stats.Describe(numbers),
	}
}
