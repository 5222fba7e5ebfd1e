// Package extract turns heterogeneous documents into the sequences the
// statistics library works on.
package extract

import (
	"github.com/sanspareilsmyn/mongolens/internal/document"
)

// NumericValues collects every finite top-level numeric value across all
// documents. Documents are scanned in order and fields in sorted key order.
func NumericValues(docs []document.Document) []float64 {
	values := make([]float64, 0, len(docs))
	for _, doc := range docs {
		for _, key := range doc.Keys() {
			if f, ok := document.Number(doc[key]); ok {
				values = append(values, f)
			}
		}
	}
	return values
}

// FieldValues projects one field across documents, skipping documents where
// the field is missing or null. Values are not coerced.
func FieldValues(docs []document.Document, field string) []any {
	values := make([]any, 0, len(docs))
	for _, doc := range docs {
		if doc.HasNonNull(field) {
			values = append(values, doc[field])
		}
	}
	return values
}

// FieldNumbers projects one field and keeps only its finite numeric values.
func FieldNumbers(docs []document.Document, field string) []float64 {
	values := make([]float64, 0, len(docs))
	for _, doc := range docs {
		if f, ok := doc.Float64(field); ok {
			values = append(values, f)
		}
	}
	return values
}

// Pairs projects two fields jointly: only documents where both fields are
// present and non-null contribute, so xs[i] and ys[i] always come from the
// same document.
func Pairs(docs []document.Document, fieldA, fieldB string) (xs, ys []any) {
	for _, doc := range docs {
		if doc.HasNonNull(fieldA) && doc.HasNonNull(fieldB) {
			xs = append(xs, doc[fieldA])
			ys = append(ys, doc[fieldB])
		}
	}
	return xs, ys
}

// Keys renders values in their canonical string form.
func Keys(values []any) []string {
	keys := make([]string, len(values))
	for i, v := range values {
		keys[i] = document.FormatValue(v)
	}
	return keys
}

// Frequencies counts occurrences of each distinct value. Distinct values are
// returned in order of first appearance alongside their counts.
type Frequencies struct {
	Values []string       `json:"-"`
	Counts map[string]int `json:"counts"`
}

// CountValues builds the Frequencies of values keyed by FormatValue.
func CountValues(values []any) Frequencies {
	freq := Frequencies{Counts: make(map[string]int)}
	for _, key := range Keys(values) {
		if _, seen := freq.Counts[key]; !seen {
			freq.Values = append(freq.Values, key)
		}
		freq.Counts[key]++
	}
	return freq
}

// Sequence returns the counts in first-appearance order as a numeric sequence.
func (f Frequencies) Sequence() []float64 {
	seq := make([]float64, len(f.Values))
	for i, v := range f.Values {
		seq[i] = float64(f.Counts[v])
	}
	return seq
}

// Total returns the number of values counted.
func (f Frequencies) Total() int {
	total := 0
	for _, c := range f.Counts {
		total += c
	}
	return total
}

// NullValues counts top-level fields holding an explicit null.
func NullValues(docs []document.Document) int {
	count := 0
	for _, doc := range docs {
		for _, v := range doc {
			if v == nil {
				count++
			}
		}
	}
	return count
}
