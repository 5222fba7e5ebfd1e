package aggregator

import (
	"slices"
	"time"

	"github.com/sanspareilsmyn/mongolens/internal/config"
	"github.com/sanspareilsmyn/mongolens/internal/stats"
)

// Options controls how a collection report is built.
type Options struct {
	Period       string   // day, month or year
	PeriodCount  int      // bucket width in periods
	CreatedField string   // creation timestamp field
	UpdatedField string   // update timestamp field
	Fields       []string // fields that get their own report
}

// OptionsFrom builds Options from the analysis configuration.
func OptionsFrom(cfg config.AnalysisConfig) Options {
	return Options{
		Period:       cfg.Period,
		PeriodCount:  cfg.PeriodCount,
		CreatedField: cfg.CreatedField,
		UpdatedField: cfg.UpdatedField,
	}
}

func (o Options) withDefaults() Options {
	if o.Period == "" {
		o.Period = config.PeriodMonth
	}
	if o.PeriodCount < 1 {
		o.PeriodCount = 1
	}
	if o.CreatedField == "" {
		o.CreatedField = "createdAt"
	}
	if o.UpdatedField == "" {
		o.UpdatedField = "updatedAt"
	}
	return o
}

// PeriodBucket counts documents created, and created-then-modified, within
// one calendar bucket.
type PeriodBucket struct {
	Created  int `json:"created"`
	Modified int `json:"modified"`
}

// DocumentModification is the timestamp detail of one document.
type DocumentModification struct {
	ID                string     `json:"id"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         *time.Time `json:"updatedAt"`
	ModificationCount int        `json:"modificationCount"`
}

// ModificationSummary describes document timestamps and null values.
// Unmodified counts timestamped documents with no distinct update time.
type ModificationSummary struct {
	Timestamped   int                     `json:"timestamped"`
	Modified      int                     `json:"modified"`
	Unmodified    int                     `json:"unmodified"`
	NullValues    int                     `json:"nullValues"`
	ByPeriod      map[string]PeriodBucket `json:"byPeriod"`
	Statistics    stats.Report            `json:"statistics"`
	MinDocumentID string                  `json:"minModificationsDocumentId,omitempty"`
	MaxDocumentID string                  `json:"maxModificationsDocumentId,omitempty"`
	Documents     []DocumentModification  `json:"documents,omitempty"`
}

// CollectionReport is the statistics summary of one collection.
type CollectionReport struct {
	Collection     string                  `json:"collection"`
	TotalDocuments int                     `json:"totalDocuments"`
	Statistics     stats.Report            `json:"statistics"`
	Fields         map[string]stats.Report `json:"fields,omitempty"`
	Modifications  ModificationSummary     `json:"modifications"`
	Cross          *CrossFieldReport       `json:"crossTabulation,omitempty"`
}

// FieldFrequency is the distribution of one field's distinct values. Its
// Statistics describe the per-value occurrence counts, not the raw values.
type FieldFrequency struct {
	Field      string         `json:"field"`
	Present    int            `json:"present"`
	Counts     map[string]int `json:"counts"`
	Statistics stats.Report   `json:"statistics"`
}

// CrossFieldReport relates two fields of the same collection.
type CrossFieldReport struct {
	Collection      string                         `json:"collection"`
	TotalDocuments  int                            `json:"totalDocuments"`
	FieldA          FieldFrequency                 `json:"fieldA"`
	FieldB          FieldFrequency                 `json:"fieldB"`
	PairedDocuments int                            `json:"pairedDocuments"`
	CrossTabulation stats.CrossTab[string, string] `json:"crossTabulation"`
}

// FieldReport is the numeric summary of a single field.
type FieldReport struct {
	Collection     string       `json:"collection"`
	Field          string       `json:"field"`
	TotalDocuments int          `json:"totalDocuments"`
	NullCount      int          `json:"nullCount"`
	NonNumeric     int          `json:"nonNumeric"`
	Statistics     stats.Report `json:"statistics"`
}

// CollectionResult is one slot of a multi-collection result: either a report
// or the error that prevented it.
type CollectionResult struct {
	Report *CollectionReport `json:"report,omitempty"`
	Error  string            `json:"error,omitempty"`
	Err    error             `json:"-"`
}

// Results maps collection name to its result slot.
type Results map[string]CollectionResult

// Failed returns the names of collections whose slot holds an error, sorted.
func (r Results) Failed() []string {
	var failed []string
	for name, res := range r {
		if res.Err != nil {
			failed = append(failed, name)
		}
	}
	slices.Sort(failed)
	return failed
}

// Request selects what Aggregator.Statistics analyses.
type Request struct {
	// Collections to analyse; empty means every collection.
	Collections []string
	// DocumentID restricts a single-collection request to one document.
	DocumentID string
	// CrossFields, when both are set, adds a cross-tabulation to each report.
	CrossFields [2]string
	Options     Options
}
