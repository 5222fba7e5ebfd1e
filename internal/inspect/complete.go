package inspect

import (
	"context"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/mongolens/internal/store"
)

// CollectionAnalysis is one slot of a CompleteReport: the storage, shape and
// field types of a collection, or the error that prevented them.
type CollectionAnalysis struct {
	Storage      CollectionStorage   `json:"storage"`
	Distribution *DistributionReport `json:"distribution,omitempty"`
	FieldTypes   *FieldTypeReport    `json:"fieldTypes,omitempty"`
	Error        string              `json:"error,omitempty"`
	Err          error               `json:"-"`
}

// CompleteReport gathers every introspection report taken at one moment.
type CompleteReport struct {
	Timestamp   time.Time                     `json:"timestamp"`
	Database    store.DatabaseStats           `json:"database"`
	Server      *store.ServerStatus           `json:"server,omitempty"`
	ServerError string                        `json:"serverError,omitempty"`
	Storage     StorageReport                 `json:"storage"`
	Collections map[string]CollectionAnalysis `json:"collections"`
}

// Failed returns the names of collections whose slot holds an error, sorted.
func (r CompleteReport) Failed() []string {
	var failed []string
	for _, name := range slices.Sorted(maps.Keys(r.Collections)) {
		if r.Collections[name].Err != nil || r.Collections[name].Error != "" {
			failed = append(failed, name)
		}
	}
	return failed
}

// Complete runs the whole introspection in one pass. Collections that cannot
// be sampled, and a server status the user may not read, are reported in
// place; a connection failure aborts the call.
func (i *Inspector) Complete(ctx context.Context) (CompleteReport, error) {
	report := CompleteReport{Timestamp: i.now().UTC()}

	db, err := i.store.DatabaseStats(ctx)
	if err != nil {
		return CompleteReport{}, err
	}
	report.Database = db

	status, err := i.store.ServerStatus(ctx)
	switch {
	case store.IsConnectionError(err):
		return CompleteReport{}, err
	case err != nil:
		i.logger.Warn("Server status unavailable", zap.Error(err))
		report.ServerError = err.Error()
	default:
		report.Server = &status
	}

	storage, err := i.StorageAnalysis(ctx)
	if err != nil {
		return CompleteReport{}, err
	}
	report.Storage = storage

	report.Collections = make(map[string]CollectionAnalysis, len(storage.Collections))
	for _, entry := range storage.Collections {
		analysis := CollectionAnalysis{Storage: entry, Error: entry.Error}

		docs, err := i.sample(ctx, entry.Name)
		switch {
		case store.IsConnectionError(err):
			return CompleteReport{}, err
		case ctx.Err() != nil:
			return CompleteReport{}, ctx.Err()
		case err != nil:
			i.logger.Warn("Collection analysis incomplete", zap.String("collection", entry.Name), zap.Error(err))
			analysis.Err = err
			analysis.Error = err.Error()
		default:
			types := SurveyFieldTypes(entry.Name, docs)
			shape := i.describeShape(entry.Name, docs)
			analysis.FieldTypes = &types
			analysis.Distribution = &shape
		}
		report.Collections[entry.Name] = analysis
	}

	i.logger.Info("Complete analysis finished",
		zap.Int("collections", len(report.Collections)),
		zap.Int("failed", len(report.Failed())),
	)
	return report, nil
}
