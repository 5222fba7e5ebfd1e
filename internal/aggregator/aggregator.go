// Package aggregator turns collections into statistics reports. Reports are
// computed synchronously from a fresh snapshot of each collection.
package aggregator

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sanspareilsmyn/mongolens/internal/document"
	"github.com/sanspareilsmyn/mongolens/internal/store"
)

const snippetLength = 50

// Aggregator fetches documents from a store and builds reports from them.
type Aggregator struct {
	store       store.Store
	logger      *zap.Logger
	parallelism int
}

// New creates an Aggregator processing at most parallelism collections at once.
func New(st store.Store, logger *zap.Logger, parallelism int) *Aggregator {
	if parallelism < 1 {
		parallelism = 1
	}
	logger.Debug("Aggregator initialized", zap.Int("parallelism", parallelism))
	return &Aggregator{store: st, logger: logger, parallelism: parallelism}
}

// Statistics builds a report for every requested collection. A collection
// that cannot be read gets a RetrievalError in its slot and the others are
// still reported. Only a connection failure or a cancelled context aborts
// the whole call.
func (a *Aggregator) Statistics(ctx context.Context, req Request) (Results, error) {
	sugar := a.logger.Sugar()

	available, err := a.store.ListCollections(ctx)
	if err != nil {
		sugar.Errorw("Failed to list collections, aborting statistics", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrListing, err)
	}

	targets := req.Collections
	if len(targets) == 0 {
		targets = available
	}

	filter := store.Filter{}
	if req.DocumentID != "" {
		filter = store.ByID(req.DocumentID)
	}

	results := make(Results, len(targets))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)
	for _, name := range targets {
		g.Go(func() error {
			var result CollectionResult
			if !slices.Contains(available, name) {
				result = a.failed(name, "retrieval", &RetrievalError{Collection: name, Err: store.ErrCollectionNotFound})
			} else {
				var err error
				result, err = a.collectionResult(gctx, name, filter, req)
				if err != nil {
					return err
				}
			}

			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		sugar.Errorw("Statistics aborted", zap.Error(err))
		return nil, err
	}

	sugar.Infow("Statistics computed",
		"collections", len(results),
		"failed", len(results.Failed()),
	)
	return results, nil
}

// collectionResult fetches and reports one collection. The returned error is
// non-nil only for connection failures and a cancelled context.
func (a *Aggregator) collectionResult(ctx context.Context, name string, filter store.Filter, req Request) (CollectionResult, error) {
	docs, err := a.store.FindDocuments(ctx, name, filter)
	if err != nil {
		if store.IsConnectionError(err) {
			return CollectionResult{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return CollectionResult{}, ctxErr
		}
		return a.failed(name, "retrieval", &RetrievalError{Collection: name, Err: err}), nil
	}

	report, err := a.buildReport(name, docs, req)
	if err != nil {
		return a.failed(name, "computation", err), nil
	}

	recordReport(report)
	a.logReport(report)
	return CollectionResult{Report: &report}, nil
}

// buildReport converts a panic in the statistics code into ErrComputation so
// one defective collection cannot take down the others.
func (a *Aggregator) buildReport(name string, docs []document.Document, req Request) (report CollectionReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Statistics computation panicked",
				zap.String("collection", name),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("%w: %s: %v", ErrComputation, name, r)
		}
	}()

	report = BuildCollectionReport(name, docs, req.Options)
	if fieldA, fieldB := req.CrossFields[0], req.CrossFields[1]; fieldA != "" && fieldB != "" {
		cross := CalculateCrossFieldStatistics(name, docs, fieldA, fieldB)
		report.Cross = &cross
	}
	return report, nil
}

func (a *Aggregator) failed(name, kind string, err error) CollectionResult {
	a.logger.Warn("Collection skipped",
		zap.String("collection", name),
		zap.String("kind", kind),
		zap.Error(err),
	)
	recordFailure(name, kind)
	return CollectionResult{Error: err.Error(), Err: err}
}

func (a *Aggregator) logReport(report CollectionReport) {
	a.logger.Debug("Collection report built",
		zap.String("collection", report.Collection),
		zap.Int("documents", report.TotalDocuments),
		zap.Int("numeric_values", report.Statistics.Count),
		zap.Float64("mean", report.Statistics.Basic.Mean),
		zap.Float64("stddev", report.Statistics.Basic.StandardDeviation),
	)
}

// CrossFieldStatistics relates two fields of one collection.
func (a *Aggregator) CrossFieldStatistics(ctx context.Context, collection, fieldA, fieldB string) (CrossFieldReport, error) {
	if fieldA == "" || fieldB == "" {
		return CrossFieldReport{}, ErrEmptyField
	}

	docs, err := a.fetch(ctx, collection, fieldA+","+fieldB)
	if err != nil {
		return CrossFieldReport{}, err
	}
	return CalculateCrossFieldStatistics(collection, docs, fieldA, fieldB), nil
}

// FieldStatistics summarises the numeric values of one field.
func (a *Aggregator) FieldStatistics(ctx context.Context, collection, field string) (FieldReport, error) {
	if field == "" {
		return FieldReport{}, ErrEmptyField
	}

	docs, err := a.fetch(ctx, collection, field)
	if err != nil {
		return FieldReport{}, err
	}
	if len(docs) > 0 {
		a.logger.Debug("Field statistics requested",
			zap.String("collection", collection),
			zap.String("field", field),
			zap.String("first_value", docs[0].FieldSnippet(field, snippetLength)),
		)
	}
	return CalculateFieldStatistics(collection, docs, field), nil
}

func (a *Aggregator) fetch(ctx context.Context, collection, field string) ([]document.Document, error) {
	docs, err := a.store.FindDocuments(ctx, collection, store.Filter{})
	if err == nil {
		return docs, nil
	}
	if store.IsConnectionError(err) {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	recordFailure(collection, "retrieval")
	a.logger.Warn("Field retrieval failed",
		zap.String("collection", collection),
		zap.String("field", field),
		zap.Error(err),
	)
	return nil, &RetrievalError{Collection: collection, Field: field, Err: err}
}
