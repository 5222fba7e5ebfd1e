package aggregator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sanspareilsmyn/mongolens/internal/document"
	"github.com/sanspareilsmyn/mongolens/internal/store"
)

func newTestStore(t *testing.T) *store.Memory {
	t.Helper()
	mem := store.NewMemory("testdb")
	mem.Put("people", people()...)
	mem.Put("orders",
		document.Document{"_id": "o1", "total": 12.5, "items": 3},
		document.Document{"_id": "o2", "total": 7.5, "items": 1},
	)
	mem.Put("events",
		document.Document{"_id": "e1", "kind": "click", "weight": 1},
	)
	require.NoError(t, mem.Connect(context.Background()))
	return mem
}

func TestStatisticsAllCollections(t *testing.T) {
	agg := New(newTestStore(t), zaptest.NewLogger(t), 2)

	results, err := agg.Statistics(context.Background(), Request{})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Empty(t, results.Failed())
	for name, res := range results {
		require.NotNil(t, res.Report, name)
		assert.Equal(t, name, res.Report.Collection)
		assert.Empty(t, res.Error)
	}
	assert.Equal(t, 2, results["orders"].Report.TotalDocuments)
	assert.InDelta(t, 6.0, results["orders"].Report.Statistics.Basic.Mean, 1e-9)
}

func TestStatisticsPartialFailure(t *testing.T) {
	mem := newTestStore(t)
	mem.FailOn("orders", errors.New("cursor killed"))
	agg := New(mem, zaptest.NewLogger(t), 3)

	results, err := agg.Statistics(context.Background(), Request{})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, []string{"orders"}, results.Failed())

	failed := results["orders"]
	assert.Nil(t, failed.Report)
	assert.NotEmpty(t, failed.Error)
	assert.ErrorIs(t, failed.Err, ErrRetrieval)
	assert.ErrorIs(t, failed.Err, store.ErrQueryFailed)

	var retrieval *RetrievalError
	require.ErrorAs(t, failed.Err, &retrieval)
	assert.Equal(t, "orders", retrieval.Collection)

	assert.NotNil(t, results["people"].Report)
	assert.NotNil(t, results["events"].Report)
}

func TestStatisticsMissingCollection(t *testing.T) {
	agg := New(newTestStore(t), zaptest.NewLogger(t), 1)

	results, err := agg.Statistics(context.Background(), Request{Collections: []string{"orders", "ghosts"}})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.NotNil(t, results["orders"].Report)
	assert.ErrorIs(t, results["ghosts"].Err, store.ErrCollectionNotFound)
	assert.ErrorIs(t, results["ghosts"].Err, ErrRetrieval)
}

func TestStatisticsConnectionFailureAborts(t *testing.T) {
	mem := newTestStore(t)
	require.NoError(t, mem.Disconnect(context.Background()))
	agg := New(mem, zaptest.NewLogger(t), 2)

	results, err := agg.Statistics(context.Background(), Request{})
	assert.Nil(t, results)
	assert.ErrorIs(t, err, ErrListing)
	assert.True(t, store.IsConnectionError(err))
}

func TestStatisticsCancelledContextAborts(t *testing.T) {
	agg := New(newTestStore(t), zaptest.NewLogger(t), 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := agg.Statistics(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrRetrieval)
	assert.Nil(t, results)

	_, err = agg.FieldStatistics(ctx, "orders", "total")
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrRetrieval)
}

func TestStatisticsIsIdempotent(t *testing.T) {
	agg := New(newTestStore(t), zaptest.NewLogger(t), 4)
	req := Request{CrossFields: [2]string{"city", "age"}}

	first, err := agg.Statistics(context.Background(), req)
	require.NoError(t, err)
	second, err := agg.Statistics(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestStatisticsDocumentFilterAndCross(t *testing.T) {
	agg := New(newTestStore(t), zaptest.NewLogger(t), 1)

	results, err := agg.Statistics(context.Background(), Request{
		Collections: []string{"orders"},
		DocumentID:  "o2",
		CrossFields: [2]string{"total", "items"},
	})
	require.NoError(t, err)

	report := results["orders"].Report
	require.NotNil(t, report)
	assert.Equal(t, 1, report.TotalDocuments)
	require.NotNil(t, report.Cross)
	assert.Equal(t, 1, report.Cross.PairedDocuments)
	assert.Equal(t, 1, report.Cross.CrossTabulation["7.5"]["1"])
}

func TestCrossFieldStatistics(t *testing.T) {
	agg := New(newTestStore(t), zaptest.NewLogger(t), 1)
	ctx := context.Background()

	report, err := agg.CrossFieldStatistics(ctx, "people", "city", "age")
	require.NoError(t, err)
	assert.Equal(t, 2, report.PairedDocuments)
	assert.Equal(t, 1, report.CrossTabulation["Oslo"]["30"])
	assert.Equal(t, 1, report.CrossTabulation["Rome"]["40"])

	_, err = agg.CrossFieldStatistics(ctx, "people", "", "age")
	assert.ErrorIs(t, err, ErrEmptyField)

	_, err = agg.CrossFieldStatistics(ctx, "ghosts", "a", "b")
	assert.ErrorIs(t, err, ErrRetrieval)
	assert.ErrorIs(t, err, store.ErrCollectionNotFound)
}

func TestFieldStatistics(t *testing.T) {
	mem := newTestStore(t)
	agg := New(mem, zaptest.NewLogger(t), 1)
	ctx := context.Background()

	report, err := agg.FieldStatistics(ctx, "people", "age")
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalDocuments)
	assert.Equal(t, 1, report.NullCount)
	assert.InDelta(t, 40.0, report.Statistics.Basic.Mean, 1e-9)

	_, err = agg.FieldStatistics(ctx, "people", "")
	assert.ErrorIs(t, err, ErrEmptyField)

	require.NoError(t, mem.Disconnect(ctx))
	_, err = agg.FieldStatistics(ctx, "people", "age")
	assert.True(t, store.IsConnectionError(err))
	assert.NotErrorIs(t, err, ErrRetrieval)
}
