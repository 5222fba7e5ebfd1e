package inspect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sanspareilsmyn/mongolens/internal/document"
	"github.com/sanspareilsmyn/mongolens/internal/store"
)

func newInspector(t *testing.T, sampleSize int64) (*Inspector, *store.Memory) {
	t.Helper()
	mem := store.NewMemory("testdb")
	mem.Put("people",
		document.Document{"name": "ann", "age": 30, "createdAt": time.Unix(0, 0).UTC()},
		document.Document{"name": "bob", "age": "forty"},
		document.Document{"name": "cid", "age": 50, "tags": []any{"a"}},
	)
	mem.Put("orders", document.Document{"total": 12.5})
	require.NoError(t, mem.Connect(context.Background()))
	return New(mem, sampleSize, zaptest.NewLogger(t)), mem
}

func TestCollections(t *testing.T) {
	in, mem := newInspector(t, 0)
	mem.FailOn("orders", errors.New("locked"))

	infos, err := in.Collections(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, "orders", infos[0].Name)
	assert.NotEmpty(t, infos[0].Error)
	assert.Equal(t, CollectionInfo{Name: "people", Documents: 3}, infos[1])
}

func TestCollectionsNotConnected(t *testing.T) {
	in, mem := newInspector(t, 0)
	require.NoError(t, mem.Disconnect(context.Background()))

	_, err := in.Collections(context.Background())
	assert.ErrorIs(t, err, ErrListing)
	assert.True(t, store.IsConnectionError(err))
}

func TestStorageAnalysis(t *testing.T) {
	in, mem := newInspector(t, 0)
	ctx := context.Background()

	report, err := in.StorageAnalysis(ctx)
	require.NoError(t, err)
	require.Len(t, report.Collections, 2)

	var total int64
	for _, c := range report.Collections {
		assert.Empty(t, c.Error)
		assert.Positive(t, c.SizeBytes)
		assert.InDelta(t, 100.0, c.Utilization, 1e-9)
		total += c.SizeBytes
	}
	assert.Equal(t, 2, report.Summary.TotalCollections)
	assert.Equal(t, total, report.Summary.TotalSize)
	assert.InDelta(t, float64(total)/2, report.Summary.AverageCollectionSize, 1e-9)

	mem.FailOn("people", errors.New("locked"))
	report, err = in.StorageAnalysis(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, report.Collections[1].Error)
	assert.Equal(t, report.Collections[0].SizeBytes, report.Summary.TotalSize)
}

func TestFieldTypes(t *testing.T) {
	in, _ := newInspector(t, 0)

	report, err := in.FieldTypes(context.Background(), "people")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Sampled)
	assert.Equal(t, 4, report.TotalFields)
	assert.Equal(t, map[string]int{document.TypeNumber: 2, document.TypeString: 1}, report.Types["age"])
	assert.Equal(t, map[string]int{document.TypeArray: 1}, report.Types["tags"])

	assert.Equal(t, []CommonField{
		{Field: "name", Type: document.TypeString, Count: 3},
		{Field: "age", Type: document.TypeNumber, Count: 2},
		{Field: "createdAt", Type: document.TypeDate, Count: 1},
		{Field: "tags", Type: document.TypeArray, Count: 1},
	}, report.CommonFields)
}

func TestSurveyFieldTypesKeepsFiveMostCommon(t *testing.T) {
	doc := document.Document{"a": 1, "b": 1, "c": 1, "d": 1, "e": 1, "f": 1, "g": 1}
	report := SurveyFieldTypes("wide", []document.Document{doc, {"g": 2}})

	assert.Equal(t, 7, report.TotalFields)
	require.Len(t, report.CommonFields, commonFieldLimit)
	assert.Equal(t, "g", report.CommonFields[0].Field)
	assert.Equal(t, 2, report.CommonFields[0].Count)
	assert.Equal(t, "a", report.CommonFields[1].Field)
	assert.Equal(t, "d", report.CommonFields[4].Field)
}

func TestDistribution(t *testing.T) {
	in, _ := newInspector(t, 2)

	report, err := in.Distribution(context.Background(), "people")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Sampled)
	assert.Equal(t, 2, report.FieldCounts.Count)
	assert.InDelta(t, 2.5, report.FieldCounts.Basic.Mean, 1e-9)
	assert.Equal(t, 2, report.DocumentSizes.Count)
	assert.Positive(t, report.DocumentSizes.Basic.Mean)
}

func TestSampleErrors(t *testing.T) {
	in, mem := newInspector(t, 0)
	ctx := context.Background()

	_, err := in.Distribution(ctx, "ghosts")
	assert.ErrorIs(t, err, ErrSampling)
	assert.ErrorIs(t, err, store.ErrCollectionNotFound)

	require.NoError(t, mem.Disconnect(ctx))
	_, err = in.FieldTypes(ctx, "people")
	assert.NotErrorIs(t, err, ErrSampling)
	assert.True(t, store.IsConnectionError(err))
}

func TestDatabaseAndServer(t *testing.T) {
	in, _ := newInspector(t, 0)
	ctx := context.Background()

	db, err := in.DatabaseInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "testdb", db.Name)
	assert.Equal(t, int64(2), db.Collections)
	assert.Equal(t, int64(4), db.Objects)

	status, err := in.ServerStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", status.Host)
}

func TestComplete(t *testing.T) {
	in, mem := newInspector(t, 0)
	mem.FailOn("orders", errors.New("locked"))
	at := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	in.now = func() time.Time { return at }

	report, err := in.Complete(context.Background())
	require.NoError(t, err)

	assert.Equal(t, at, report.Timestamp)
	assert.Equal(t, "testdb", report.Database.Name)
	require.NotNil(t, report.Server)
	assert.Equal(t, "memory", report.Server.Host)
	assert.Len(t, report.Storage.Collections, 2)

	require.Len(t, report.Collections, 2)
	assert.Equal(t, []string{"orders"}, report.Failed())

	orders := report.Collections["orders"]
	assert.ErrorIs(t, orders.Err, ErrSampling)
	assert.Nil(t, orders.FieldTypes)
	assert.Nil(t, orders.Distribution)

	people := report.Collections["people"]
	assert.Empty(t, people.Error)
	assert.Equal(t, int64(3), people.Storage.Documents)
	require.NotNil(t, people.FieldTypes)
	assert.Equal(t, 3, people.FieldTypes.Sampled)
	require.NotNil(t, people.Distribution)
	assert.Equal(t, 3, people.Distribution.FieldCounts.Count)
}

func TestCompleteAbortsWhenDisconnected(t *testing.T) {
	in, mem := newInspector(t, 0)
	require.NoError(t, mem.Disconnect(context.Background()))

	_, err := in.Complete(context.Background())
	assert.True(t, store.IsConnectionError(err))
}
