package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sanspareilsmyn/mongolens/internal/aggregator"
	"github.com/sanspareilsmyn/mongolens/internal/document"
	"github.com/sanspareilsmyn/mongolens/internal/inspect"
	"github.com/sanspareilsmyn/mongolens/internal/store"
)

func sampleBundle() Bundle {
	docs := []document.Document{
		{"age": 30, "city": "Oslo"},
		{"age": 40, "city": "Rome"},
	}
	report := aggregator.BuildCollectionReport("people", docs, aggregator.Options{})
	cross := aggregator.CalculateCrossFieldStatistics("people", docs, "city", "age")
	report.Cross = &cross

	return Bundle{
		Statistics: aggregator.Results{
			"people": {Report: &report},
			"broken": {Error: "retrieval failed: broken: boom"},
		},
		Collections: []inspect.CollectionInfo{{Name: "people", Documents: 2}},
		Database:    &store.DatabaseStats{Name: "testdb", Collections: 1, Objects: 2},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleBundle()))

	out := buf.String()
	assert.Contains(t, out, "\n  \"statistics\": {")
	assert.Contains(t, out, `"error": "retrieval failed: broken: boom"`)
	assert.NotContains(t, out, `"storage"`)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "collections")
	assert.Contains(t, decoded, "database")
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleBundle()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetStatistics, SheetCross, SheetCollections, SheetOverview}, f.GetSheetList())

	rows, err := f.GetRows(SheetStatistics)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"collection", "totalDocuments", "error", "count", "mean"}, rows[0][:5])
	assert.Equal(t, "broken", rows[1][0])
	assert.Equal(t, "retrieval failed: broken: boom", rows[1][2])
	assert.Equal(t, "people", rows[2][0])
	assert.Equal(t, "2", rows[2][1])
	assert.Equal(t, "35", rows[2][4])

	rows, err = f.GetRows(SheetCross)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"people", "city", "age", "Oslo", "30", "1"}, rows[1])
}

func TestWriteXLSXAnalysis(t *testing.T) {
	at := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	bundle := Bundle{Complete: &inspect.CompleteReport{
		Timestamp: at,
		Collections: map[string]inspect.CollectionAnalysis{
			"people": {
				Storage:      inspect.CollectionStorage{Name: "people", Documents: 3, SizeBytes: 300, StorageSize: 600, Utilization: 50},
				FieldTypes:   &inspect.FieldTypeReport{Collection: "people", Sampled: 3, TotalFields: 4},
				Distribution: &inspect.DistributionReport{Collection: "people", Sampled: 3},
			},
			"orders": {
				Storage: inspect.CollectionStorage{Name: "orders"},
				Error:   "failed to sample collection: orders: locked",
			},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, bundle))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetAnalysis}, f.GetSheetList())
	rows, err := f.GetRows(SheetAnalysis)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "orders", rows[1][0])
	assert.Equal(t, "failed to sample collection: orders: locked", rows[1][len(rows[1])-1])
	assert.Equal(t, []string{"people", "3", "300", "600", "50", "3", "4"}, rows[2][:7])
	assert.Equal(t, []string{"analysed at", "2024-05-01T09:00:00Z"}, rows[3])
}

func TestWriteEmptyBundle(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteXLSX(&buf, Bundle{}), ErrEmptyBundle)
	assert.ErrorIs(t, WriteFile(filepath.Join(t.TempDir(), "out.json"), Bundle{}), ErrEmptyBundle)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "nested", "report.json")
	require.NoError(t, WriteFile(jsonPath, sampleBundle()))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	xlsxPath := filepath.Join(dir, "report.XLSX")
	require.NoError(t, WriteFile(xlsxPath, sampleBundle()))
	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	assert.NoError(t, f.Close())

	err = WriteFile(filepath.Join(dir, "report.csv"), sampleBundle())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
