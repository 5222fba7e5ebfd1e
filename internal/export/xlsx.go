package export

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sanspareilsmyn/mongolens/internal/aggregator"
	"github.com/sanspareilsmyn/mongolens/internal/stats"
)

const (
	SheetStatistics  = "Statistics"
	SheetPeriods     = "Periods"
	SheetCross       = "CrossTabulation"
	SheetField       = "Field"
	SheetCollections = "Collections"
	SheetStorage     = "Storage"
	SheetFieldTypes  = "FieldTypes"
	SheetChanges     = "Changes"
	SheetOverview    = "Overview"
	SheetAnalysis    = "Analysis"
)

var reportHeader = []any{
	"count", "mean", "median", "mode", "variance", "standardDeviation", "range",
	"coefficientOfVariation", "Q1", "Q2", "Q3", "interquartileRange", "skewness", "kurtosis",
}

func reportRow(r stats.Report) []any {
	return []any{
		r.Count, r.Basic.Mean, r.Basic.Median, r.Basic.Mode, r.Basic.Variance, r.Basic.StandardDeviation,
		r.Basic.Range, r.Advanced.CoefficientOfVariation, r.Advanced.Quartiles.Q1, r.Advanced.Quartiles.Q2,
		r.Advanced.Quartiles.Q3, r.Advanced.InterquartileRange, r.Advanced.Skewness, r.Advanced.Kurtosis,
	}
}

// sheet appends rows to one worksheet.
type sheet struct {
	f    *excelize.File
	name string
	row  int
}

func (s *sheet) append(values ...any) error {
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	return s.f.SetSheetRow(s.name, cell, &values)
}

// WriteXLSX writes b as a workbook with one sheet per report kind present.
func WriteXLSX(w io.Writer, b Bundle) error {
	if b.empty() {
		return ErrEmptyBundle
	}

	f := excelize.NewFile()
	defer f.Close()

	wb := workbook{f: f}
	steps := []func(Bundle) error{
		wb.statistics,
		wb.periods,
		wb.cross,
		wb.field,
		wb.collections,
		wb.storage,
		wb.fieldTypes,
		wb.changes,
		wb.overview,
		wb.analysis,
	}
	for _, step := range steps {
		if err := step(b); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
	}
	if len(wb.sheets) == 0 {
		return ErrEmptyBundle
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

type workbook struct {
	f      *excelize.File
	sheets []string
}

func (wb *workbook) sheet(name string, header ...any) (*sheet, error) {
	if _, err := wb.f.NewSheet(name); err != nil {
		return nil, err
	}
	wb.sheets = append(wb.sheets, name)
	s := &sheet{f: wb.f, name: name}
	return s, s.append(header...)
}

func (wb *workbook) statistics(b Bundle) error {
	if len(b.Statistics) == 0 {
		return nil
	}
	s, err := wb.sheet(SheetStatistics, append([]any{"collection", "totalDocuments", "error"}, reportHeader...)...)
	if err != nil {
		return err
	}
	for _, name := range slices.Sorted(maps.Keys(b.Statistics)) {
		res := b.Statistics[name]
		if res.Report == nil {
			if err := s.append(name, nil, res.Error); err != nil {
				return err
			}
			continue
		}
		row := append([]any{name, res.Report.TotalDocuments, ""}, reportRow(res.Report.Statistics)...)
		if err := s.append(row...); err != nil {
			return err
		}
	}
	return nil
}

func (wb *workbook) periods(b Bundle) error {
	var reports []*aggregator.CollectionReport
	for _, name := range slices.Sorted(maps.Keys(b.Statistics)) {
		if r := b.Statistics[name].Report; r != nil && len(r.Modifications.ByPeriod) > 0 {
			reports = append(reports, r)
		}
	}
	if len(reports) == 0 {
		return nil
	}

	s, err := wb.sheet(SheetPeriods, "collection", "period", "created", "modified")
	if err != nil {
		return err
	}
	for _, r := range reports {
		for _, key := range slices.Sorted(maps.Keys(r.Modifications.ByPeriod)) {
			bucket := r.Modifications.ByPeriod[key]
			if err := s.append(r.Collection, key, bucket.Created, bucket.Modified); err != nil {
				return err
			}
		}
	}
	return nil
}

func (wb *workbook) cross(b Bundle) error {
	var reports []*aggregator.CrossFieldReport
	if b.Cross != nil {
		reports = append(reports, b.Cross)
	}
	for _, name := range slices.Sorted(maps.Keys(b.Statistics)) {
		if r := b.Statistics[name].Report; r != nil && r.Cross != nil {
			reports = append(reports, r.Cross)
		}
	}
	if len(reports) == 0 {
		return nil
	}

	s, err := wb.sheet(SheetCross, "collection", "fieldA", "fieldB", "valueA", "valueB", "count")
	if err != nil {
		return err
	}
	for _, r := range reports {
		for _, a := range slices.Sorted(maps.Keys(r.CrossTabulation)) {
			row := r.CrossTabulation[a]
			for _, v := range slices.Sorted(maps.Keys(row)) {
				if err := s.append(r.Collection, r.FieldA.Field, r.FieldB.Field, a, v, row[v]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (wb *workbook) field(b Bundle) error {
	if b.Field == nil {
		return nil
	}
	header := append([]any{"collection", "field", "totalDocuments", "nullCount", "nonNumeric"}, reportHeader...)
	s, err := wb.sheet(SheetField, header...)
	if err != nil {
		return err
	}
	r := b.Field
	return s.append(append([]any{r.Collection, r.Field, r.TotalDocuments, r.NullCount, r.NonNumeric}, reportRow(r.Statistics)...)...)
}

func (wb *workbook) collections(b Bundle) error {
	if len(b.Collections) == 0 {
		return nil
	}
	s, err := wb.sheet(SheetCollections, "collection", "documents", "error")
	if err != nil {
		return err
	}
	for _, c := range b.Collections {
		if err := s.append(c.Name, c.Documents, c.Error); err != nil {
			return err
		}
	}
	return nil
}

func (wb *workbook) storage(b Bundle) error {
	if b.Storage == nil {
		return nil
	}
	s, err := wb.sheet(SheetStorage, "collection", "documents", "sizeBytes", "storageSize", "indexSize", "avgDocumentSize", "utilization", "error")
	if err != nil {
		return err
	}
	for _, c := range b.Storage.Collections {
		if err := s.append(c.Name, c.Documents, c.SizeBytes, c.StorageSize, c.IndexSize, c.AvgDocumentSize, c.Utilization, c.Error); err != nil {
			return err
		}
	}
	sum := b.Storage.Summary
	return s.append("total", nil, sum.TotalSize, sum.TotalStorageSize, sum.TotalIndexSize, sum.AverageCollectionSize)
}

func (wb *workbook) fieldTypes(b Bundle) error {
	if b.FieldTypes == nil {
		return nil
	}
	s, err := wb.sheet(SheetFieldTypes, "field", "type", "count")
	if err != nil {
		return err
	}
	types := b.FieldTypes.Types
	for _, field := range slices.Sorted(maps.Keys(types)) {
		for _, typ := range slices.Sorted(maps.Keys(types[field])) {
			if err := s.append(field, typ, types[field][typ]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (wb *workbook) changes(b Bundle) error {
	if b.Changes == nil {
		return nil
	}
	s, err := wb.sheet(SheetChanges, "metric", "value")
	if err != nil {
		return err
	}
	t := b.Changes.Totals
	rows := [][]any{
		{"created", t.Created},
		{"updated", t.Updated},
		{"replaced", t.Replaced},
		{"deleted", t.Deleted},
		{"ignored", t.Ignored},
		{"duplicates", t.Duplicates},
		{"creationPerMinute", b.Changes.CreationPerMinute},
		{"deletionPerMinute", b.Changes.DeletionPerMinute},
		{"averageLifetimeSeconds", b.Changes.Lifetimes.Basic.Mean},
	}
	for _, row := range rows {
		if err := s.append(row...); err != nil {
			return err
		}
	}
	for _, hour := range slices.Sorted(maps.Keys(b.Changes.Hourly)) {
		if err := s.append("hour "+hour, b.Changes.Hourly[hour]); err != nil {
			return err
		}
	}
	return nil
}

func (wb *workbook) overview(b Bundle) error {
	if b.Database == nil && b.Server == nil && b.Distribution == nil {
		return nil
	}
	s, err := wb.sheet(SheetOverview, "metric", "value")
	if err != nil {
		return err
	}

	var rows [][]any
	if db := b.Database; db != nil {
		rows = append(rows,
			[]any{"database", db.Name},
			[]any{"collections", db.Collections},
			[]any{"objects", db.Objects},
			[]any{"avgObjSize", db.AvgObjSize},
			[]any{"dataSize", db.DataSize},
			[]any{"storageSize", db.StorageSize},
			[]any{"indexes", db.Indexes},
			[]any{"indexSize", db.IndexSize},
		)
	}
	if srv := b.Server; srv != nil {
		rows = append(rows,
			[]any{"host", srv.Host},
			[]any{"version", srv.Version},
			[]any{"uptimeSeconds", srv.Uptime.Seconds()},
			[]any{"currentConnections", srv.CurrentConns},
			[]any{"residentMemoryMB", srv.ResidentMemoryMB},
		)
	}
	if d := b.Distribution; d != nil {
		rows = append(rows,
			[]any{"sampledDocuments", d.Sampled},
			[]any{"meanFieldCount", d.FieldCounts.Basic.Mean},
			[]any{"meanDocumentSize", d.DocumentSizes.Basic.Mean},
		)
	}
	for _, row := range rows {
		if err := s.append(row...); err != nil {
			return err
		}
	}
	return nil
}

func (wb *workbook) analysis(b Bundle) error {
	if b.Complete == nil {
		return nil
	}
	s, err := wb.sheet(SheetAnalysis,
		"collection", "documents", "sizeBytes", "storageSize", "utilization",
		"sampled", "totalFields", "meanFieldCount", "meanDocumentSize", "error",
	)
	if err != nil {
		return err
	}
	c := b.Complete
	for _, name := range slices.Sorted(maps.Keys(c.Collections)) {
		a := c.Collections[name]
		row := []any{name, a.Storage.Documents, a.Storage.SizeBytes, a.Storage.StorageSize, a.Storage.Utilization}
		if a.FieldTypes != nil && a.Distribution != nil {
			row = append(row, a.Distribution.Sampled, a.FieldTypes.TotalFields,
				a.Distribution.FieldCounts.Basic.Mean, a.Distribution.DocumentSizes.Basic.Mean)
		} else {
			row = append(row, nil, nil, nil, nil)
		}
		if err := s.append(append(row, a.Error)...); err != nil {
			return err
		}
	}
	return s.append("analysed at", c.Timestamp.Format(time.RFC3339))
}
