// Package inspect describes a database rather than its values: collection
// sizes, storage use, field types and document shape.
package inspect

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/mongolens/internal/document"
	"github.com/sanspareilsmyn/mongolens/internal/stats"
	"github.com/sanspareilsmyn/mongolens/internal/store"
)

const commonFieldLimit = 5

// Inspector runs introspection queries against a store.
type Inspector struct {
	store      store.Store
	sampleSize int64
	logger     *zap.Logger
	now        func() time.Time
}

// New creates an Inspector sampling at most sampleSize documents per
// collection for shape analysis. Zero or less means no limit.
func New(st store.Store, sampleSize int64, logger *zap.Logger) *Inspector {
	return &Inspector{store: st, sampleSize: sampleSize, logger: logger.Named("inspect"), now: time.Now}
}

// CollectionInfo is one entry of the collection listing.
type CollectionInfo struct {
	Name      string `json:"name"`
	Documents int64  `json:"documents"`
	Error     string `json:"error,omitempty"`
}

// Collections lists every collection with its document count. A count that
// fails is reported on its entry.
func (i *Inspector) Collections(ctx context.Context) ([]CollectionInfo, error) {
	names, err := i.store.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListing, err)
	}

	infos := make([]CollectionInfo, 0, len(names))
	for _, name := range names {
		info := CollectionInfo{Name: name}
		count, err := i.store.CountDocuments(ctx, name)
		switch {
		case store.IsConnectionError(err):
			return nil, err
		case err != nil:
			i.logger.Warn("Failed to count documents", zap.String("collection", name), zap.Error(err))
			info.Error = err.Error()
		default:
			info.Documents = count
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// DatabaseInfo returns the database-level statistics.
func (i *Inspector) DatabaseInfo(ctx context.Context) (store.DatabaseStats, error) {
	return i.store.DatabaseStats(ctx)
}

// ServerStatus returns the server summary.
func (i *Inspector) ServerStatus(ctx context.Context) (store.ServerStatus, error) {
	return i.store.ServerStatus(ctx)
}

// CollectionStorage is the storage use of one collection.
type CollectionStorage struct {
	Name            string  `json:"name"`
	Documents       int64   `json:"documents"`
	SizeBytes       int64   `json:"sizeBytes"`
	StorageSize     int64   `json:"storageSize"`
	IndexSize       int64   `json:"indexSize"`
	AvgDocumentSize int64   `json:"avgDocumentSize"`
	Utilization     float64 `json:"utilization"` // percent of allocated storage holding data
	Error           string  `json:"error,omitempty"`
}

// StorageSummary totals storage use across collections.
type StorageSummary struct {
	TotalCollections      int     `json:"totalCollections"`
	TotalSize             int64   `json:"totalSize"`
	TotalStorageSize      int64   `json:"totalStorageSize"`
	TotalIndexSize        int64   `json:"totalIndexSize"`
	AverageCollectionSize float64 `json:"averageCollectionSize"`
}

// StorageReport is the result of StorageAnalysis.
type StorageReport struct {
	Collections []CollectionStorage `json:"collections"`
	Summary     StorageSummary      `json:"summary"`
}

// StorageAnalysis reports storage use per collection and in total.
// Collections whose statistics cannot be read are listed with an error and
// left out of the totals.
func (i *Inspector) StorageAnalysis(ctx context.Context) (StorageReport, error) {
	names, err := i.store.ListCollections(ctx)
	if err != nil {
		return StorageReport{}, fmt.Errorf("%w: %w", ErrListing, err)
	}

	report := StorageReport{
		Collections: make([]CollectionStorage, 0, len(names)),
		Summary:     StorageSummary{TotalCollections: len(names)},
	}
	for _, name := range names {
		entry := CollectionStorage{Name: name}
		st, err := i.store.CollectionStorageStats(ctx, name)
		if err != nil {
			if store.IsConnectionError(err) {
				return StorageReport{}, err
			}
			i.logger.Warn("Failed to read storage statistics", zap.String("collection", name), zap.Error(err))
			entry.Error = err.Error()
			report.Collections = append(report.Collections, entry)
			continue
		}

		entry.Documents = st.Count
		entry.SizeBytes = st.SizeBytes
		entry.StorageSize = st.StorageSize
		entry.IndexSize = st.TotalIndexSize
		entry.AvgDocumentSize = st.AvgDocumentSize
		if st.StorageSize > 0 {
			entry.Utilization = float64(st.SizeBytes) / float64(st.StorageSize) * 100
		}
		report.Collections = append(report.Collections, entry)

		report.Summary.TotalSize += st.SizeBytes
		report.Summary.TotalStorageSize += st.StorageSize
		report.Summary.TotalIndexSize += st.TotalIndexSize
	}
	if len(names) > 0 {
		report.Summary.AverageCollectionSize = float64(report.Summary.TotalSize) / float64(len(names))
	}
	return report, nil
}

// CommonField is a frequently present field and its dominant type.
type CommonField struct {
	Field string `json:"field"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// FieldTypeReport counts, per top-level field, how often each type occurs.
type FieldTypeReport struct {
	Collection   string                    `json:"collection"`
	Sampled      int                       `json:"sampled"`
	TotalFields  int                       `json:"totalFields"`
	Types        map[string]map[string]int `json:"types"`
	CommonFields []CommonField             `json:"commonFields"`
}

// FieldTypes surveys the field types of a sample of collection.
func (i *Inspector) FieldTypes(ctx context.Context, collection string) (FieldTypeReport, error) {
	docs, err := i.sample(ctx, collection)
	if err != nil {
		return FieldTypeReport{}, err
	}
	return SurveyFieldTypes(collection, docs), nil
}

// SurveyFieldTypes builds a FieldTypeReport from docs.
func SurveyFieldTypes(collection string, docs []document.Document) FieldTypeReport {
	types := make(map[string]map[string]int)
	for _, doc := range docs {
		for key, val := range doc {
			if types[key] == nil {
				types[key] = make(map[string]int)
			}
			types[key][document.TypeName(val)]++
		}
	}

	common := make([]CommonField, 0, len(types))
	for field, counts := range types {
		best := CommonField{Field: field}
		for typ, n := range counts {
			if n > best.Count || (n == best.Count && typ < best.Type) {
				best.Type, best.Count = typ, n
			}
		}
		common = append(common, best)
	}
	slices.SortFunc(common, func(a, b CommonField) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Field, b.Field))
	})
	if len(common) > commonFieldLimit {
		common = common[:commonFieldLimit]
	}

	return FieldTypeReport{
		Collection:   collection,
		Sampled:      len(docs),
		TotalFields:  len(types),
		Types:        types,
		CommonFields: common,
	}
}

// DistributionReport describes document shape over a sample.
type DistributionReport struct {
	Collection    string       `json:"collection"`
	Sampled       int          `json:"sampled"`
	FieldCounts   stats.Report `json:"fieldCounts"`
	DocumentSizes stats.Report `json:"documentSizes"` // BSON bytes
}

// Distribution describes the field counts and encoded sizes of a sample of
// collection.
func (i *Inspector) Distribution(ctx context.Context, collection string) (DistributionReport, error) {
	docs, err := i.sample(ctx, collection)
	if err != nil {
		return DistributionReport{}, err
	}
	return i.describeShape(collection, docs), nil
}

func (i *Inspector) describeShape(collection string, docs []document.Document) DistributionReport {
	fieldCounts := make([]float64, 0, len(docs))
	sizes := make([]float64, 0, len(docs))
	for _, doc := range docs {
		fieldCounts = append(fieldCounts, float64(len(doc)))
		raw, err := bson.Marshal(doc)
		if err != nil {
			i.logger.Debug("Skipping unencodable document", zap.String("collection", collection), zap.Error(err))
			continue
		}
		sizes = append(sizes, float64(len(raw)))
	}

	return DistributionReport{
		Collection:    collection,
		Sampled:       len(docs),
		FieldCounts:   stats.Describe(fieldCounts),
		DocumentSizes: stats.Describe(sizes),
	}
}

func (i *Inspector) sample(ctx context.Context, collection string) ([]document.Document, error) {
	docs, err := i.store.FindDocuments(ctx, collection, store.Filter{Limit: i.sampleSize})
	if err != nil {
		if store.IsConnectionError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrSampling, collection, err)
	}
	i.logger.Debug("Sampled collection", zap.String("collection", collection), zap.Int("documents", len(docs)))
	return docs, nil
}
