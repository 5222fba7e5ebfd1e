// Package store is the boundary to the document store: collection listing,
// document retrieval, storage metrics and change streams.
package store

import (
	"context"
	"time"

	"github.com/sanspareilsmyn/mongolens/internal/document"
)

// Store is the set of capabilities the statistics core consumes.
type Store interface {
	ListCollections(ctx context.Context) ([]string, error)
	FindDocuments(ctx context.Context, collection string, filter Filter) ([]document.Document, error)
	CountDocuments(ctx context.Context, collection string) (int64, error)
	CollectionStorageStats(ctx context.Context, collection string) (StorageStats, error)
	DatabaseStats(ctx context.Context) (DatabaseStats, error)
	ServerStatus(ctx context.Context) (ServerStatus, error)
	// WatchChanges opens a change stream on one collection, or on the whole
	// database when collection is empty.
	WatchChanges(ctx context.Context, collection string) (ChangeStream, error)
}

// Connector is a Store whose connection is acquired and released explicitly.
type Connector interface {
	Store
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Inserter is a store that accepts new documents.
type Inserter interface {
	// InsertDocuments appends docs to collection, creating it if needed, and
	// returns how many were written.
	InsertDocuments(ctx context.Context, collection string, docs []document.Document) (int, error)
}

// Filter restricts FindDocuments. A zero Filter matches every document.
type Filter struct {
	// Match holds equality conditions on top-level fields.
	Match map[string]any
	// Limit caps the number of documents returned; 0 means no limit.
	Limit int64
}

// ByID matches the single document with the given _id. Hex strings that parse
// as ObjectIDs are matched as ObjectIDs by the Mongo adapter.
func ByID(id string) Filter {
	return Filter{Match: map[string]any{"_id": id}}
}

// StorageStats is the size information of one collection.
type StorageStats struct {
	Count           int64            `json:"count"`
	SizeBytes       int64            `json:"sizeBytes"`
	StorageSize     int64            `json:"storageSize"`
	AvgDocumentSize int64            `json:"avgDocumentSize"`
	TotalIndexSize  int64            `json:"totalIndexSize"`
	IndexSizes      map[string]int64 `json:"indexSizes"`
}

// DatabaseStats summarises the whole database.
type DatabaseStats struct {
	Name        string  `json:"name"`
	Collections int64   `json:"collections"`
	Objects     int64   `json:"objects"`
	AvgObjSize  float64 `json:"avgObjSize"`
	DataSize    int64   `json:"dataSize"`
	StorageSize int64   `json:"storageSize"`
	Indexes     int64   `json:"indexes"`
	IndexSize   int64   `json:"indexSize"`
}

// ServerStatus is the subset of server metrics worth reporting.
type ServerStatus struct {
	Host              string           `json:"host"`
	Version           string           `json:"version"`
	Uptime            time.Duration    `json:"uptime"`
	CurrentConns      int64            `json:"currentConnections"`
	AvailableConns    int64            `json:"availableConnections"`
	OpCounters        map[string]int64 `json:"opCounters"`
	ResidentMemoryMB  int64            `json:"residentMemoryMB"`
	VirtualMemoryMB   int64            `json:"virtualMemoryMB"`
	NetworkBytesIn    int64            `json:"networkBytesIn"`
	NetworkBytesOut   int64            `json:"networkBytesOut"`
	NetworkNumRequest int64            `json:"networkNumRequests"`
}

// Operation types delivered on a change stream.
const (
	OpInsert  = "insert"
	OpUpdate  = "update"
	OpReplace = "replace"
	OpDelete  = "delete"
)

// ChangeEvent is one entry of a change stream.
type ChangeEvent struct {
	ID            string    `json:"id"`
	OperationType string    `json:"operationType"`
	Database      string    `json:"database"`
	Collection    string    `json:"collection"`
	DocumentKey   string    `json:"documentKey"`
	ClusterTime   time.Time `json:"clusterTime"`
}

// ChangeStream is a lazy, unbounded, non-restartable sequence of change events.
type ChangeStream interface {
	// Next blocks until an event is available, the stream fails or ctx ends.
	Next(ctx context.Context) bool
	Event() ChangeEvent
	Err() error
	Close(ctx context.Context) error
}
