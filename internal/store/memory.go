package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sanspareilsmyn/mongolens/internal/document"
)

const memoryChangeBuffer = 1024

var (
	_ Connector = (*Memory)(nil)
	_ Inserter  = (*Memory)(nil)
)

// Memory is an in-process Connector holding documents in maps. It backs the
// fixture mode of the CLI and the tests, and can be told to fail retrievals
// for chosen collections.
type Memory struct {
	name string

	mu          sync.RWMutex
	connected   bool
	connectErr  error
	collections map[string][]document.Document
	failures    map[string]error
	changes     chan ChangeEvent
	closeOnce   sync.Once
}

// NewMemory creates an empty, unconnected in-memory store.
func NewMemory(name string) *Memory {
	return &Memory{
		name:        name,
		collections: make(map[string][]document.Document),
		failures:    make(map[string]error),
		changes:     make(chan ChangeEvent, memoryChangeBuffer),
	}
}

// Put appends documents to a collection, creating it if needed.
func (m *Memory) Put(collection string, docs ...document.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = append(m.collections[collection], docs...)
}

// LoadJSON adds the collections of a fixture: a JSON object mapping each
// collection name to an array of Extended JSON documents.
func (m *Memory) LoadJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", document.ErrJSONUnmarshalFailed, err)
	}
	for name, body := range raw {
		docs, err := document.ParseJSONArray(body)
		if err != nil {
			return fmt.Errorf("collection %s: %w", name, err)
		}
		m.Put(name, docs...)
	}
	return nil
}

// FailOn makes every retrieval against collection return err.
func (m *Memory) FailOn(collection string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[collection] = err
}

// FailConnect makes Connect return err.
func (m *Memory) FailConnect(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
}

// Emit queues change events for open change streams.
func (m *Memory) Emit(events ...ChangeEvent) {
	for _, ev := range events {
		m.changes <- ev
	}
}

// CloseChanges ends every change stream once queued events are drained.
// Calling it again has no effect.
func (m *Memory) CloseChanges() {
	m.closeOnce.Do(func() { close(m.changes) })
}

func (m *Memory) Connect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return fmt.Errorf("%w: %w", ErrConnection, m.connectErr)
	}
	m.connected = true
	return nil
}

func (m *Memory) Disconnect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *Memory) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return ErrNotConnected
	}
	return nil
}

// collection returns the documents of name under the read lock.
func (m *Memory) collection(name string) ([]document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return nil, ErrNotConnected
	}
	if err, failing := m.failures[name]; failing {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	docs, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return docs, nil
}

func (m *Memory) ListCollections(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return nil, ErrNotConnected
	}
	return slices.Sorted(maps.Keys(m.collections)), nil
}

func (m *Memory) FindDocuments(ctx context.Context, collection string, filter Filter) ([]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := m.collection(collection)
	if err != nil {
		return nil, err
	}

	matched := make([]document.Document, 0, len(docs))
	for _, doc := range docs {
		if filter.Limit > 0 && int64(len(matched)) >= filter.Limit {
			break
		}
		if matches(doc, filter.Match) {
			matched = append(matched, maps.Clone(doc))
		}
	}
	return matched, nil
}

func (m *Memory) InsertDocuments(ctx context.Context, collection string, docs []document.Document) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return 0, ErrNotConnected
	}
	if err, failing := m.failures[collection]; failing {
		return 0, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	for _, doc := range docs {
		m.collections[collection] = append(m.collections[collection], maps.Clone(doc))
	}
	return len(docs), nil
}

func matches(doc document.Document, match map[string]any) bool {
	for k, want := range match {
		got, ok := doc[k]
		if !ok || document.FormatValue(got) != document.FormatValue(want) {
			return false
		}
	}
	return true
}

func (m *Memory) CountDocuments(_ context.Context, collection string) (int64, error) {
	docs, err := m.collection(collection)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (m *Memory) CollectionStorageStats(_ context.Context, collection string) (StorageStats, error) {
	docs, err := m.collection(collection)
	if err != nil {
		return StorageStats{}, err
	}

	var size int64
	for _, doc := range docs {
		raw, err := bson.Marshal(doc)
		if err != nil {
			return StorageStats{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}
		size += int64(len(raw))
	}

	stats := StorageStats{
		Count:       int64(len(docs)),
		SizeBytes:   size,
		StorageSize: size,
		IndexSizes:  map[string]int64{},
	}
	if len(docs) > 0 {
		stats.AvgDocumentSize = size / int64(len(docs))
	}
	return stats, nil
}

// DatabaseStats sums the collection statistics. Collections with an injected
// failure are left out of the totals.
func (m *Memory) DatabaseStats(ctx context.Context) (DatabaseStats, error) {
	names, err := m.ListCollections(ctx)
	if err != nil {
		return DatabaseStats{}, err
	}

	stats := DatabaseStats{Name: m.name, Collections: int64(len(names))}
	for _, name := range names {
		coll, err := m.CollectionStorageStats(ctx, name)
		if err != nil {
			if IsConnectionError(err) {
				return DatabaseStats{}, err
			}
			continue
		}
		stats.Objects += coll.Count
		stats.DataSize += coll.SizeBytes
		stats.StorageSize += coll.StorageSize
	}
	if stats.Objects > 0 {
		stats.AvgObjSize = float64(stats.DataSize) / float64(stats.Objects)
	}
	return stats, nil
}

func (m *Memory) ServerStatus(context.Context) (ServerStatus, error) {
	if err := m.Ping(context.Background()); err != nil {
		return ServerStatus{}, err
	}
	return ServerStatus{Host: "memory", Version: "in-memory", OpCounters: map[string]int64{}}, nil
}

func (m *Memory) WatchChanges(_ context.Context, collection string) (ChangeStream, error) {
	if err := m.Ping(context.Background()); err != nil {
		return nil, err
	}
	return &memoryChangeStream{source: m.changes, collection: collection}, nil
}

type memoryChangeStream struct {
	source     <-chan ChangeEvent
	collection string
	event      ChangeEvent
	err        error
	closed     bool
}

func (s *memoryChangeStream) Next(ctx context.Context) bool {
	if s.err != nil {
		return false
	}
	if s.closed {
		s.err = ErrStreamClosed
		return false
	}
	for {
		select {
		case ev, ok := <-s.source:
			if !ok {
				return false
			}
			if s.collection != "" && ev.Collection != s.collection {
				continue
			}
			s.event = ev
			return true
		case <-ctx.Done():
			s.err = ctx.Err()
			return false
		}
	}
}

func (s *memoryChangeStream) Event() ChangeEvent { return s.event }

func (s *memoryChangeStream) Err() error { return s.err }

func (s *memoryChangeStream) Close(context.Context) error {
	s.closed = true
	return nil
}
