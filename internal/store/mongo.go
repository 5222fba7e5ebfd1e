package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/mongolens/internal/config"
	"github.com/sanspareilsmyn/mongolens/internal/document"
)

// namespaceNotFound is the server error code for a missing collection.
const namespaceNotFound = 26

var (
	_ Connector = (*Mongo)(nil)
	_ Inserter  = (*Mongo)(nil)
)

// Mongo is the MongoDB implementation of Connector.
type Mongo struct {
	cfg    config.MongoConfig
	logger *zap.Logger

	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo creates an unconnected MongoDB adapter.
func NewMongo(cfg config.MongoConfig, logger *zap.Logger) *Mongo {
	return &Mongo{cfg: cfg, logger: logger}
}

// Connect establishes the client connection and verifies it with a ping.
// Calling Connect on a connected adapter is a no-op.
func (m *Mongo) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		m.logger.Info("Already connected to database")
		return nil
	}
	if m.cfg.URI == "" {
		return ErrMissingURI
	}

	clientOptions := options.Client().
		ApplyURI(m.cfg.URI).
		SetConnectTimeout(m.cfg.Timeout).
		SetMaxPoolSize(m.cfg.MaxPoolSize)

	connectCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		m.logger.Error("Connection error", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		m.logger.Error("Ping after connect failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	m.client = client
	m.db = client.Database(m.cfg.Database)
	m.logger.Info("Successfully connected to database", zap.String("database", m.cfg.Database))
	return nil
}

// Disconnect releases the client. It is safe to call when not connected.
func (m *Mongo) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}
	err := m.client.Disconnect(ctx)
	m.client, m.db = nil, nil
	if err != nil {
		m.logger.Error("Disconnection error", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	m.logger.Info("Successfully disconnected from database")
	return nil
}

// Ping verifies the server is reachable.
func (m *Mongo) Ping(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return ErrNotConnected
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return nil
}

func (m *Mongo) database() (*mongo.Database, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.db == nil {
		return nil, ErrNotConnected
	}
	return m.db, nil
}

// classify maps driver errors onto the store taxonomy.
func classify(err error) error {
	var cmdErr mongo.CommandError
	switch {
	case errors.As(err, &cmdErr) && cmdErr.Code == namespaceNotFound:
		return fmt.Errorf("%w: %w", ErrCollectionNotFound, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%w: %w", ErrConnection, err)
	default:
		return fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
}

// ListCollections returns the user collection names in sorted order.
func (m *Mongo) ListCollections(ctx context.Context) ([]string, error) {
	db, err := m.database()
	if err != nil {
		return nil, err
	}

	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, classify(err)
	}

	collections := make([]string, 0, len(names))
	for _, name := range names {
		if !strings.HasPrefix(name, "system.") {
			collections = append(collections, name)
		}
	}
	slices.Sort(collections)
	return collections, nil
}

// FindDocuments retrieves the documents of a collection matching filter.
func (m *Mongo) FindDocuments(ctx context.Context, collection string, filter Filter) ([]document.Document, error) {
	db, err := m.database()
	if err != nil {
		return nil, err
	}

	findOptions := options.Find()
	if filter.Limit > 0 {
		findOptions.SetLimit(filter.Limit)
	}

	cursor, err := db.Collection(collection).Find(ctx, toBSONFilter(filter), findOptions)
	if err != nil {
		return nil, classify(err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, classify(err)
	}

	docs := make([]document.Document, len(raw))
	for i, r := range raw {
		docs[i] = document.FromBSON(r)
	}
	return docs, nil
}

// InsertDocuments writes docs in one InsertMany call.
func (m *Mongo) InsertDocuments(ctx context.Context, collection string, docs []document.Document) (int, error) {
	db, err := m.database()
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	batch := make([]any, len(docs))
	for i, doc := range docs {
		batch[i] = doc
	}
	res, err := db.Collection(collection).InsertMany(ctx, batch)
	if err != nil {
		inserted := 0
		if res != nil {
			inserted = len(res.InsertedIDs)
		}
		return inserted, classify(err)
	}
	return len(res.InsertedIDs), nil
}

func toBSONFilter(filter Filter) bson.M {
	query := bson.M{}
	for k, v := range filter.Match {
		if k == "_id" {
			if s, ok := v.(string); ok {
				if oid, err := primitive.ObjectIDFromHex(s); err == nil {
					v = oid
				}
			}
		}
		query[k] = v
	}
	return query
}

// CountDocuments returns the number of documents in a collection.
func (m *Mongo) CountDocuments(ctx context.Context, collection string) (int64, error) {
	db, err := m.database()
	if err != nil {
		return 0, err
	}
	count, err := db.Collection(collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, classify(err)
	}
	return count, nil
}

// CollectionStorageStats runs collStats for one collection.
func (m *Mongo) CollectionStorageStats(ctx context.Context, collection string) (StorageStats, error) {
	db, err := m.database()
	if err != nil {
		return StorageStats{}, err
	}

	var raw struct {
		Count          float64            `bson:"count"`
		Size           float64            `bson:"size"`
		StorageSize    float64            `bson:"storageSize"`
		AvgObjSize     float64            `bson:"avgObjSize"`
		TotalIndexSize float64            `bson:"totalIndexSize"`
		IndexSizes     map[string]float64 `bson:"indexSizes"`
	}
	cmd := bson.D{{Key: "collStats", Value: collection}}
	if err := db.RunCommand(ctx, cmd).Decode(&raw); err != nil {
		return StorageStats{}, classify(err)
	}

	indexSizes := make(map[string]int64, len(raw.IndexSizes))
	for name, size := range raw.IndexSizes {
		indexSizes[name] = int64(size)
	}
	return StorageStats{
		Count:           int64(raw.Count),
		SizeBytes:       int64(raw.Size),
		StorageSize:     int64(raw.StorageSize),
		AvgDocumentSize: int64(raw.AvgObjSize),
		TotalIndexSize:  int64(raw.TotalIndexSize),
		IndexSizes:      indexSizes,
	}, nil
}

// DatabaseStats runs dbStats on the configured database.
func (m *Mongo) DatabaseStats(ctx context.Context) (DatabaseStats, error) {
	db, err := m.database()
	if err != nil {
		return DatabaseStats{}, err
	}

	var raw struct {
		DB          string  `bson:"db"`
		Collections float64 `bson:"collections"`
		Objects     float64 `bson:"objects"`
		AvgObjSize  float64 `bson:"avgObjSize"`
		DataSize    float64 `bson:"dataSize"`
		StorageSize float64 `bson:"storageSize"`
		Indexes     float64 `bson:"indexes"`
		IndexSize   float64 `bson:"indexSize"`
	}
	if err := db.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&raw); err != nil {
		return DatabaseStats{}, classify(err)
	}

	return DatabaseStats{
		Name:        raw.DB,
		Collections: int64(raw.Collections),
		Objects:     int64(raw.Objects),
		AvgObjSize:  raw.AvgObjSize,
		DataSize:    int64(raw.DataSize),
		StorageSize: int64(raw.StorageSize),
		Indexes:     int64(raw.Indexes),
		IndexSize:   int64(raw.IndexSize),
	}, nil
}

// ServerStatus runs serverStatus against the admin database.
func (m *Mongo) ServerStatus(ctx context.Context) (ServerStatus, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return ServerStatus{}, ErrNotConnected
	}

	var raw bson.M
	cmd := bson.D{{Key: "serverStatus", Value: 1}}
	if err := client.Database("admin").RunCommand(ctx, cmd).Decode(&raw); err != nil {
		return ServerStatus{}, classify(err)
	}
	return serverStatusFrom(document.FromBSON(raw)), nil
}

func serverStatusFrom(doc document.Document) ServerStatus {
	status := ServerStatus{OpCounters: map[string]int64{}}
	status.Host, _ = doc["host"].(string)
	status.Version, _ = doc["version"].(string)
	if uptime, ok := doc.Float64("uptime"); ok {
		status.Uptime = time.Duration(uptime) * time.Second
	}

	status.CurrentConns = nestedInt(doc, "connections", "current")
	status.AvailableConns = nestedInt(doc, "connections", "available")
	status.ResidentMemoryMB = nestedInt(doc, "mem", "resident")
	status.VirtualMemoryMB = nestedInt(doc, "mem", "virtual")
	status.NetworkBytesIn = nestedInt(doc, "network", "bytesIn")
	status.NetworkBytesOut = nestedInt(doc, "network", "bytesOut")
	status.NetworkNumRequest = nestedInt(doc, "network", "numRequests")

	if counters, ok := doc["opcounters"].(document.Document); ok {
		for _, op := range counters.Keys() {
			if n, ok := counters.Float64(op); ok {
				status.OpCounters[op] = int64(n)
			}
		}
	}
	return status
}

func nestedInt(doc document.Document, parent, field string) int64 {
	sub, ok := doc[parent].(document.Document)
	if !ok {
		return 0
	}
	n, _ := sub.Float64(field)
	return int64(n)
}

// WatchChanges opens a change stream on a collection or the whole database.
func (m *Mongo) WatchChanges(ctx context.Context, collection string) (ChangeStream, error) {
	db, err := m.database()
	if err != nil {
		return nil, err
	}

	var cs *mongo.ChangeStream
	if collection == "" {
		cs, err = db.Watch(ctx, mongo.Pipeline{})
	} else {
		cs, err = db.Collection(collection).Watch(ctx, mongo.Pipeline{})
	}
	if err != nil {
		return nil, classify(err)
	}

	m.logger.Info("Change stream opened", zap.String("collection", collection))
	return &mongoChangeStream{cs: cs}, nil
}

type rawChangeEvent struct {
	ID struct {
		Data string `bson:"_data"`
	} `bson:"_id"`
	OperationType string `bson:"operationType"`
	NS            struct {
		DB   string `bson:"db"`
		Coll string `bson:"coll"`
	} `bson:"ns"`
	DocumentKey bson.M              `bson:"documentKey"`
	ClusterTime primitive.Timestamp `bson:"clusterTime"`
}

type mongoChangeStream struct {
	cs     *mongo.ChangeStream
	event  ChangeEvent
	err    error
	closed bool
}

func (s *mongoChangeStream) Next(ctx context.Context) bool {
	if s.err != nil {
		return false
	}
	if s.closed {
		s.err = ErrStreamClosed
		return false
	}
	if !s.cs.Next(ctx) {
		if err := s.cs.Err(); err != nil {
			s.err = classify(err)
		}
		return false
	}

	var raw rawChangeEvent
	if err := s.cs.Decode(&raw); err != nil {
		s.err = fmt.Errorf("%w: %w", ErrQueryFailed, err)
		return false
	}

	key := document.FromBSON(raw.DocumentKey)
	s.event = ChangeEvent{
		ID:            raw.ID.Data,
		OperationType: raw.OperationType,
		Database:      raw.NS.DB,
		Collection:    raw.NS.Coll,
		DocumentKey:   document.FormatValue(key["_id"]),
		ClusterTime:   time.Unix(int64(raw.ClusterTime.T), 0).UTC(),
	}
	return true
}

func (s *mongoChangeStream) Event() ChangeEvent { return s.event }

func (s *mongoChangeStream) Err() error { return s.err }

func (s *mongoChangeStream) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.cs.Close(ctx)
}
