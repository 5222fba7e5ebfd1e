package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/mongolens/internal/document"
	"github.com/sanspareilsmyn/mongolens/internal/store"
)

// seeder writes generated person documents in batches.
type seeder struct {
	store      store.Inserter
	collection string
	batchSize  int
	rng        *rand.Rand
	logger     *zap.Logger
}

// seed inserts count documents and returns how many were written before the
// first failure.
func (s seeder) seed(ctx context.Context, count int, now time.Time) (int, error) {
	batchSize := max(s.batchSize, 1)

	inserted := 0
	for inserted < count {
		n := min(batchSize, count-inserted)
		batch := make([]document.Document, 0, n)
		for range n {
			batch = append(batch, generatePerson(s.rng, now))
		}

		written, err := s.store.InsertDocuments(ctx, s.collection, batch)
		inserted += written
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return inserted, ctxErr
			}
			return inserted, fmt.Errorf("insert into %s after %d documents: %w", s.collection, inserted, err)
		}
		s.logger.Debug("Batch inserted", zap.Int("inserted", inserted))
	}
	return inserted, nil
}
