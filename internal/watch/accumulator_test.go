package watch

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sanspareilsmyn/mongolens/internal/store"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func event(id, op, key string, at time.Time) store.ChangeEvent {
	return store.ChangeEvent{ID: id, OperationType: op, Collection: "users", DocumentKey: key, ClusterTime: at}
}

func TestAccumulatorTotalsAndHistograms(t *testing.T) {
	start := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	acc := NewAccumulator(clock.Now)

	assert.True(t, acc.Record(event("1", store.OpInsert, "a", start.Add(time.Minute))))
	assert.True(t, acc.Record(event("2", store.OpInsert, "b", start.Add(2*time.Minute))))
	assert.True(t, acc.Record(event("3", store.OpUpdate, "a", start.Add(90*time.Minute))))
	assert.True(t, acc.Record(event("4", store.OpReplace, "b", start.Add(91*time.Minute))))
	assert.True(t, acc.Record(event("5", store.OpDelete, "a", start.Add(3*time.Minute+30*time.Second))))
	assert.False(t, acc.Record(event("6", "drop", "", start)))

	clock.now = start.Add(4 * time.Minute)
	snap := acc.Snapshot()

	assert.Equal(t, Totals{Created: 2, Updated: 1, Replaced: 1, Deleted: 1, Ignored: 1}, snap.Totals)
	assert.Equal(t, map[string]int{"2024-05-01T10": 3, "2024-05-01T11": 2}, snap.Hourly)
	assert.Equal(t, map[string]int{"2024-05-01": 5}, snap.Daily)
	assert.Equal(t, map[string]int{"2024-05": 5}, snap.Monthly)
	assert.Equal(t, start, snap.StartedAt)

	assert.Equal(t, 1, snap.Lifetimes.Count)
	assert.InDelta(t, 150.0, snap.Lifetimes.Basic.Mean, 1e-9)
	assert.Equal(t, 1, snap.TrackedDocuments)

	assert.InDelta(t, 0.5, snap.CreationPerMinute, 1e-9)
	assert.InDelta(t, 0.25, snap.DeletionPerMinute, 1e-9)
}

func TestAccumulatorIgnoresDuplicates(t *testing.T) {
	acc := NewAccumulator(nil)
	ev := event("same", store.OpInsert, "a", time.Now())

	assert.True(t, acc.Record(ev))
	assert.False(t, acc.Record(ev))
	assert.False(t, acc.Record(ev))

	snap := acc.Snapshot()
	assert.Equal(t, 1, snap.Totals.Created)
	assert.Equal(t, 2, snap.Totals.Duplicates)
}

func TestAccumulatorForgetsOldIDs(t *testing.T) {
	acc := NewAccumulator(nil)
	at := time.Now()

	acc.Record(event("first", store.OpUpdate, "a", at))
	for i := range recentEventIDs {
		acc.Record(event(fmt.Sprintf("id-%d", i), store.OpUpdate, "a", at))
	}

	assert.True(t, acc.Record(event("first", store.OpUpdate, "a", at)))
	assert.Len(t, acc.seen, recentEventIDs)
}

func TestAccumulatorUsesClockForMissingClusterTime(t *testing.T) {
	now := time.Date(2023, time.December, 31, 23, 59, 0, 0, time.UTC)
	acc := NewAccumulator(func() time.Time { return now })

	acc.Record(store.ChangeEvent{OperationType: store.OpInsert})
	acc.Record(store.ChangeEvent{OperationType: store.OpInsert})

	snap := acc.Snapshot()
	assert.Equal(t, 2, snap.Totals.Created)
	assert.Equal(t, map[string]int{"2023-12": 2}, snap.Monthly)
	assert.Zero(t, snap.CreationPerMinute)
	assert.Zero(t, snap.TrackedDocuments)
}
