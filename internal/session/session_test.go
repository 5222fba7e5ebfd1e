package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sanspareilsmyn/mongolens/internal/store"
)

func TestOpenAndClose(t *testing.T) {
	mem := store.NewMemory("testdb")
	ctx := context.Background()

	s, err := Open(ctx, mem, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.NotNil(t, s.Changes())
	require.NoError(t, s.Ping(ctx))

	_, err = s.Store().ListCollections(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))
	assert.ErrorIs(t, s.Ping(ctx), ErrClosed)
	assert.ErrorIs(t, mem.Ping(ctx), store.ErrNotConnected)
}

func TestOpenConnectionFailure(t *testing.T) {
	mem := store.NewMemory("testdb")
	mem.FailConnect(errors.New("refused"))

	s, err := Open(context.Background(), mem, zaptest.NewLogger(t))
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrOpenFailed)
	assert.True(t, store.IsConnectionError(err))
}

func TestSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, store.NewMemory("a"), zaptest.NewLogger(t))
	require.NoError(t, err)
	b, err := Open(ctx, store.NewMemory("b"), zaptest.NewLogger(t))
	require.NoError(t, err)

	a.Changes().Record(store.ChangeEvent{ID: "1", OperationType: store.OpInsert})

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 1, a.Changes().Snapshot().Totals.Created)
	assert.Zero(t, b.Changes().Snapshot().Totals.Created)
}

func TestRunReleasesOnEveryPath(t *testing.T) {
	ctx := context.Background()

	mem := store.NewMemory("testdb")
	err := Run(ctx, mem, zaptest.NewLogger(t), func(ctx context.Context, s *Session) error {
		return s.Ping(ctx)
	})
	require.NoError(t, err)
	assert.ErrorIs(t, mem.Ping(ctx), store.ErrNotConnected)

	boom := errors.New("boom")
	mem = store.NewMemory("testdb")
	err = Run(ctx, mem, zaptest.NewLogger(t), func(context.Context, *Session) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, mem.Ping(ctx), store.ErrNotConnected)

	mem = store.NewMemory("testdb")
	assert.Panics(t, func() {
		_ = Run(ctx, mem, zaptest.NewLogger(t), func(context.Context, *Session) error { panic("defect") })
	})
	assert.ErrorIs(t, mem.Ping(ctx), store.ErrNotConnected)
}
