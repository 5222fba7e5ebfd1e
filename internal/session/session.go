// Package session scopes one use of the document store: the connection is
// acquired when a session opens and released when it closes, and change
// statistics live on the session rather than in package state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/mongolens/internal/store"
	"github.com/sanspareilsmyn/mongolens/internal/watch"
)

var (
	ErrOpenFailed = errors.New("failed to open session")
	ErrClosed     = errors.New("session closed")
)

// Session holds a connected store and the change accumulator of one run.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time

	conn    store.Connector
	changes *watch.Accumulator
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
}

// Open connects conn and returns a Session owning the connection.
func Open(ctx context.Context, conn store.Connector, logger *zap.Logger) (*Session, error) {
	id := uuid.New()
	logger = logger.Named("session").With(zap.String("session_id", id.String()))

	if err := conn.Connect(ctx); err != nil {
		logger.Error("Failed to connect document store", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	s := &Session{
		ID:        id,
		StartedAt: time.Now(),
		conn:      conn,
		changes:   watch.NewAccumulator(nil),
		logger:    logger,
	}
	logger.Info("Session opened")
	return s, nil
}

// Store returns the connected store.
func (s *Session) Store() store.Store { return s.conn }

// Changes returns the session's change accumulator.
func (s *Session) Changes() *watch.Accumulator { return s.changes }

// Ping checks the connection is still usable.
func (s *Session) Ping(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return s.conn.Ping(ctx)
}

// Close releases the connection. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.conn.Disconnect(ctx); err != nil {
		s.logger.Warn("Failed to disconnect document store", zap.Error(err))
		return err
	}
	s.logger.Info("Session closed", zap.Duration("duration", time.Since(s.StartedAt)))
	return nil
}

// Run opens a session, calls fn and closes the session on every exit path,
// including a panic in fn.
func Run(ctx context.Context, conn store.Connector, logger *zap.Logger, fn func(context.Context, *Session) error) (err error) {
	s, err := Open(ctx, conn, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(context.WithoutCancel(ctx)); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(ctx, s)
}
