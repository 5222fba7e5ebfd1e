// Package watch follows a change stream and folds its events into an
// Accumulator, optionally forwarding them to a Publisher.
package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/mongolens/internal/store"
)

const channelBufferSize = 100

// Watcher wires the stages: change stream source, accumulator, publisher.
type Watcher struct {
	store       store.Store
	collection  string
	accumulator *Accumulator
	publisher   Publisher
	logger      *zap.Logger

	events    chan store.ChangeEvent
	published chan store.ChangeEvent
	started   atomic.Bool
}

// NewWatcher creates a Watcher on collection, or on the whole database when
// collection is empty. publisher may be nil.
func NewWatcher(st store.Store, collection string, acc *Accumulator, publisher Publisher, logger *zap.Logger) *Watcher {
	w := &Watcher{
		store:       st,
		collection:  collection,
		accumulator: acc,
		publisher:   publisher,
		logger:      logger.Named("watch"),
		events:      make(chan store.ChangeEvent, channelBufferSize),
	}
	if publisher != nil {
		w.published = make(chan store.ChangeEvent, channelBufferSize)
	}
	w.logger.Debug("Watcher created",
		zap.String("collection", collection),
		zap.Bool("publishing", publisher != nil),
	)
	return w
}

// Run follows the change stream until ctx is cancelled, the stream ends or a
// stage fails. A cancelled context is not an error. A Watcher runs once;
// later calls return ErrAlreadyRun.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	sugar := w.logger.Sugar()

	stream, err := w.store.WatchChanges(ctx, w.collection)
	if err != nil {
		sugar.Errorw("Failed to open change stream", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStreamOpenFailed, err)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	sugar.Infow("Watching changes", "collection", w.collection)

	wg.Add(2)
	go w.runSource(ctx, &wg, stream, errCh)
	go w.runAccumulator(ctx, &wg)
	if w.published != nil {
		wg.Add(1)
		go w.runPublisher(ctx, &wg)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var firstErr error
	select {
	case <-done:
		sugar.Info("Change stream ended")
	case err := <-errCh:
		firstErr = err
		<-done
	case <-ctx.Done():
		sugar.Info("Context cancelled, waiting for watch stages to finish")
		firstErr = ctx.Err()
		<-done
	}

	if err := stream.Close(context.WithoutCancel(ctx)); err != nil {
		sugar.Warnw("Failed to close change stream", zap.Error(err))
	}

	// A source error may race with cancellation; prefer reporting it.
	select {
	case err := <-errCh:
		firstErr = err
	default:
	}

	if firstErr != nil && !errors.Is(firstErr, context.Canceled) {
		return firstErr
	}
	return nil
}

func (w *Watcher) runSource(ctx context.Context, wg *sync.WaitGroup, stream store.ChangeStream, errCh chan<- error) {
	defer wg.Done()
	defer close(w.events)

	for stream.Next(ctx) {
		select {
		case w.events <- stream.Event():
		case <-ctx.Done():
			return
		}
	}

	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		w.logger.Error("Change stream failed", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrSourceFailed, err)
	}
}

// runAccumulator records every event and hands it to the publisher without
// blocking; events that do not fit in the queue are dropped.
func (w *Watcher) runAccumulator(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	if w.published != nil {
		defer close(w.published)
	}

	for ev := range w.events {
		if !w.accumulator.Record(ev) {
			w.logger.Debug("Change event not counted",
				zap.String("id", ev.ID),
				zap.String("operation", ev.OperationType),
			)
			continue
		}

		if w.published == nil {
			continue
		}
		select {
		case w.published <- ev:
		default:
			changeDropped.Inc()
			w.logger.Warn("Publisher queue full, dropping change event", zap.String("id", ev.ID))
		}
	}
	w.logger.Debug("Accumulator stage finished", zap.Error(ctx.Err()))
}

func (w *Watcher) runPublisher(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if err := w.publisher.Close(); err != nil {
			w.logger.Warn("Failed to close publisher", zap.Error(err))
		}
	}()

	for ev := range w.published {
		if err := w.publisher.Publish(ctx, ev); err != nil {
			changePublished.WithLabelValues("error").Inc()
			w.logger.Warn("Failed to publish change event",
				zap.String("id", ev.ID),
				zap.Error(err),
			)
			continue
		}
		changePublished.WithLabelValues("ok").Inc()
	}
}
