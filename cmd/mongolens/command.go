package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/mongolens/internal/aggregator"
	"github.com/sanspareilsmyn/mongolens/internal/api"
	"github.com/sanspareilsmyn/mongolens/internal/config"
	"github.com/sanspareilsmyn/mongolens/internal/export"
	"github.com/sanspareilsmyn/mongolens/internal/inspect"
	"github.com/sanspareilsmyn/mongolens/internal/session"
	"github.com/sanspareilsmyn/mongolens/internal/watch"
)

const (
	modeStats        = "stats"
	modeField        = "field"
	modeCross        = "cross"
	modeCollections  = "collections"
	modeStorage      = "storage"
	modeTypes        = "types"
	modeDistribution = "distribution"
	modeDatabase     = "database"
	modeServer       = "server"
	modeComplete     = "complete"
	modeWatch        = "watch"
	modeServe        = "serve"
)

// command is one CLI invocation, run inside a session.
type command struct {
	cfg        *config.Config
	logger     *zap.Logger
	mode       string
	collection string
	field      string
	fieldB     string
	documentID string
	outFile    string
	stdout     io.Writer
}

func (c command) run(ctx context.Context, s *session.Session) error {
	agg := aggregator.New(s.Store(), c.logger.Named("aggregator"), c.cfg.Analysis.Parallelism)
	in := inspect.New(s.Store(), c.cfg.Analysis.SampleSize, c.logger)
	opts := aggregator.OptionsFrom(c.cfg.Analysis)

	var bundle export.Bundle
	switch c.mode {
	case modeStats:
		collections := c.cfg.Analysis.Collections
		if c.collection != "" {
			collections = splitList(c.collection)
		}
		req := aggregator.Request{
			Collections: collections,
			DocumentID:  c.documentID,
			CrossFields: [2]string{c.field, c.fieldB},
			Options:     opts,
		}
		results, err := agg.Statistics(ctx, req)
		if err != nil {
			return err
		}
		if failed := results.Failed(); len(failed) > 0 {
			c.logger.Warn("Some collections could not be analysed", zap.Strings("collections", failed))
		}
		bundle.Statistics = results

	case modeField:
		if err := c.require("-collection", c.collection, "-field", c.field); err != nil {
			return err
		}
		report, err := agg.FieldStatistics(ctx, c.collection, c.field)
		if err != nil {
			return err
		}
		bundle.Field = &report

	case modeCross:
		if err := c.require("-collection", c.collection, "-field", c.field, "-field-b", c.fieldB); err != nil {
			return err
		}
		report, err := agg.CrossFieldStatistics(ctx, c.collection, c.field, c.fieldB)
		if err != nil {
			return err
		}
		bundle.Cross = &report

	case modeCollections:
		infos, err := in.Collections(ctx)
		if err != nil {
			return err
		}
		bundle.Collections = infos

	case modeStorage:
		report, err := in.StorageAnalysis(ctx)
		if err != nil {
			return err
		}
		bundle.Storage = &report

	case modeTypes:
		if err := c.require("-collection", c.collection); err != nil {
			return err
		}
		report, err := in.FieldTypes(ctx, c.collection)
		if err != nil {
			return err
		}
		bundle.FieldTypes = &report

	case modeDistribution:
		if err := c.require("-collection", c.collection); err != nil {
			return err
		}
		report, err := in.Distribution(ctx, c.collection)
		if err != nil {
			return err
		}
		bundle.Distribution = &report

	case modeDatabase:
		info, err := in.DatabaseInfo(ctx)
		if err != nil {
			return err
		}
		bundle.Database = &info

	case modeServer:
		status, err := in.ServerStatus(ctx)
		if err != nil {
			return err
		}
		bundle.Server = &status

	case modeComplete:
		report, err := in.Complete(ctx)
		if err != nil {
			return err
		}
		if failed := report.Failed(); len(failed) > 0 {
			c.logger.Warn("Some collections could not be analysed", zap.Strings("collections", failed))
		}
		bundle.Complete = &report

	case modeWatch:
		if err := c.watch(ctx, s); err != nil {
			return err
		}
		snap := s.Changes().Snapshot()
		bundle.Changes = &snap

	case modeServe:
		return c.serve(ctx, s, agg, in, opts)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, c.mode)
	}

	return c.emit(bundle)
}

func (c command) watch(ctx context.Context, s *session.Session) error {
	var publisher watch.Publisher
	if c.cfg.Kafka.Enabled {
		kp, err := watch.NewKafkaPublisher(c.cfg.Kafka, c.logger.Named("publisher"))
		if err != nil {
			return err
		}
		publisher = kp
	}
	return watch.NewWatcher(s.Store(), c.collection, s.Changes(), publisher, c.logger).Run(ctx)
}

// serve runs the HTTP API and, alongside it, a watcher feeding /changes.
func (c command) serve(ctx context.Context, s *session.Session, agg *aggregator.Aggregator, in *inspect.Inspector, opts aggregator.Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchErr := make(chan error, 1)
	go func() {
		err := c.watch(ctx, s)
		if err != nil {
			c.logger.Warn("Change watcher stopped", zap.Error(err))
		}
		watchErr <- err
	}()

	server := api.New(c.cfg.HTTP, api.Deps{
		Session:    s,
		Aggregator: agg,
		Inspector:  in,
		Options:    opts,
	}, c.logger)
	err := server.Run(ctx)

	cancel()
	<-watchErr
	return err
}

func (c command) emit(bundle export.Bundle) error {
	if c.outFile != "" {
		if err := export.WriteFile(c.outFile, bundle); err != nil {
			return err
		}
		c.logger.Info("Result written", zap.String("path", c.outFile))
		return nil
	}
	return export.WriteJSON(c.stdout, bundle)
}

// require checks flag/value pairs and names the first missing flag.
func (c command) require(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("%w: %s is required for mode %s", ErrMissingFlag, pairs[i], c.mode)
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
