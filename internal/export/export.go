// Package export renders reports as indented JSON or as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/sanspareilsmyn/mongolens/internal/aggregator"
	"github.com/sanspareilsmyn/mongolens/internal/inspect"
	"github.com/sanspareilsmyn/mongolens/internal/store"
	"github.com/sanspareilsmyn/mongolens/internal/watch"
)

// Bundle gathers the reports of one CLI run. Nil or empty members are
// omitted from the output.
type Bundle struct {
	Statistics   aggregator.Results           `json:"statistics,omitempty"`
	Field        *aggregator.FieldReport      `json:"field,omitempty"`
	Cross        *aggregator.CrossFieldReport `json:"cross,omitempty"`
	Collections  []inspect.CollectionInfo     `json:"collections,omitempty"`
	Storage      *inspect.StorageReport       `json:"storage,omitempty"`
	FieldTypes   *inspect.FieldTypeReport     `json:"fieldTypes,omitempty"`
	Distribution *inspect.DistributionReport  `json:"distribution,omitempty"`
	Database     *store.DatabaseStats         `json:"database,omitempty"`
	Server       *store.ServerStatus          `json:"server,omitempty"`
	Changes      *watch.Snapshot              `json:"changes,omitempty"`
	Complete     *inspect.CompleteReport      `json:"analysis,omitempty"`
}

func (b Bundle) empty() bool {
	return len(b.Statistics) == 0 && b.Field == nil && b.Cross == nil && len(b.Collections) == 0 &&
		b.Storage == nil && b.FieldTypes == nil && b.Distribution == nil && b.Database == nil &&
		b.Server == nil && b.Changes == nil && b.Complete == nil
}

// WriteJSON writes v as two-space indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// WriteFile writes b to path, choosing the format from its extension
// (.json or .xlsx).
func WriteFile(path string, b Bundle) error {
	if b.empty() {
		return ErrEmptyBundle
	}

	var write func(io.Writer, Bundle) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		write = func(w io.Writer, b Bundle) error { return WriteJSON(w, b) }
	case ".xlsx":
		write = WriteXLSX
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if err := write(f, b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}
