package export

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrEmptyBundle       = errors.New("nothing to export")
	ErrWriteFailed       = errors.New("failed to write export")
)
