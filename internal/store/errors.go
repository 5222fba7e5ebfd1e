package store

import "errors"

var (
	ErrConnection         = errors.New("document store unreachable")
	ErrNotConnected       = errors.New("document store not connected")
	ErrMissingURI         = errors.New("database URI is required")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrQueryFailed        = errors.New("document store query failed")
	ErrStreamClosed       = errors.New("change stream closed")
)

// IsConnectionError reports whether err means the store cannot be reached at
// all, as opposed to a single query failing.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrNotConnected)
}
