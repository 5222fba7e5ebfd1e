package aggregator

import (
	"errors"
	"fmt"
)

var (
	ErrRetrieval   = errors.New("retrieval failed")
	ErrComputation = errors.New("statistics computation failed")
	ErrEmptyField  = errors.New("field name cannot be empty")
	ErrListing     = errors.New("failed to list collections")
)

// RetrievalError reports that one collection (or one field of it) could not
// be read. It matches ErrRetrieval and unwraps to the store error.
type RetrievalError struct {
	Collection string
	Field      string
	Err        error
}

func (e *RetrievalError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s.%s: %v", ErrRetrieval, e.Collection, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrRetrieval, e.Collection, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func (e *RetrievalError) Is(target error) bool { return target == ErrRetrieval }
