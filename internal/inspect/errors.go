package inspect

import "errors"

var (
	ErrListing  = errors.New("failed to list collections")
	ErrSampling = errors.New("failed to sample collection")
)
