package api

import (
	"errors"
	"net/http"

	"github.com/sanspareilsmyn/mongolens/internal/aggregator"
	"github.com/sanspareilsmyn/mongolens/internal/session"
	"github.com/sanspareilsmyn/mongolens/internal/store"
)

var (
	ErrMissingParameter = errors.New("missing query parameter")
	ErrServerFailed     = errors.New("http server failed")
)

// statusFor maps an error to the HTTP status returned to the client.
func statusFor(err error) int {
	switch {
	case store.IsConnectionError(err), errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, aggregator.ErrEmptyField), errors.Is(err, ErrMissingParameter):
		return http.StatusBadRequest
	case errors.Is(err, aggregator.ErrRetrieval):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
