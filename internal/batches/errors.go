package batches

import (
	"errors"
	"net/http"

	"github.com/winnowhq/winnow/internal/records"
)

// Domain errors for batch operations.
var (
	ErrNotFound     = errors.New("batch not found")
	ErrDuplicate    = errors.New("batch already exists")
	ErrEmptyBatch   = errors.New("batch contains no chunks")
	ErrInvalidBatch = errors.New("invalid batch")
)

// MapHTTPStatus maps batch domain errors to appropriate HTTP status codes.
// Record store exhaustion surfaces as a gateway failure so the caller
// knows to re-submit the batch.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrEmptyBatch) || errors.Is(err, ErrInvalidBatch) {
		return http.StatusBadRequest
	}
	if errors.Is(err, records.ErrPersistExhausted) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
