package pipeline

import "errors"

// Sentinel errors for pipeline operations.
var (
	ErrInvalidChunk       = errors.New("invalid chunk")
	ErrInvalidLabel       = errors.New("invalid label")
	ErrInvalidSourceType  = errors.New("invalid source type")
	ErrMalformedResponse  = errors.New("malformed classification response")
	ErrServiceUnavailable = errors.New("classification service unavailable")
)
