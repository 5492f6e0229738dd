package api

import (
	"time"

	"github.com/winnowhq/winnow/internal/batches"
	"github.com/winnowhq/winnow/internal/records"
	"github.com/winnowhq/winnow/pipeline"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Records records.System
	Batches batches.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(
	runtime *Runtime,
	pipe *pipeline.Pipeline,
	persistMaxElapsed time.Duration,
) *Domain {
	recordsSystem := records.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
		persistMaxElapsed,
	)

	batchesSystem := batches.New(
		runtime.Database.Connection(),
		runtime.Storage,
		pipe,
		recordsSystem,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Records: recordsSystem,
		Batches: batchesSystem,
	}
}
