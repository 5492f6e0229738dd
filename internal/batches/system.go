package batches

import (
	"context"

	"github.com/google/uuid"

	"github.com/winnowhq/winnow/pkg/pagination"
)

// System defines the public contract for batch domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Batch], error)

	Find(ctx context.Context, id uuid.UUID) (*Batch, error)
	Ingest(ctx context.Context, cmd IngestCommand) (*IngestResult, error)
}
