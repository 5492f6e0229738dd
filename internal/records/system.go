package records

import (
	"context"

	"github.com/google/uuid"

	"github.com/winnowhq/winnow/pipeline"
	"github.com/winnowhq/winnow/pkg/pagination"
)

// System defines the public contract for record domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Record], error)

	Find(ctx context.Context, id uuid.UUID) (*Record, error)
	CreateBatch(ctx context.Context, batchID uuid.UUID, outcomes []pipeline.Outcome) ([]Record, error)
	Restore(ctx context.Context, id uuid.UUID, cmd RestoreCommand) (*Record, error)
	Events(ctx context.Context, id uuid.UUID) ([]Event, error)
}
