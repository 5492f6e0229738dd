package batches

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/winnowhq/winnow/internal/records"
	"github.com/winnowhq/winnow/pipeline"
	"github.com/winnowhq/winnow/pkg/pagination"
	"github.com/winnowhq/winnow/pkg/query"
	"github.com/winnowhq/winnow/pkg/repository"
	"github.com/winnowhq/winnow/pkg/storage"
)

const batchColumns = `id, session_id, source_type, status, storage_key, received, stored,
				  suppressed, flagged, rejected, deduplicated, unprocessed,
				  created_at, updated_at`

type repo struct {
	db         *sql.DB
	storage    storage.System
	pipe       *pipeline.Pipeline
	records    records.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a batch repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	pipe *pipeline.Pipeline,
	recs records.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		pipe:       pipe,
		records:    recs,
		logger:     logger.With("system", "batches"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Batch], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "SessionID")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count batches: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanBatch)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Batch, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	b, err := repository.QueryOne(ctx, r.db, q, args, scanBatch)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &b, nil
}

// Ingest runs one batch end to end: archive the raw payload, record the
// batch as processing, classify every chunk, persist the outcomes, and
// finalize the summary. A record store failure marks the batch failed and
// surfaces as records.ErrPersistExhausted; the archived payload makes
// re-submission possible.
func (r *repo) Ingest(ctx context.Context, cmd IngestCommand) (*IngestResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	key := buildStorageKey(id)

	payload, err := json.Marshal(cmd.Chunks)
	if err != nil {
		return nil, fmt.Errorf("marshal batch payload: %w", err)
	}

	if err := r.storage.Upload(ctx, key, bytes.NewReader(payload), "application/json"); err != nil {
		return nil, fmt.Errorf("archive batch payload: %w", err)
	}

	insertQ := `
		INSERT INTO ingest_batches(id, session_id, source_type, status, storage_key, received)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + batchColumns

	insertArgs := []any{
		id,
		cmd.SessionID,
		cmd.SourceType,
		StatusProcessing,
		key,
		len(cmd.Chunks),
	}

	b, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Batch, error) {
		return repository.QueryOne(ctx, tx, insertQ, insertArgs, scanBatch)
	})
	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	result := r.pipe.Process(ctx, cmd.normalized())

	stored, err := r.records.CreateBatch(ctx, id, result.Outcomes)
	if err != nil {
		r.markFailed(ctx, id)
		return nil, fmt.Errorf("persist batch %s: %w", id, err)
	}

	var suppressed, flagged int
	for _, rec := range stored {
		if rec.Suppressed {
			suppressed++
		}
		if rec.FlaggedForReview {
			flagged++
		}
	}

	finalizeQ := `
		UPDATE ingest_batches
		SET status = $1, stored = $2, suppressed = $3, flagged = $4,
			rejected = $5, deduplicated = $6, unprocessed = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING ` + batchColumns

	finalizeArgs := []any{
		StatusComplete,
		len(stored),
		suppressed,
		flagged,
		len(result.Rejected),
		result.Deduplicated,
		len(result.Unprocessed),
		id,
	}

	b, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Batch, error) {
		return repository.QueryOne(ctx, tx, finalizeQ, finalizeArgs, scanBatch)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.InfoContext(ctx, "batch ingested",
		"id", b.ID,
		"received", b.Received,
		"stored", b.Stored,
		"suppressed", b.Suppressed,
		"flagged", b.Flagged,
		"rejected", b.Rejected,
		"deduplicated", b.Deduplicated,
		"unprocessed", b.Unprocessed,
	)

	return &IngestResult{
		Batch:       b,
		Records:     stored,
		Rejected:    result.Rejected,
		Unprocessed: result.Unprocessed,
	}, nil
}

// markFailed is best effort: the ingest error it accompanies matters more
// than the bookkeeping update.
func (r *repo) markFailed(ctx context.Context, id uuid.UUID) {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE ingest_batches SET status = $1, updated_at = NOW() WHERE id = $2",
		StatusFailed, id,
	); err != nil {
		r.logger.WarnContext(ctx, "mark batch failed", "id", id, "error", err)
	}
}

func buildStorageKey(id uuid.UUID) string {
	return fmt.Sprintf("batches/%s/payload.json", id)
}
