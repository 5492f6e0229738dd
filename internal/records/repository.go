package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/winnowhq/winnow/pipeline"
	"github.com/winnowhq/winnow/pkg/pagination"
	"github.com/winnowhq/winnow/pkg/query"
	"github.com/winnowhq/winnow/pkg/repository"
)

const recordColumns = `id, batch_id, chunk_id, session_id, source_type, source_ref,
				  speaker, occurred_at, raw_text, cleaned_text, label, confidence,
				  rationale, classification_path, suppressed, manually_restored,
				  flagged_for_review, created_at`

type repo struct {
	db                *sql.DB
	logger            *slog.Logger
	pagination        pagination.Config
	persistMaxElapsed time.Duration
}

// New creates a record repository implementing the System interface.
// persistMaxElapsed bounds how long a batch insert keeps retrying before
// the store is declared unavailable.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
	persistMaxElapsed time.Duration,
) System {
	return &repo{
		db:                db,
		logger:            logger.With("system", "records"),
		pagination:        pagination,
		persistMaxElapsed: persistMaxElapsed,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Record], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "RawText", "CleanedText", "Rationale")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Record, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	rec, err := repository.QueryOne(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rec, nil
}

// CreateBatch persists one pipeline batch in a single transaction,
// retrying transient store failures with exponential backoff until the
// configured elapsed limit. Chunks already stored under the same chunk_id
// are skipped, which makes re-submitting a batch safe.
func (r *repo) CreateBatch(
	ctx context.Context,
	batchID uuid.UUID,
	outcomes []pipeline.Outcome,
) ([]Record, error) {
	insertQ := `
		INSERT INTO classified_records(
			batch_id, chunk_id, session_id, source_type, source_ref,
			speaker, occurred_at, raw_text, cleaned_text, label, confidence,
			rationale, classification_path, suppressed, manually_restored,
			flagged_for_review, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (chunk_id) DO NOTHING
		RETURNING ` + recordColumns

	var stored []Record

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = r.persistMaxElapsed

	attempt := 0
	operation := func() error {
		attempt++

		recs, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) ([]Record, error) {
			inserted := make([]Record, 0, len(outcomes))
			for _, o := range outcomes {
				c, cl := o.Chunk, o.Classification

				rec, err := repository.QueryOne(ctx, tx, insertQ, []any{
					batchID,
					c.ChunkID,
					c.SessionID,
					c.SourceType,
					c.SourceRef,
					nullString(c.Speaker),
					c.OccurredAt,
					c.RawText,
					c.CleanedText,
					cl.Label,
					cl.Confidence,
					cl.Rationale,
					cl.Path,
					cl.Suppressed,
					cl.ManuallyRestored,
					cl.FlaggedForReview,
					cl.CreatedAt,
				}, scanRecord)

				if errors.Is(err, sql.ErrNoRows) {
					// chunk_id already stored by an earlier batch
					continue
				}
				if err != nil {
					return nil, fmt.Errorf("insert record %s: %w", c.ChunkID, err)
				}

				inserted = append(inserted, rec)
			}
			return inserted, nil
		})

		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			r.logger.WarnContext(ctx, "batch persist attempt failed",
				"batch_id", batchID,
				"attempt", attempt,
				"error", err,
			)
			return err
		}

		stored = recs
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistExhausted, err)
	}

	r.logger.InfoContext(ctx, "batch persisted",
		"batch_id", batchID,
		"stored", len(stored),
		"skipped", len(outcomes)-len(stored),
	)
	return stored, nil
}

// Restore reverses suppression on a record. Only the suppression fields
// change; the stored text and classification are never rewritten. Every
// restore appends an audit event naming who intervened.
func (r *repo) Restore(ctx context.Context, id uuid.UUID, cmd RestoreCommand) (*Record, error) {
	restoreQ := `
		UPDATE classified_records
		SET suppressed = FALSE, manually_restored = TRUE
		WHERE id = $1
		RETURNING ` + recordColumns

	rec, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Record, error) {
		var suppressed bool
		err := tx.QueryRowContext(ctx,
			"SELECT suppressed FROM classified_records WHERE id = $1 FOR UPDATE",
			id,
		).Scan(&suppressed)
		if err != nil {
			return Record{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
		}
		if !suppressed {
			return Record{}, ErrNotSuppressed
		}

		rec, err := repository.QueryOne(ctx, tx, restoreQ, []any{id}, scanRecord)
		if err != nil {
			return Record{}, fmt.Errorf("restore record: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO record_events(record_id, action, actor, detail) VALUES ($1, $2, $3, $4)",
			id, "restored", cmd.RestoredBy, cmd.Note,
		); err != nil {
			return Record{}, fmt.Errorf("record restore event: %w", err)
		}

		return rec, nil
	})

	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "record restored",
		"id", rec.ID,
		"chunk_id", rec.ChunkID,
		"restored_by", cmd.RestoredBy,
	)
	return &rec, nil
}

func (r *repo) Events(ctx context.Context, id uuid.UUID) ([]Event, error) {
	// existence check so an unknown id is a 404, not an empty list
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}

	eventsQ := `
		SELECT id, record_id, action, actor, detail, created_at
		FROM record_events
		WHERE record_id = $1
		ORDER BY created_at ASC`

	events, err := repository.QueryMany(ctx, r.db, eventsQ, []any{id}, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("query record events: %w", err)
	}

	if events == nil {
		events = []Event{}
	}
	return events, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
