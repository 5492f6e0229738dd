// Package records implements the classified record store for Winnow.
// It provides types, data access, and business logic for persisting
// pipeline outcomes, serving the signal feed and noise review panel,
// restoring suppressed records, and auditing manual interventions.
package records

import (
	"time"

	"github.com/google/uuid"

	"github.com/winnowhq/winnow/pipeline"
)

// Record is a stored classification outcome. Rows are append-only: after
// insert, only the suppression fields ever change, and the original text
// is never rewritten.
type Record struct {
	ID               uuid.UUID           `json:"id"`
	BatchID          uuid.UUID           `json:"batch_id"`
	ChunkID          string              `json:"chunk_id"`
	SessionID        string              `json:"session_id"`
	SourceType       pipeline.SourceType `json:"source_type"`
	SourceRef        string              `json:"source_ref"`
	Speaker          *string             `json:"speaker"`
	OccurredAt       *time.Time          `json:"occurred_at"`
	RawText          string              `json:"raw_text"`
	CleanedText      string              `json:"cleaned_text"`
	Label            pipeline.Label      `json:"label"`
	Confidence       float64             `json:"confidence"`
	Rationale        string              `json:"reasoning"`
	Path             pipeline.Path       `json:"classification_path"`
	Suppressed       bool                `json:"suppressed"`
	ManuallyRestored bool                `json:"manually_restored"`
	FlaggedForReview bool                `json:"flagged_for_review"`
	CreatedAt        time.Time           `json:"created_at"`
}

// RestoreCommand carries the data needed to restore a suppressed record.
// RestoredBy identifies the human who overrode the pipeline's judgment.
type RestoreCommand struct {
	RestoredBy string `json:"restored_by"`
	Note       string `json:"note,omitempty"`
}

// Event is one audit entry for a record. Events are written whenever a
// human intervenes, so every override is attributable after the fact.
type Event struct {
	ID        uuid.UUID `json:"id"`
	RecordID  uuid.UUID `json:"record_id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}
