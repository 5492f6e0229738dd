package records

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/winnowhq/winnow/pkg/query"
	"github.com/winnowhq/winnow/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "classified_records", "r").
	Project("id", "ID").
	Project("batch_id", "BatchID").
	Project("chunk_id", "ChunkID").
	Project("session_id", "SessionID").
	Project("source_type", "SourceType").
	Project("source_ref", "SourceRef").
	Project("speaker", "Speaker").
	Project("occurred_at", "OccurredAt").
	Project("raw_text", "RawText").
	Project("cleaned_text", "CleanedText").
	Project("label", "Label").
	Project("confidence", "Confidence").
	Project("rationale", "Rationale").
	Project("classification_path", "Path").
	Project("suppressed", "Suppressed").
	Project("manually_restored", "ManuallyRestored").
	Project("flagged_for_review", "FlaggedForReview").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// View selects one of the two downstream projections of the record store.
type View string

// Record views. ViewSignals is the feed downstream consumers read:
// everything not suppressed, plus anything a human restored. ViewNoise is
// the review panel: suppressed records that nobody has restored.
const (
	ViewSignals View = "signals"
	ViewNoise   View = "noise"
)

// Filters contains optional filtering criteria for record queries.
// Nil and zero fields are ignored.
type Filters struct {
	Label      *string    `json:"label,omitempty"`
	SessionID  *string    `json:"session_id,omitempty"`
	SourceType *string    `json:"source_type,omitempty"`
	Path       *string    `json:"classification_path,omitempty"`
	Flagged    *bool      `json:"flagged_for_review,omitempty"`
	BatchID    *uuid.UUID `json:"batch_id,omitempty"`
	View       View       `json:"view,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.
		WhereEquals("Label", f.Label).
		WhereEquals("SessionID", f.SessionID).
		WhereEquals("SourceType", f.SourceType).
		WhereEquals("Path", f.Path).
		WhereEquals("FlaggedForReview", f.Flagged).
		WhereEquals("BatchID", f.BatchID)

	switch f.View {
	case ViewSignals:
		b.WhereExpr("(r.suppressed = false OR r.manually_restored = true)")
	case ViewNoise:
		b.WhereExpr("(r.suppressed = true AND r.manually_restored = false)")
	}

	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if l := values.Get("label"); l != "" {
		f.Label = &l
	}

	if s := values.Get("session_id"); s != "" {
		f.SessionID = &s
	}

	if s := values.Get("source_type"); s != "" {
		f.SourceType = &s
	}

	if p := values.Get("classification_path"); p != "" {
		f.Path = &p
	}

	if v := values.Get("flagged"); v != "" {
		flagged := v == "true"
		f.Flagged = &flagged
	}

	if b := values.Get("batch_id"); b != "" {
		if id, err := uuid.Parse(b); err == nil {
			f.BatchID = &id
		}
	}

	switch View(values.Get("view")) {
	case ViewSignals:
		f.View = ViewSignals
	case ViewNoise:
		f.View = ViewNoise
	}

	return f
}

func scanRecord(s repository.Scanner) (Record, error) {
	var r Record

	err := s.Scan(
		&r.ID,
		&r.BatchID,
		&r.ChunkID,
		&r.SessionID,
		&r.SourceType,
		&r.SourceRef,
		&r.Speaker,
		&r.OccurredAt,
		&r.RawText,
		&r.CleanedText,
		&r.Label,
		&r.Confidence,
		&r.Rationale,
		&r.Path,
		&r.Suppressed,
		&r.ManuallyRestored,
		&r.FlaggedForReview,
		&r.CreatedAt,
	)

	return r, err
}

func scanEvent(s repository.Scanner) (Event, error) {
	var e Event

	err := s.Scan(
		&e.ID,
		&e.RecordID,
		&e.Action,
		&e.Actor,
		&e.Detail,
		&e.CreatedAt,
	)

	return e, err
}
