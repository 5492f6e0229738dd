package batches

import (
	"net/url"

	"github.com/winnowhq/winnow/pkg/query"
	"github.com/winnowhq/winnow/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "ingest_batches", "b").
	Project("id", "ID").
	Project("session_id", "SessionID").
	Project("source_type", "SourceType").
	Project("status", "Status").
	Project("storage_key", "StorageKey").
	Project("received", "Received").
	Project("stored", "Stored").
	Project("suppressed", "Suppressed").
	Project("flagged", "Flagged").
	Project("rejected", "Rejected").
	Project("deduplicated", "Deduplicated").
	Project("unprocessed", "Unprocessed").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for batch queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	SessionID  *string `json:"session_id,omitempty"`
	SourceType *string `json:"source_type,omitempty"`
	Status     *string `json:"status,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("SessionID", f.SessionID).
		WhereEquals("SourceType", f.SourceType).
		WhereEquals("Status", f.Status)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("session_id"); s != "" {
		f.SessionID = &s
	}

	if s := values.Get("source_type"); s != "" {
		f.SourceType = &s
	}

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	return f
}

func scanBatch(s repository.Scanner) (Batch, error) {
	var b Batch

	err := s.Scan(
		&b.ID,
		&b.SessionID,
		&b.SourceType,
		&b.Status,
		&b.StorageKey,
		&b.Received,
		&b.Stored,
		&b.Suppressed,
		&b.Flagged,
		&b.Rejected,
		&b.Deduplicated,
		&b.Unprocessed,
		&b.CreatedAt,
		&b.UpdatedAt,
	)

	return b, err
}
