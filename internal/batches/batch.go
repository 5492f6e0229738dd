// Package batches implements the ingestion domain for Winnow. A batch is
// one submission of chunks from an upstream collaborator: the raw payload
// is archived to blob storage, the chunks run through the classification
// pipeline, and the outcomes are persisted as classified records.
package batches

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/winnowhq/winnow/internal/records"
	"github.com/winnowhq/winnow/pipeline"
)

// Batch statuses.
const (
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusFailed     = "failed"
)

// Batch represents one ingestion submission and its processing summary.
type Batch struct {
	ID           uuid.UUID `json:"id"`
	SessionID    string    `json:"session_id"`
	SourceType   string    `json:"source_type"`
	Status       string    `json:"status"`
	StorageKey   string    `json:"storage_key"`
	Received     int       `json:"received"`
	Stored       int       `json:"stored"`
	Suppressed   int       `json:"suppressed"`
	Flagged      int       `json:"flagged"`
	Rejected     int       `json:"rejected"`
	Deduplicated int       `json:"deduplicated"`
	Unprocessed  int       `json:"unprocessed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IngestCommand carries one batch submission. SessionID and SourceType
// are defaults applied to chunks that do not set their own.
type IngestCommand struct {
	SessionID  string           `json:"session_id"`
	SourceType string           `json:"source_type"`
	Chunks     []pipeline.Chunk `json:"chunks"`
}

// Validate checks the command before any processing work begins.
func (cmd *IngestCommand) Validate() error {
	if len(cmd.Chunks) == 0 {
		return ErrEmptyBatch
	}
	if cmd.SourceType != "" {
		if _, err := pipeline.ParseSourceType(cmd.SourceType); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidBatch, err)
		}
	}
	return nil
}

// normalized returns the chunks with command-level defaults applied.
// Per-chunk values always win.
func (cmd *IngestCommand) normalized() []pipeline.Chunk {
	chunks := make([]pipeline.Chunk, len(cmd.Chunks))
	copy(chunks, cmd.Chunks)

	for i := range chunks {
		if chunks[i].SessionID == "" {
			chunks[i].SessionID = cmd.SessionID
		}
		if chunks[i].SourceType == "" {
			chunks[i].SourceType = pipeline.SourceType(cmd.SourceType)
		}
	}
	return chunks
}

// IngestResult is the full outcome of one batch submission: the stored
// batch summary, the persisted records, and everything that did not make
// it into the store along with why.
type IngestResult struct {
	Batch       Batch                    `json:"batch"`
	Records     []records.Record         `json:"records"`
	Rejected    []pipeline.RejectedChunk `json:"rejected"`
	Unprocessed []pipeline.Chunk         `json:"unprocessed"`
}
