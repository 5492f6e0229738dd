// Package pipeline implements the chunk classification core for Winnow.
// It provides deduplication, heuristic fast-path rules, the domain
// vocabulary gate, semantic classification dispatch, and uniform confidence
// resolution, driven by an explicit per-chunk state machine so that no
// stage can be skipped.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Label is one of the five classification categories.
type Label string

// Classification categories. Everything except LabelNoise is a signal.
const (
	LabelRequirement         Label = "requirement"
	LabelDecision            Label = "decision"
	LabelStakeholderFeedback Label = "stakeholder_feedback"
	LabelTimelineReference   Label = "timeline_reference"
	LabelNoise               Label = "noise"
)

var labels = []Label{
	LabelRequirement,
	LabelDecision,
	LabelStakeholderFeedback,
	LabelTimelineReference,
	LabelNoise,
}

// Labels returns the list of valid classification labels.
func Labels() []Label {
	return labels
}

// ParseLabel validates a string as a known classification label.
func ParseLabel(s string) (Label, error) {
	v := Label(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(labels, v) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
	return v, nil
}

// Path identifies which pipeline stage produced a chunk's label.
type Path string

// Classification paths.
const (
	PathHeuristic  Path = "heuristic"
	PathDomainGate Path = "domain_gate"
	PathSemantic   Path = "semantic"
)

// SourceType enumerates the origins a chunk can come from.
type SourceType string

// Chunk source types.
const (
	SourceEmail   SourceType = "email"
	SourceMeeting SourceType = "meeting"
	SourceChat    SourceType = "chat"
	SourceFile    SourceType = "file"
)

var sourceTypes = []SourceType{
	SourceEmail,
	SourceMeeting,
	SourceChat,
	SourceFile,
}

// ParseSourceType validates a string as a known source type.
func ParseSourceType(s string) (SourceType, error) {
	v := SourceType(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(sourceTypes, v) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSourceType, s)
	}
	return v, nil
}

// Stage tracks a chunk's progress through the pipeline state machine.
type Stage int

// Pipeline stages, in traversal order. A chunk always advances one stage
// per transition and terminates at StageResolved.
const (
	StageNew Stage = iota
	StageHeuristicChecked
	StageGateChecked
	StageSemanticChecked
	StageResolved
)

var stageNames = map[Stage]string{
	StageNew:              "new",
	StageHeuristicChecked: "heuristic-checked",
	StageGateChecked:      "gate-checked",
	StageSemanticChecked:  "semantic-checked",
	StageResolved:         "resolved",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Chunk is the unit of classification: a normalized, attributable fragment
// of source text produced by the upstream ingestion collaborator.
type Chunk struct {
	ChunkID     string     `json:"chunk_id"`
	SessionID   string     `json:"session_id"`
	SourceType  SourceType `json:"source_type"`
	SourceRef   string     `json:"source_ref"`
	Speaker     string     `json:"speaker,omitempty"`
	OccurredAt  *time.Time `json:"occurred_at,omitempty"`
	RawText     string     `json:"raw_text"`
	CleanedText string     `json:"cleaned_text"`
}

// Text returns the cleaned text, falling back to raw text when the
// upstream collaborator supplied no cleaned variant. Raw text itself is
// never modified.
func (c *Chunk) Text() string {
	if c.CleanedText != "" {
		return c.CleanedText
	}
	return c.RawText
}

// Validate reports whether the chunk carries every field required to enter
// the pipeline. Malformed chunks are rejected before any classification
// work so that nothing is silently dropped.
func (c *Chunk) Validate() error {
	if c.ChunkID == "" {
		return fmt.Errorf("%w: chunk_id required", ErrInvalidChunk)
	}
	if c.SessionID == "" {
		return fmt.Errorf("%w: session_id required", ErrInvalidChunk)
	}
	if _, err := ParseSourceType(string(c.SourceType)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}
	if strings.TrimSpace(c.RawText) == "" {
		return fmt.Errorf("%w: raw_text required", ErrInvalidChunk)
	}
	return nil
}

// Classification is one chunk's outcome: the label, the confidence the
// producing stage assigned, and the resolved suppression and review state.
type Classification struct {
	Label            Label     `json:"label"`
	Confidence       float64   `json:"confidence"`
	Rationale        string    `json:"rationale"`
	Path             Path      `json:"classification_path"`
	Suppressed       bool      `json:"suppressed"`
	ManuallyRestored bool      `json:"manually_restored"`
	FlaggedForReview bool      `json:"flagged_for_review"`
	CreatedAt        time.Time `json:"created_at"`
}

// Outcome pairs a chunk with its resolved classification.
type Outcome struct {
	Chunk          Chunk
	Classification Classification
}

// RejectedChunk reports a chunk that failed validation before entering the
// pipeline, along with the reason it was rejected.
type RejectedChunk struct {
	Chunk  Chunk  `json:"chunk"`
	Reason string `json:"reason"`
}

// BatchResult is the output of processing one ingestion batch. Outcomes
// holds every chunk that reached a resolved classification; Rejected holds
// chunks that failed validation; Unprocessed holds chunks abandoned by a
// batch-level cancellation before reaching the semantic stage.
type BatchResult struct {
	Outcomes     []Outcome
	Rejected     []RejectedChunk
	Unprocessed  []Chunk
	Deduplicated int
}

// Result is the structured response from the external classification
// service: a label, a confidence in [0,1], and a short rationale.
type Result struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"reasoning"`
}

// Validate strictly checks the response schema. Any violation marks the
// whole response malformed; malformed responses are never retried.
func (r *Result) Validate() error {
	if _, err := ParseLabel(string(r.Label)); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrMalformedResponse, r.Confidence)
	}
	return nil
}

// Classifier submits one chunk to the external classification service.
// Chunk text must be treated as untrusted content, never as instructions.
// Implementations must be safe for concurrent use; each call is independent
// and idempotent in effect.
type Classifier interface {
	Classify(ctx context.Context, chunk Chunk) (Result, error)
}
