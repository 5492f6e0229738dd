package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pipeline drives chunks through the classification state machine:
// new → heuristic-checked → gate-checked → semantic-checked → resolved,
// with early termination to resolved whenever a stage is decisive. Stages
// are strictly sequential per chunk; chunks are independent of each other.
type Pipeline struct {
	cfg        Config
	classifier Classifier
	vocab      *regexp.Regexp
	logger     *slog.Logger
}

// New creates a pipeline from explicit configuration. The configuration
// must already be finalized; New validates it again defensively since the
// pipeline is also constructed directly in tests.
func New(cfg Config, classifier Classifier, logger *slog.Logger) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier required")
	}

	vocab, err := compileVocabulary(cfg.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("compile vocabulary: %w", err)
	}

	return &Pipeline{
		cfg:        cfg,
		classifier: classifier,
		vocab:      vocab,
		logger:     logger.With("system", "pipeline"),
	}, nil
}

// chunkState carries one chunk through the state machine.
type chunkState struct {
	stage   Stage
	chunk   Chunk
	class   Classification
	decided bool
}

// transition advances a chunk exactly one stage. It is the only place
// stage progression happens, which makes the never-skip-a-stage invariant
// structural: a chunk cannot reach the semantic stage without passing
// through the heuristic and gate transitions first.
func (p *Pipeline) transition(ctx context.Context, s chunkState) (chunkState, error) {
	switch s.stage {
	case StageNew:
		if cl, ok := p.EvaluateHeuristic(s.chunk); ok {
			s.class = cl
			s.decided = true
		}
		s.stage = StageHeuristicChecked
		return s, nil

	case StageHeuristicChecked:
		if s.decided {
			return p.resolve(s), nil
		}
		if cl, ok := p.EvaluateGate(s.chunk); ok {
			s.class = cl
			s.decided = true
		}
		s.stage = StageGateChecked
		return s, nil

	case StageGateChecked:
		if s.decided {
			return p.resolve(s), nil
		}
		// Cancellation stops new semantic dispatches; in-flight calls
		// run to completion or hit their own timeout.
		if err := ctx.Err(); err != nil {
			return s, err
		}
		s.class = p.classifySemantic(ctx, s.chunk)
		s.decided = true
		s.stage = StageSemanticChecked
		return s, nil

	case StageSemanticChecked:
		return p.resolve(s), nil

	default:
		return s, fmt.Errorf("no transition from %s", s.stage)
	}
}

func (p *Pipeline) resolve(s chunkState) chunkState {
	s.class = p.Resolve(s.class)
	s.class.CreatedAt = time.Now().UTC()
	s.stage = StageResolved
	return s
}

// ClassifyChunk runs a single validated chunk through every stage to a
// resolved classification. Returns the context error if a batch-level
// cancellation stopped the chunk before the semantic stage.
func (p *Pipeline) ClassifyChunk(ctx context.Context, c Chunk) (Classification, error) {
	s := chunkState{stage: StageNew, chunk: c}

	var err error
	for s.stage != StageResolved {
		s, err = p.transition(ctx, s)
		if err != nil {
			return Classification{}, err
		}
	}

	return s.class, nil
}

// Process classifies one ingestion batch. Malformed chunks are rejected up
// front and reported; duplicates are dropped; remaining chunks are
// processed by a bounded worker pool sized to the configured concurrency
// cap, since the semantic stage shares a rate-limited external service.
// Partial results are valid: every chunk that reached a classification is
// returned even when the batch context is cancelled mid-flight.
func (p *Pipeline) Process(ctx context.Context, chunks []Chunk) *BatchResult {
	result := &BatchResult{}

	valid := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			result.Rejected = append(result.Rejected, RejectedChunk{
				Chunk:  c,
				Reason: err.Error(),
			})
			continue
		}
		valid = append(valid, c)
	}

	deduped := Deduplicate(valid)
	result.Deduplicated = len(valid) - len(deduped)

	outcomes := make([]*Outcome, len(deduped))
	var mu sync.Mutex
	var unprocessed []Chunk

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Concurrency)

	for i, c := range deduped {
		g.Go(func() error {
			cl, err := p.ClassifyChunk(ctx, c)
			if err != nil {
				mu.Lock()
				unprocessed = append(unprocessed, c)
				mu.Unlock()
				return nil
			}
			outcomes[i] = &Outcome{Chunk: c, Classification: cl}
			return nil
		})
	}

	g.Wait()

	for _, o := range outcomes {
		if o != nil {
			result.Outcomes = append(result.Outcomes, *o)
		}
	}
	result.Unprocessed = unprocessed

	p.logger.InfoContext(ctx, "batch processed",
		"received", len(chunks),
		"rejected", len(result.Rejected),
		"deduplicated", result.Deduplicated,
		"classified", len(result.Outcomes),
		"unprocessed", len(result.Unprocessed),
	)

	return result
}
