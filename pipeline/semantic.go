package pipeline

import (
	"context"
	"errors"
)

// classifySemantic submits a chunk to the external classification service,
// retrying transport failures up to the configured count. Malformed
// responses are never retried. When all attempts fail the chunk falls back
// to noise at zero confidence, flagged for review, so the failure is
// visible downstream instead of losing the chunk.
func (p *Pipeline) classifySemantic(ctx context.Context, c Chunk) Classification {
	var err error

	for attempt := 0; attempt <= p.cfg.SemanticRetries; attempt++ {
		if ctx.Err() != nil {
			err = ctx.Err()
			break
		}

		var res Result
		res, err = p.classifier.Classify(ctx, c)
		if err == nil {
			if verr := res.Validate(); verr != nil {
				err = verr
				break
			}

			return Classification{
				Label:      res.Label,
				Confidence: res.Confidence,
				Rationale:  res.Rationale,
				Path:       PathSemantic,
			}
		}

		if errors.Is(err, ErrMalformedResponse) {
			break
		}

		p.logger.WarnContext(ctx, "semantic classification attempt failed",
			"chunk_id", c.ChunkID,
			"attempt", attempt+1,
			"error", err,
		)
	}

	rationale := "classification service unavailable"
	if errors.Is(err, ErrMalformedResponse) {
		rationale = "malformed classification response"
	}

	p.logger.WarnContext(ctx, "semantic classification fell back to noise",
		"chunk_id", c.ChunkID,
		"error", err,
	)

	return Classification{
		Label:            LabelNoise,
		Confidence:       0.0,
		Rationale:        rationale,
		Path:             PathSemantic,
		FlaggedForReview: true,
	}
}
