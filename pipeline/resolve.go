package pipeline

// Resolve applies the uniform confidence thresholds to a classification,
// regardless of which stage produced it. At or above the accept threshold
// the label stands; in the review band the label stands but the record is
// flagged; below the review threshold the label is forced to noise and the
// record is suppressed and flagged. Suppression is reversible through the
// restore operation, so forcing an uncertain label to noise parks it for
// human attention rather than losing it.
func (p *Pipeline) Resolve(cl Classification) Classification {
	switch {
	case cl.Confidence >= p.cfg.AcceptThreshold:
		cl.Suppressed = cl.Label == LabelNoise

	case cl.Confidence >= p.cfg.ReviewThreshold:
		cl.Suppressed = cl.Label == LabelNoise
		cl.FlaggedForReview = true

	default:
		cl.Label = LabelNoise
		cl.Suppressed = true
		cl.FlaggedForReview = true
	}

	return cl
}
