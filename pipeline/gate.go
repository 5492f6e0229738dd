package pipeline

import (
	"regexp"
	"strings"
)

// GateRationale is recorded on every chunk the domain gate forces to
// noise, so the review panel can surface why semantic classification was
// skipped.
const GateRationale = "no domain-relevant vocabulary detected"

// EvaluateGate decides whether a chunk is worth the cost of semantic
// classification. Chunks containing no domain-relevant vocabulary are
// labeled noise at the configured gate confidence and always flagged for
// review; all other chunks proceed undecided.
func (p *Pipeline) EvaluateGate(c Chunk) (Classification, bool) {
	if p.vocab.MatchString(c.Text()) {
		return Classification{}, false
	}

	return Classification{
		Label:            LabelNoise,
		Confidence:       p.cfg.GateConfidence,
		Rationale:        GateRationale,
		Path:             PathDomainGate,
		FlaggedForReview: true,
	}, true
}

// compileVocabulary builds a single case-insensitive whole-word matcher
// from the configured term list.
func compileVocabulary(terms []string) (*regexp.Regexp, error) {
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(term)))
	}

	return regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}
