package pipeline

import (
	"regexp"
	"strings"
)

// Heuristic patterns, evaluated in fixed priority order so results are
// reproducible. This stage never performs I/O.

// ackPattern matches short social acknowledgements that carry no signal.
var ackPattern = regexp.MustCompile(
	`(?i)^(?:thanks?(?:\s+\w+)?|thank you|sounds good|ok(?:ay)?|sure|` +
		`got it|noted|will do|yes|no|yep|nope|see you|talk soon|` +
		`good (?:morning|afternoon|evening)|` +
		`have a (?:good|great|nice) (?:day|weekend))[.!]*$`)

// symbolPattern matches chunks consisting solely of punctuation, symbols,
// or emoji.
var symbolPattern = regexp.MustCompile(`^[\s\p{P}\p{S}]+$`)

// structuralPattern matches system-generated mail and transcript artifacts
// that are always discarded as noise.
var structuralPattern = regexp.MustCompile(
	`(?i)(?:delivery status notification|out of office|auto.?reply|` +
		`undeliverable|mailer-daemon|postmaster|` +
		`-{2,}\s*(?:original|forwarded) message\s*-{2,}|` +
		`begin forwarded message)`)

// crosstalkPattern matches meeting transcript markers for unusable audio.
var crosstalkPattern = regexp.MustCompile(
	`(?i)^\[?\(?(?:crosstalk|inaudible|pause|silence|laughter)\)?\]?[.!]*$`)

// timelinePattern matches explicit date and deadline references.
var timelinePattern = regexp.MustCompile(
	`(?i)(?:\bdeadline\b|\bdue (?:date|by|on)\b|` +
		`\bby (?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|eod|eow)\b|` +
		`\bq[1-4]\b|\btomorrow\b|\bnext (?:week|month|quarter)\b|` +
		`\bend of (?:the )?(?:week|month|quarter|year)\b|` +
		`\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}\b)`)

// commitmentPattern matches requirement and decision cues that outrank a
// timeline match, deferring the chunk to later stages.
var commitmentPattern = regexp.MustCompile(
	`(?i)(?:\bmust\b|\bshall\b|\bshould\b|\brequired?\b|\brequirement\b|` +
		`\bwe (?:decided|agreed|chose)\b|\bdecision\b|\bapproved\b|\bsign.?off\b)`)

// EvaluateHeuristic applies the deterministic fast-path rules to a chunk.
// It returns a definitive classification and true, or a zero value and
// false when the chunk must proceed to the domain gate. The same input
// always yields the same result.
func (p *Pipeline) EvaluateHeuristic(c Chunk) (Classification, bool) {
	text := strings.TrimSpace(c.Text())
	tokens := len(strings.Fields(text))

	if tokens < p.cfg.MinTokens && lowContent(text) {
		return Classification{
			Label:      LabelNoise,
			Confidence: 1.0,
			Rationale:  "short low-content message",
			Path:       PathHeuristic,
		}, true
	}

	if structuralPattern.MatchString(text) || structuralPattern.MatchString(c.Speaker) ||
		crosstalkPattern.MatchString(text) {
		return Classification{
			Label:      LabelNoise,
			Confidence: 1.0,
			Rationale:  "structural discard pattern",
			Path:       PathHeuristic,
		}, true
	}

	if timelinePattern.MatchString(text) && !commitmentPattern.MatchString(text) {
		return Classification{
			Label:      LabelTimelineReference,
			Confidence: 0.9,
			Rationale:  "explicit date or deadline reference",
			Path:       PathHeuristic,
		}, true
	}

	return Classification{}, false
}

func lowContent(text string) bool {
	if text == "" {
		return true
	}
	return symbolPattern.MatchString(text) || ackPattern.MatchString(text)
}
