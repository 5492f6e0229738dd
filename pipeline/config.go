package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultVocabulary is the domain-relevant term list applied when the
// configuration supplies none. The gate defers semantic classification for
// chunks containing none of these terms.
var DefaultVocabulary = []string{
	"system", "feature", "requirement", "integration", "deadline",
	"milestone", "release", "deliverable", "stakeholder", "client",
	"customer", "budget", "scope", "api", "dashboard", "report",
	"approval", "decision", "timeline", "sprint", "launch",
}

// Config holds the externally supplied pipeline tunables. Nothing in the
// pipeline reads ambient global state; every threshold and limit flows
// through this struct.
type Config struct {
	MinTokens         int      `toml:"min_tokens"`
	Vocabulary        []string `toml:"vocabulary"`
	AcceptThreshold   float64  `toml:"accept_threshold"`
	ReviewThreshold   float64  `toml:"review_threshold"`
	GateConfidence    float64  `toml:"gate_confidence"`
	SemanticRetries   int      `toml:"semantic_retries"`
	Concurrency       int      `toml:"concurrency"`
	PersistMaxElapsed string   `toml:"persist_max_elapsed"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MinTokens         string
	Vocabulary        string
	AcceptThreshold   string
	ReviewThreshold   string
	GateConfidence    string
	SemanticRetries   string
	Concurrency       string
	PersistMaxElapsed string
}

// PersistMaxElapsedDuration returns PersistMaxElapsed as a time.Duration.
func (c *Config) PersistMaxElapsedDuration() time.Duration {
	d, _ := time.ParseDuration(c.PersistMaxElapsed)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.MinTokens != 0 {
		c.MinTokens = overlay.MinTokens
	}
	if overlay.Vocabulary != nil {
		c.Vocabulary = overlay.Vocabulary
	}
	if overlay.AcceptThreshold != 0 {
		c.AcceptThreshold = overlay.AcceptThreshold
	}
	if overlay.ReviewThreshold != 0 {
		c.ReviewThreshold = overlay.ReviewThreshold
	}
	if overlay.GateConfidence != 0 {
		c.GateConfidence = overlay.GateConfidence
	}
	if overlay.SemanticRetries != 0 {
		c.SemanticRetries = overlay.SemanticRetries
	}
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
	if overlay.PersistMaxElapsed != "" {
		c.PersistMaxElapsed = overlay.PersistMaxElapsed
	}
}

func (c *Config) loadDefaults() {
	if c.MinTokens == 0 {
		c.MinTokens = 5
	}
	if c.Vocabulary == nil {
		c.Vocabulary = DefaultVocabulary
	}
	if c.AcceptThreshold == 0 {
		c.AcceptThreshold = 0.85
	}
	if c.ReviewThreshold == 0 {
		c.ReviewThreshold = 0.60
	}
	if c.GateConfidence == 0 {
		c.GateConfidence = 0.3
	}
	if c.SemanticRetries == 0 {
		c.SemanticRetries = 1
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
	if c.PersistMaxElapsed == "" {
		c.PersistMaxElapsed = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.MinTokens != "" {
		if v := os.Getenv(env.MinTokens); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MinTokens = n
			}
		}
	}
	if env.Vocabulary != "" {
		if v := os.Getenv(env.Vocabulary); v != "" {
			terms := strings.Split(v, ",")
			c.Vocabulary = make([]string, 0, len(terms))
			for _, term := range terms {
				if trimmed := strings.TrimSpace(term); trimmed != "" {
					c.Vocabulary = append(c.Vocabulary, trimmed)
				}
			}
		}
	}
	if env.AcceptThreshold != "" {
		if v := os.Getenv(env.AcceptThreshold); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.AcceptThreshold = f
			}
		}
	}
	if env.ReviewThreshold != "" {
		if v := os.Getenv(env.ReviewThreshold); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.ReviewThreshold = f
			}
		}
	}
	if env.GateConfidence != "" {
		if v := os.Getenv(env.GateConfidence); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.GateConfidence = f
			}
		}
	}
	if env.SemanticRetries != "" {
		if v := os.Getenv(env.SemanticRetries); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.SemanticRetries = n
			}
		}
	}
	if env.Concurrency != "" {
		if v := os.Getenv(env.Concurrency); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Concurrency = n
			}
		}
	}
	if env.PersistMaxElapsed != "" {
		if v := os.Getenv(env.PersistMaxElapsed); v != "" {
			c.PersistMaxElapsed = v
		}
	}
}

func (c *Config) validate() error {
	if c.MinTokens < 1 {
		return fmt.Errorf("min_tokens must be positive")
	}
	if len(c.Vocabulary) == 0 {
		return fmt.Errorf("vocabulary must not be empty")
	}
	if c.AcceptThreshold <= 0 || c.AcceptThreshold > 1 {
		return fmt.Errorf("accept_threshold must be in (0,1]")
	}
	if c.ReviewThreshold <= 0 || c.ReviewThreshold >= c.AcceptThreshold {
		return fmt.Errorf("review_threshold must be in (0, accept_threshold)")
	}
	if c.GateConfidence < 0 || c.GateConfidence >= c.ReviewThreshold {
		return fmt.Errorf("gate_confidence must be in [0, review_threshold)")
	}
	if c.SemanticRetries < 0 {
		return fmt.Errorf("semantic_retries must not be negative")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive")
	}
	if _, err := time.ParseDuration(c.PersistMaxElapsed); err != nil {
		return fmt.Errorf("invalid persist_max_elapsed: %w", err)
	}
	return nil
}
