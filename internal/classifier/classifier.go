// Package classifier implements semantic chunk classification against an
// OpenAI-compatible chat completion endpoint.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/winnowhq/winnow/pipeline"
	"github.com/winnowhq/winnow/pkg/formatting"
)

// System submits chunks to the classification model and parses the
// structured responses. It implements pipeline.Classifier and is safe for
// concurrent use.
type System struct {
	llm     llms.Model
	cfg     *Config
	logger  *slog.Logger
	timeout time.Duration
}

// New creates a classification system from finalized configuration.
func New(cfg *Config, logger *slog.Logger) (*System, error) {
	token := cfg.Token
	if token == "" {
		// langchaingo requires a token even for local endpoints
		token = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(token),
	)
	if err != nil {
		return nil, fmt.Errorf("create classification client: %w", err)
	}

	return NewWithModel(llm, cfg, logger), nil
}

// NewWithModel creates a classification system over an existing model
// client. Intended for tests and for callers that manage the client
// themselves.
func NewWithModel(llm llms.Model, cfg *Config, logger *slog.Logger) *System {
	return &System{
		llm:     llm,
		cfg:     cfg,
		logger:  logger.With("system", "classifier"),
		timeout: cfg.TimeoutDuration(),
	}
}

// Classify submits one chunk and returns the parsed label, confidence, and
// rationale. Transport and timeout failures are reported as
// pipeline.ErrServiceUnavailable; responses that are not the expected JSON
// shape are reported as pipeline.ErrMalformedResponse and must not be
// retried by the caller.
func (s *System) Classify(ctx context.Context, chunk pipeline.Chunk) (pipeline.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemInstructions),
		llms.TextParts(llms.ChatMessageTypeHuman, BuildPrompt(chunk)),
	}

	resp, err := s.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0),
		llms.WithJSONMode(),
	)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("%w: %w", pipeline.ErrServiceUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return pipeline.Result{}, fmt.Errorf("%w: empty completion", pipeline.ErrMalformedResponse)
	}

	content := resp.Choices[0].Content
	result, err := formatting.Parse[pipeline.Result](content)
	if err != nil {
		if errors.Is(err, formatting.ErrParseFailed) {
			return pipeline.Result{}, fmt.Errorf("%w: %w", pipeline.ErrMalformedResponse, err)
		}
		return pipeline.Result{}, err
	}

	if err := result.Validate(); err != nil {
		return pipeline.Result{}, err
	}

	s.logger.DebugContext(ctx, "chunk classified",
		"chunk_id", chunk.ChunkID,
		"label", result.Label,
		"confidence", result.Confidence,
	)

	return result, nil
}
