package genclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Arpita31/alfred/internal/assemble"
	"github.com/Arpita31/alfred/internal/signal"
)

// #region generator-interface

// ContentGenerator abstracts the model call so Client can be tested without
// a live service.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, system, user string) (string, error)
}

// #endregion generator-interface

// #region config

// Config holds the generation sampling contract and the retry bounds.
type Config struct {
	Temperature     float32
	MaxOutputTokens int32
	Timeout         time.Duration // per-attempt upper bound
	MaxAttempts     int           // total attempts, including the first
	RetryBackoff    time.Duration
}

// DefaultConfig returns the fixed generation contract: temperature 0.7,
// 800-token ceiling, 30s bound, one retry.
func DefaultConfig() Config {
	return Config{
		Temperature:     0.7,
		MaxOutputTokens: 800,
		Timeout:         30 * time.Second,
		MaxAttempts:     2,
		RetryBackoff:    500 * time.Millisecond,
	}
}

// #endregion config

// #region draft

// Draft is a normalized generation result ready to persist.
type Draft struct {
	Title           string
	Message         string
	Reasoning       string
	Confidence      float64
	Recommendations map[string]any
}

// Normalization defaults for missing response keys.
const (
	defaultTitle      = "Wellness Check"
	defaultConfidence = 0.7
)

// #endregion draft

// #region client

// Client turns an admitted signal and assembled context into an intervention
// draft. All failures are fail-soft: the caller gets an error and must not
// persist anything.
type Client struct {
	gen    ContentGenerator
	config Config
}

// NewClient creates a generation client around the given backend.
func NewClient(gen ContentGenerator, config Config) *Client {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &Client{gen: gen, config: config}
}

// Generate runs the generation round trip: fixed system instruction, user
// instruction embedding signal and context, bounded attempts with backoff.
// A malformed response counts as a failed attempt; exhausting attempts
// returns an error and no draft.
func (c *Client) Generate(ctx context.Context, sig signal.Signal, genCtx assemble.Context) (Draft, error) {
	userPrompt := buildUserPrompt(sig, genCtx)

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return Draft{}, fmt.Errorf("generation cancelled: %w", ctx.Err())
			case <-time.After(c.config.RetryBackoff):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		raw, err := c.gen.GenerateContent(attemptCtx, systemPrompt, userPrompt)
		cancel()
		if err != nil {
			lastErr = err
			log.Printf("[GEN] attempt %d/%d failed: %v", attempt, c.config.MaxAttempts, err)
			continue
		}

		draft, err := parseDraft(raw)
		if err != nil {
			lastErr = err
			log.Printf("[GEN] attempt %d/%d returned malformed response: %v", attempt, c.config.MaxAttempts, err)
			continue
		}
		return draft, nil
	}

	return Draft{}, fmt.Errorf("generation failed after %d attempts: %w", c.config.MaxAttempts, lastErr)
}

// #endregion client

// #region parse

// parseDraft decodes the completion and fills defaults for missing keys.
func parseDraft(raw string) (Draft, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Draft{}, fmt.Errorf("decode completion: %w", err)
	}

	draft := Draft{
		Title:           defaultTitle,
		Confidence:      defaultConfidence,
		Recommendations: map[string]any{},
	}
	if v, ok := payload["title"].(string); ok && v != "" {
		draft.Title = v
	}
	if v, ok := payload["message"].(string); ok {
		draft.Message = v
	}
	if v, ok := payload["reasoning"].(string); ok {
		draft.Reasoning = v
	}
	if v, ok := payload["confidence"].(float64); ok {
		draft.Confidence = v
	}
	if v, ok := payload["recommendations"].(map[string]any); ok {
		draft.Recommendations = v
	}
	return draft, nil
}

// #endregion parse
