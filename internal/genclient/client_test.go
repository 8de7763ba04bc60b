package genclient

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Arpita31/alfred/internal/assemble"
	"github.com/Arpita31/alfred/internal/signal"
)

// mockGenerator returns queued responses, one per attempt.
type mockGenerator struct {
	responses []string
	errs      []error
	calls     int
	lastUser  string
}

func (m *mockGenerator) GenerateContent(_ context.Context, _ string, user string) (string, error) {
	i := m.calls
	m.calls++
	m.lastUser = user
	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	var resp string
	if i < len(m.responses) {
		resp = m.responses[i]
	}
	return resp, err
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func makeSignal() signal.Signal {
	return signal.New(signal.MealGap, 0.85, 0.8,
		map[string]any{"hours_since_last_meal": 5.0},
		"It's been 5.0 hours since your last meal",
		time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC))
}

const goodResponse = `{
	"title": "Time for a snack",
	"message": "You haven't eaten in 5 hours.",
	"reasoning": "Long meal gap detected.",
	"confidence": 0.9,
	"recommendations": {"action": "eat"}
}`

func TestGenerateParsesResponse(t *testing.T) {
	gen := &mockGenerator{responses: []string{goodResponse}}
	c := NewClient(gen, testConfig())

	draft, err := c.Generate(context.Background(), makeSignal(), assemble.Context{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if draft.Title != "Time for a snack" {
		t.Fatalf("unexpected title: %q", draft.Title)
	}
	if draft.Confidence != 0.9 {
		t.Fatalf("unexpected confidence: %f", draft.Confidence)
	}
	if draft.Recommendations["action"] != "eat" {
		t.Fatalf("unexpected recommendations: %v", draft.Recommendations)
	}
	if gen.calls != 1 {
		t.Fatalf("expected 1 call, got %d", gen.calls)
	}
}

func TestGenerateFillsDefaults(t *testing.T) {
	gen := &mockGenerator{responses: []string{`{"message": "hello"}`}}
	c := NewClient(gen, testConfig())

	draft, err := c.Generate(context.Background(), makeSignal(), assemble.Context{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if draft.Title != "Wellness Check" {
		t.Fatalf("expected default title, got %q", draft.Title)
	}
	if draft.Confidence != 0.7 {
		t.Fatalf("expected default confidence 0.7, got %f", draft.Confidence)
	}
	if draft.Recommendations == nil || len(draft.Recommendations) != 0 {
		t.Fatalf("expected empty recommendations, got %v", draft.Recommendations)
	}
}

func TestGenerateRetriesTransportError(t *testing.T) {
	gen := &mockGenerator{
		errs:      []error{fmt.Errorf("connection reset"), nil},
		responses: []string{"", goodResponse},
	}
	c := NewClient(gen, testConfig())

	draft, err := c.Generate(context.Background(), makeSignal(), assemble.Context{})
	if err != nil {
		t.Fatalf("generate should succeed on retry: %v", err)
	}
	if draft.Title != "Time for a snack" {
		t.Fatalf("unexpected title: %q", draft.Title)
	}
	if gen.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", gen.calls)
	}
}

func TestGenerateMalformedCountsAsFailedAttempt(t *testing.T) {
	gen := &mockGenerator{responses: []string{"not json", "also not json"}}
	c := NewClient(gen, testConfig())

	_, err := c.Generate(context.Background(), makeSignal(), assemble.Context{})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if gen.calls != 2 {
		t.Fatalf("malformed response should consume an attempt, got %d calls", gen.calls)
	}
}

func TestGenerateMalformedThenValid(t *testing.T) {
	gen := &mockGenerator{responses: []string{"garbage", goodResponse}}
	c := NewClient(gen, testConfig())

	draft, err := c.Generate(context.Background(), makeSignal(), assemble.Context{})
	if err != nil {
		t.Fatalf("generate should recover on second attempt: %v", err)
	}
	if draft.Message != "You haven't eaten in 5 hours." {
		t.Fatalf("unexpected message: %q", draft.Message)
	}
}

func TestGenerateHonorsCancellation(t *testing.T) {
	gen := &mockGenerator{
		errs: []error{fmt.Errorf("transient"), nil},
	}
	cfg := testConfig()
	cfg.RetryBackoff = time.Minute
	c := NewClient(gen, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Generate(ctx, makeSignal(), assemble.Context{})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if gen.calls != 1 {
		t.Fatalf("cancelled context should skip the retry, got %d calls", gen.calls)
	}
}

func TestUserPromptEmbedsSignalAndContext(t *testing.T) {
	gen := &mockGenerator{responses: []string{goodResponse}}
	c := NewClient(gen, testConfig())

	genCtx := assemble.Context{
		CurrentTime: "Tuesday, March 10, 2026 at 02:00 PM",
	}
	if _, err := c.Generate(context.Background(), makeSignal(), genCtx); err != nil {
		t.Fatalf("generate: %v", err)
	}

	if !strings.Contains(gen.lastUser, "meal_gap") {
		t.Fatal("user prompt should name the signal type")
	}
	if !strings.Contains(gen.lastUser, "It's been 5.0 hours since your last meal") {
		t.Fatal("user prompt should include the signal reasoning")
	}
	if !strings.Contains(gen.lastUser, "Tuesday, March 10, 2026 at 02:00 PM") {
		t.Fatal("user prompt should include the assembled context")
	}
}
