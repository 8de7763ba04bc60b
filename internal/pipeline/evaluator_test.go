package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Arpita31/alfred/internal/audit"
	"github.com/Arpita31/alfred/internal/behavior"
	"github.com/Arpita31/alfred/internal/gate"
	"github.com/Arpita31/alfred/internal/genclient"
	"github.com/Arpita31/alfred/internal/intervention"
	"github.com/Arpita31/alfred/internal/signal"
	"github.com/Arpita31/alfred/internal/storage"
	"github.com/Arpita31/alfred/internal/userpref"
)

const goodResponse = `{
	"title": "Time for a snack",
	"message": "You haven't eaten in 5 hours.",
	"reasoning": "Long meal gap detected.",
	"confidence": 0.9,
	"recommendations": {"action": "eat"}
}`

// stubGenerator returns a fixed response or error on every attempt.
type stubGenerator struct {
	response string
	err      error
	calls    int
}

func (s *stubGenerator) GenerateContent(context.Context, string, string) (string, error) {
	s.calls++
	return s.response, s.err
}

type harness struct {
	users         *userpref.Store
	behavior      *behavior.Store
	interventions *intervention.Store
	auditLog      *audit.Log
	generator     *stubGenerator
	evaluator     *Evaluator
	now           time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users, err := userpref.NewStore(db)
	if err != nil {
		t.Fatalf("init users: %v", err)
	}
	behaviorStore, err := behavior.NewStore(db)
	if err != nil {
		t.Fatalf("init behavior: %v", err)
	}
	interventions, err := intervention.NewStore(db)
	if err != nil {
		t.Fatalf("init interventions: %v", err)
	}
	auditLog, err := audit.NewLog(db)
	if err != nil {
		t.Fatalf("init audit: %v", err)
	}

	generator := &stubGenerator{response: goodResponse}
	genConfig := genclient.DefaultConfig()
	genConfig.RetryBackoff = time.Millisecond

	h := &harness{
		users:         users,
		behavior:      behaviorStore,
		interventions: interventions,
		auditLog:      auditLog,
		generator:     generator,
		now:           time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
	}

	config := DefaultConfig()
	config.Now = func() time.Time { return h.now }

	h.evaluator = NewEvaluator(
		users,
		behaviorStore,
		interventions,
		genclient.NewClient(generator, genConfig),
		signal.NewDetector(signal.DefaultDetectorConfig()),
		gate.NewGate(),
		auditLog,
		config,
	)
	return h
}

func (h *harness) addUser(t *testing.T) userpref.User {
	t.Helper()
	user, err := h.users.Create(userpref.User{Username: "bruce", IsActive: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (h *harness) addMealHoursAgo(t *testing.T, userID string, hours float64) {
	t.Helper()
	_, err := h.behavior.AddMeal(behavior.Meal{
		UserID:   userID,
		MealTime: h.now.Add(-time.Duration(hours * float64(time.Hour))),
		MealType: "lunch",
	})
	if err != nil {
		t.Fatalf("add meal: %v", err)
	}
}

func TestEvaluateCreatesInterventionOnMealGap(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t)
	h.addMealHoursAgo(t, user.ID, 5)

	outcome, err := h.evaluator.Evaluate(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if outcome.Status != OutcomeCreated {
		t.Fatalf("expected created, got %s (%s)", outcome.Status, outcome.Detail)
	}

	rec := outcome.Intervention
	if rec == nil {
		t.Fatal("expected intervention record")
	}
	if rec.Type != "meal_gap" {
		t.Fatalf("expected type meal_gap, got %s", rec.Type)
	}
	if rec.Status != intervention.StatusPending {
		t.Fatalf("expected pending, got %s", rec.Status)
	}
	if rec.Title != "Time for a snack" {
		t.Fatalf("unexpected title: %q", rec.Title)
	}
	if rec.ExpiresAt == nil || !rec.ExpiresAt.Equal(h.now.Add(24*time.Hour)) {
		t.Fatalf("expected expiry 24h out, got %v", rec.ExpiresAt)
	}
	if len(rec.TriggeringSignals) != 1 || rec.TriggeringSignals[0].Type != signal.MealGap {
		t.Fatalf("triggering signal snapshot missing: %+v", rec.TriggeringSignals)
	}

	// The record is persisted, not just returned.
	stored, err := h.interventions.Get(rec.ID)
	if err != nil {
		t.Fatalf("get persisted: %v", err)
	}
	if stored.Status != intervention.StatusPending {
		t.Fatalf("persisted status mismatch: %s", stored.Status)
	}

	entries, err := h.auditLog.Recent(10)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(entries) != 1 || entries[0].Decision != "created" {
		t.Fatalf("expected one created audit entry, got %+v", entries)
	}
}

func TestEvaluateDeniesWithoutSignal(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t)
	h.addMealHoursAgo(t, user.ID, 1)

	outcome, err := h.evaluator.Evaluate(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if outcome.Status != OutcomeDenied {
		t.Fatalf("expected denied, got %s", outcome.Status)
	}
	if outcome.DenyReason != gate.DenyNoSignal {
		t.Fatalf("expected no_signal, got %s", outcome.DenyReason)
	}
	if h.generator.calls != 0 {
		t.Fatalf("denied evaluations must not call generation, got %d calls", h.generator.calls)
	}
}

func TestEvaluateDeniesDuringQuietHours(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t)
	h.addMealHoursAgo(t, user.ID, 5)
	h.now = time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)

	outcome, err := h.evaluator.Evaluate(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if outcome.DenyReason != gate.DenyQuietHours {
		t.Fatalf("expected quiet_hours at 23:00, got %s (%s)", outcome.DenyReason, outcome.Detail)
	}
}

func TestEvaluateCooldownBlocksSecondRun(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t)
	h.addMealHoursAgo(t, user.ID, 5)

	first, err := h.evaluator.Evaluate(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	if first.Status != OutcomeCreated {
		t.Fatalf("expected created, got %s", first.Status)
	}

	h.now = h.now.Add(30 * time.Minute)
	second, err := h.evaluator.Evaluate(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("second evaluate: %v", err)
	}
	if second.Status != OutcomeDenied || second.DenyReason != gate.DenyCooldown {
		t.Fatalf("expected cooldown denial, got %s/%s", second.Status, second.DenyReason)
	}

	// Past the cooldown the same signal admits again.
	h.now = h.now.Add(2 * time.Hour)
	third, err := h.evaluator.Evaluate(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("third evaluate: %v", err)
	}
	if third.Status != OutcomeCreated {
		t.Fatalf("expected created after cooldown, got %s (%s)", third.Status, third.Detail)
	}
}

func TestConcurrentEvaluationsAdmitOnce(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t)
	h.addMealHoursAgo(t, user.ID, 5)

	const attempts = 8
	results := make([]Outcome, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.evaluator.Evaluate(context.Background(), user.ID)
		}(i)
	}
	wg.Wait()

	created := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("evaluate %d: %v", i, errs[i])
		}
		switch results[i].Status {
		case OutcomeCreated:
			created++
		case OutcomeDenied:
			if results[i].DenyReason != gate.DenyCooldown {
				t.Fatalf("evaluate %d: expected cooldown denial, got %s", i, results[i].DenyReason)
			}
		default:
			t.Fatalf("evaluate %d: unexpected outcome %s", i, results[i].Status)
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly 1 admission across %d concurrent evaluations, got %d", attempts, created)
	}

	records, err := h.interventions.ListByUser(user.ID, attempts)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 persisted intervention, got %d", len(records))
	}
}

func TestEvaluateDailyCap(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t)
	h.addMealHoursAgo(t, user.ID, 5)

	// Six interventions already created today.
	midnight := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		_, err := h.interventions.Create(intervention.Record{
			UserID:    user.ID,
			Type:      "meal_gap",
			Title:     fmt.Sprintf("earlier-%d", i),
			Message:   "m",
			CreatedAt: midnight.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed intervention: %v", err)
		}
	}

	outcome, err := h.evaluator.Evaluate(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if outcome.DenyReason != gate.DenyDailyCap {
		t.Fatalf("expected daily_cap_reached, got %s (%s)", outcome.DenyReason, outcome.Detail)
	}
}

func TestEvaluateGenerationFailurePersistsNothing(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t)
	h.addMealHoursAgo(t, user.ID, 5)
	h.generator.err = errors.New("service unavailable")

	outcome, err := h.evaluator.Evaluate(context.Background(), user.ID)
	if err == nil {
		t.Fatal("expected generation error")
	}
	if outcome.Status != OutcomeGenerationFailed {
		t.Fatalf("expected generation_failed, got %s", outcome.Status)
	}

	records, err := h.interventions.ListByUser(user.ID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("failed generation must persist nothing, found %d records", len(records))
	}

	entries, err := h.auditLog.Recent(10)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(entries) != 1 || entries[0].Decision != "generation_failed" {
		t.Fatalf("expected generation_failed audit entry, got %+v", entries)
	}
}

func TestEvaluateUnknownUser(t *testing.T) {
	h := newHarness(t)

	_, err := h.evaluator.Evaluate(context.Background(), "no-such-user")
	if !errors.Is(err, userpref.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitFeedbackDelegates(t *testing.T) {
	h := newHarness(t)
	user := h.addUser(t)
	h.addMealHoursAgo(t, user.ID, 5)

	outcome, err := h.evaluator.Evaluate(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	rec, err := h.evaluator.SubmitFeedback(outcome.Intervention.ID, "accepted", "helpful")
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if rec.Status != intervention.StatusAccepted {
		t.Fatalf("expected accepted, got %s", rec.Status)
	}
}
