// Package pipeline wires signal detection, policy gating, context assembly,
// generation, and persistence into the single evaluate entry point.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Arpita31/alfred/internal/assemble"
	"github.com/Arpita31/alfred/internal/audit"
	"github.com/Arpita31/alfred/internal/behavior"
	"github.com/Arpita31/alfred/internal/gate"
	"github.com/Arpita31/alfred/internal/genclient"
	"github.com/Arpita31/alfred/internal/intervention"
	"github.com/Arpita31/alfred/internal/signal"
	"github.com/Arpita31/alfred/internal/userpref"
)

// #region evaluator

// Evaluator owns the per-user decision pipeline. Evaluations for the same
// user are serialized so two concurrent runs cannot both admit inside one
// cooldown window; different users evaluate in parallel.
type Evaluator struct {
	users         *userpref.Store
	behavior      *behavior.Store
	interventions *intervention.Store
	client        *genclient.Client
	detector      *signal.Detector
	gate          *gate.Gate
	auditLog      *audit.Log
	config        Config

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewEvaluator creates a fully wired evaluator.
func NewEvaluator(
	users *userpref.Store,
	behaviorStore *behavior.Store,
	interventions *intervention.Store,
	client *genclient.Client,
	detector *signal.Detector,
	g *gate.Gate,
	auditLog *audit.Log,
	config Config,
) *Evaluator {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Evaluator{
		users:         users,
		behavior:      behaviorStore,
		interventions: interventions,
		client:        client,
		detector:      detector,
		gate:          g,
		auditLog:      auditLog,
		config:        config,
		userLocks:     map[string]*sync.Mutex{},
	}
}

// #endregion evaluator

// #region evaluate

// Evaluate runs the full decision pipeline for one user. Denials are normal
// outcomes with a nil error. Generation failures return OutcomeGenerationFailed
// together with the underlying cause; nothing is persisted in that case.
// A wrapped userpref.ErrNotFound is returned for unknown users.
func (e *Evaluator) Evaluate(ctx context.Context, userID string) (Outcome, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := e.users.Get(userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load user %s: %w", userID, err)
	}

	loc := user.Location()
	now := e.config.Now().In(loc)

	window, err := e.loadWindow(user.ID, now)
	if err != nil {
		return Outcome{}, err
	}
	sig := e.detector.Detect(window, now)

	pctx, err := e.policyContext(user, now)
	if err != nil {
		return Outcome{}, err
	}

	decision := e.gate.Evaluate(sig, pctx)
	if !decision.Admitted {
		e.recordDecision(user.ID, sig, string(OutcomeDenied), string(decision.Reason), "")
		log.Printf("[PIPE] user=%s denied: %s (%s)", user.ID, decision.Reason, decision.Detail)
		return Outcome{Status: OutcomeDenied, DenyReason: decision.Reason, Detail: decision.Detail}, nil
	}

	recent, err := e.interventions.RecentByUser(user.ID, now.Add(-e.config.RecentWindow), e.config.RecentLimit)
	if err != nil {
		return Outcome{}, fmt.Errorf("load recent interventions: %w", err)
	}

	// Pattern aggregation is a collaborator concern; the prompt receives
	// empty summaries until one is wired in.
	patterns := assemble.Patterns{Meals: map[string]any{}, Sleep: map[string]any{}}
	genCtx := assemble.Build(user, window.Calendar, patterns, recent, now)

	draft, err := e.client.Generate(ctx, *sig, genCtx)
	if err != nil {
		e.recordDecision(user.ID, sig, string(OutcomeGenerationFailed), err.Error(), "")
		log.Printf("[PIPE] user=%s generation failed: %v", user.ID, err)
		return Outcome{Status: OutcomeGenerationFailed, Detail: err.Error()},
			fmt.Errorf("generate intervention: %w", err)
	}

	expires := now.Add(e.config.TTL).UTC()
	rec := intervention.Record{
		UserID:             user.ID,
		Type:               string(sig.Type),
		Status:             intervention.StatusPending,
		Title:              draft.Title,
		Message:            draft.Message,
		Reasoning:          draft.Reasoning,
		ConfidenceScore:    draft.Confidence,
		TriggeringSignals:  []signal.Signal{*sig},
		RecommendationData: draft.Recommendations,
		ContextFeatures:    contextFeatures(genCtx),
		CreatedAt:          now.UTC(),
		ExpiresAt:          &expires,
	}

	created, err := e.interventions.Create(rec)
	if err != nil {
		return Outcome{}, fmt.Errorf("persist intervention: %w", err)
	}

	e.recordDecision(user.ID, sig, string(OutcomeCreated), decision.Detail, created.ID)
	log.Printf("[PIPE] user=%s created intervention %s type=%s confidence=%.2f",
		user.ID, created.ID, created.Type, created.ConfidenceScore)

	return Outcome{Status: OutcomeCreated, Intervention: &created}, nil
}

// #endregion evaluate

// #region feedback

// SubmitFeedback applies the lifecycle transition rules for a user response.
func (e *Evaluator) SubmitFeedback(id, response, feedback string) (intervention.Record, error) {
	return e.interventions.SubmitFeedback(id, response, feedback, e.config.Now().UTC())
}

// #endregion feedback

// #region helpers

// loadWindow reads the behavioral streams the detector scans.
func (e *Evaluator) loadWindow(userID string, now time.Time) (signal.Window, error) {
	meals, err := e.behavior.MealsInRange(userID, now.Add(-e.config.MealLookback), now)
	if err != nil {
		return signal.Window{}, fmt.Errorf("load meals: %w", err)
	}
	sleep, err := e.behavior.SleepInRange(userID, now.Add(-e.config.SleepLookback), now)
	if err != nil {
		return signal.Window{}, fmt.Errorf("load sleep: %w", err)
	}
	activity, err := e.behavior.ActivitiesInRange(userID, now.Add(-e.config.ActivityLookback), now)
	if err != nil {
		return signal.Window{}, fmt.Errorf("load activities: %w", err)
	}
	calendar, err := e.behavior.UpcomingCalendar(userID, now, now.Add(e.config.CalendarLookahead))
	if err != nil {
		return signal.Window{}, fmt.Errorf("load calendar: %w", err)
	}
	return signal.Window{Meals: meals, Sleep: sleep, Activity: activity, Calendar: calendar}, nil
}

// policyContext derives the gating facts from user preferences and history.
// now must be in the user's location so the local-midnight boundary is right.
func (e *Evaluator) policyContext(user userpref.User, now time.Time) (gate.PolicyContext, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	createdToday, err := e.interventions.CountCreatedSince(user.ID, midnight)
	if err != nil {
		return gate.PolicyContext{}, fmt.Errorf("count today: %w", err)
	}
	latest, err := e.interventions.LatestCreatedAt(user.ID)
	if err != nil {
		return gate.PolicyContext{}, fmt.Errorf("latest intervention: %w", err)
	}

	return gate.PolicyContext{
		Now:                 now,
		QuietHoursStart:     user.QuietHoursStart,
		QuietHoursEnd:       user.QuietHoursEnd,
		CreatedToday:        createdToday,
		LastCreatedAt:       latest,
		ConfidenceThreshold: user.ConfidenceThreshold,
		MaxPerDay:           user.MaxInterventionsPerDay,
		CooldownHours:       user.CooldownHours,
	}, nil
}

// recordDecision appends to the audit log; audit failures are logged, never
// propagated into the evaluation outcome.
func (e *Evaluator) recordDecision(userID string, sig *signal.Signal, decision, reason, interventionID string) {
	if e.auditLog == nil {
		return
	}
	entry := audit.Entry{
		UserID:         userID,
		Decision:       decision,
		Reason:         reason,
		InterventionID: interventionID,
		CreatedAt:      e.config.Now().UTC(),
	}
	if sig != nil {
		entry.SignalType = string(sig.Type)
		entry.Confidence = sig.Confidence
	}
	if err := e.auditLog.Record(entry); err != nil {
		log.Printf("[PIPE] audit log error: %v", err)
	}
}

// contextFeatures flattens the assembled context for persistence alongside
// the intervention.
func contextFeatures(genCtx assemble.Context) map[string]any {
	raw, err := json.Marshal(genCtx)
	if err != nil {
		return nil
	}
	var features map[string]any
	if err := json.Unmarshal(raw, &features); err != nil {
		return nil
	}
	return features
}

// userLock returns the serialization lock for one user.
func (e *Evaluator) userLock(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.userLocks[userID] = lock
	}
	return lock
}

// #endregion helpers
