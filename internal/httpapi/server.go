// Package httpapi exposes the intervention pipeline over HTTP: generate,
// list, and feedback endpoints mirroring the task layer's needs.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/Arpita31/alfred/internal/intervention"
	"github.com/Arpita31/alfred/internal/pipeline"
	"github.com/Arpita31/alfred/internal/userpref"
)

// #region server

// Server routes API requests to the evaluator and intervention store.
type Server struct {
	evaluator     *pipeline.Evaluator
	interventions *intervention.Store
}

// New creates an API server.
func New(evaluator *pipeline.Evaluator, interventions *intervention.Store) *Server {
	return &Server{evaluator: evaluator, interventions: interventions}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/interventions/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/v1/interventions", s.handleList)
	mux.HandleFunc("POST /api/v1/interventions/{id}/feedback", s.handleFeedback)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// #endregion server

// #region generate

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	outcome, err := s.evaluator.Evaluate(r.Context(), userID)
	if err != nil {
		if errors.Is(err, userpref.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if outcome.Status == pipeline.OutcomeGenerationFailed {
			writeError(w, http.StatusBadGateway, "failed to generate intervention")
			return
		}
		log.Printf("[API] evaluate user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if outcome.Status == pipeline.OutcomeDenied {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "denied",
			"reason": outcome.DenyReason,
			"detail": outcome.Detail,
		})
		return
	}

	writeJSON(w, http.StatusCreated, recordPayload(*outcome.Intervention))
}

// #endregion generate

// #region list

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be 1-100")
			return
		}
		limit = n
	}

	records, err := s.interventions.ListByUser(userID, limit)
	if err != nil {
		log.Printf("[API] list user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	payload := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		payload = append(payload, recordPayload(rec))
	}
	writeJSON(w, http.StatusOK, payload)
}

// #endregion list

// #region feedback

type feedbackRequest struct {
	Response string `json:"response"`
	Feedback string `json:"feedback"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Response == "" {
		writeError(w, http.StatusBadRequest, "response is required")
		return
	}

	rec, err := s.evaluator.SubmitFeedback(id, req.Response, req.Feedback)
	if err != nil {
		if errors.Is(err, intervention.ErrNotFound) {
			writeError(w, http.StatusNotFound, "intervention not found")
			return
		}
		log.Printf("[API] feedback id=%s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"intervention":  rec.ID,
		"new_status":    rec.Status,
		"user_response": rec.UserResponse,
	})
}

// #endregion feedback

// #region helpers

func recordPayload(rec intervention.Record) map[string]any {
	return map[string]any{
		"id":               rec.ID,
		"user_id":          rec.UserID,
		"type":             rec.Type,
		"status":           rec.Status,
		"title":            rec.Title,
		"message":          rec.Message,
		"reasoning":        rec.Reasoning,
		"confidence_score": rec.ConfidenceScore,
		"priority":         rec.Priority,
		"created_at":       rec.CreatedAt,
		"expires_at":       rec.ExpiresAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// #endregion helpers
