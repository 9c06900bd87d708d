package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"levelquiz-service/internal/app"
	"levelquiz-service/internal/domain"
)

// ResultObserver counts recorded attempts. Implemented by
// metrics.Collector; nil disables counting.
type ResultObserver interface {
	RecordResult(passed bool)
}

type ResultHandler struct {
	service  *app.ResultService
	observer ResultObserver
}

func NewResultHandler(service *app.ResultService, observer ResultObserver) *ResultHandler {
	return &ResultHandler{service: service, observer: observer}
}

type recordRequest struct {
	Quiz  string `json:"quiz"`
	Level int    `json:"level"`
	Score int    `json:"score"`
}

// Record appends one attempt. The score is taken as submitted; results
// are bounds-checked against the batch size only.
func (h *ResultHandler) Record(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	var req recordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Quiz == "" {
		writeError(w, domain.Invalid("quiz", "is required"))
		return
	}
	if req.Score < 0 || req.Score > domain.QuestionsPerLevel {
		writeError(w, domain.Invalid("score", "out of range"))
		return
	}
	res, err := h.service.Record(r.Context(), actor, req.Quiz, req.Level, req.Score)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.observer != nil {
		h.observer.RecordResult(res.Score >= domain.PassingScore)
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *ResultHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	results, err := h.service.ListMine(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *ResultHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteMine purges the actor's history, optionally scoped with ?quiz=.
func (h *ResultHandler) DeleteMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	if err := h.service.DeleteMine(r.Context(), actor, r.URL.Query().Get("quiz")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Progress returns the per-category max passed level map.
func (h *ResultHandler) Progress(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	progress, err := h.service.ProgressFor(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// Leaderboard serves the public ranking with optional ?quiz= and ?search=
// filters and a bounded ?limit=.
func (h *ResultHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 10 {
			limit = parsed
		}
	}
	lb, err := h.service.Leaderboard(r.Context(), r.URL.Query().Get("quiz"), r.URL.Query().Get("search"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}
