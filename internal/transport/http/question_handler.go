package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"levelquiz-service/internal/app"
	"levelquiz-service/internal/domain"
)

type QuestionHandler struct {
	service *app.QuestionService
}

func NewQuestionHandler(service *app.QuestionService) *QuestionHandler {
	return &QuestionHandler{service: service}
}

type questionPayload struct {
	Quiz     string   `json:"quiz"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
	Level    int      `json:"level"`
}

// ByCategory serves one level's question batch. Unauthenticated; quiz play
// does not require an account.
func (h *QuestionHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "key")
	level := 1
	if raw := r.URL.Query().Get("level"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, domain.Invalid("level", "must be a positive integer"))
			return
		}
		level = parsed
	}
	questions, err := h.service.QuestionsFor(r.Context(), category, level)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *QuestionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	questions, err := h.service.ListMine(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	var req questionPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	created, err := h.service.Add(r.Context(), actor, domain.Question{
		Quiz:     req.Quiz,
		Question: req.Question,
		Options:  req.Options,
		Answer:   req.Answer,
		Level:    req.Level,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *QuestionHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	var req questionPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), actor, domain.Question{
		ID:       chi.URLParam(r, "key"),
		Quiz:     req.Quiz,
		Question: req.Question,
		Options:  req.Options,
		Answer:   req.Answer,
		Level:    req.Level,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	if err := h.service.Remove(r.Context(), actor, chi.URLParam(r, "key")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
