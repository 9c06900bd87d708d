package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"levelquiz-service/internal/app"
	"levelquiz-service/internal/domain"
)

type AdminHandler struct {
	service *app.AdminService
}

func NewAdminHandler(service *app.AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// PurgeActor deletes all data owned by one identity reference.
func (h *AdminHandler) PurgeActor(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	if ref == "" {
		writeError(w, domain.Invalid("ref", "is required"))
		return
	}
	if err := h.service.PurgeActor(r.Context(), ref); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PurgeAll wipes every contributed question and every result.
func (h *AdminHandler) PurgeAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.PurgeAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
