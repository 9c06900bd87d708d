package http

import (
	"context"
	"net/http"

	"levelquiz-service/internal/domain"
)

// AuthService is the slice of auth.Service the handlers use.
type AuthService interface {
	Register(ctx context.Context, name, email, password, confirm string) (domain.Actor, string, error)
	Login(ctx context.Context, email, password string) (domain.Actor, string, error)
	ExchangeExternal(ctx context.Context, providerToken string) (domain.Actor, string, error)
}

// AuthFailureObserver counts rejected credentials. Implemented by
// metrics.Collector; nil disables counting.
type AuthFailureObserver interface {
	RecordAuthFailure()
}

type AuthHandler struct {
	service  AuthService
	observer AuthFailureObserver
	// Provider client config served verbatim to browsers so they can talk
	// to the external identity provider directly.
	providerClient map[string]string
}

func NewAuthHandler(service AuthService, observer AuthFailureObserver, providerClient map[string]string) *AuthHandler {
	return &AuthHandler{service: service, observer: observer, providerClient: providerClient}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type externalRequest struct {
	Token string `json:"token"`
}

type credentialResponse struct {
	Token string       `json:"token"`
	Actor domain.Actor `json:"actor"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	actor, token, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password, req.Confirm)
	if err != nil {
		h.observeFailure(err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, credentialResponse{Token: token, Actor: actor})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	actor, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.observeFailure(err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, credentialResponse{Token: token, Actor: actor})
}

func (h *AuthHandler) External(w http.ResponseWriter, r *http.Request) {
	var req externalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	actor, token, err := h.service.ExchangeExternal(r.Context(), req.Token)
	if err != nil {
		h.observeFailure(err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, credentialResponse{Token: token, Actor: actor})
}

// ProviderConfig exposes the public client settings of the external
// provider. Empty config yields an empty object, not an error.
func (h *AuthHandler) ProviderConfig(w http.ResponseWriter, _ *http.Request) {
	cfg := h.providerClient
	if cfg == nil {
		cfg = map[string]string{}
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *AuthHandler) observeFailure(err error) {
	if h.observer == nil {
		return
	}
	if domain.IsValidation(err) {
		return
	}
	h.observer.RecordAuthFailure()
}
