package api

import (
	"net/http"

	"go.uber.org/zap"

	"salonbooking/internal/auth"
	apperr "salonbooking/internal/errors"
	"salonbooking/internal/service"
)

type AdminAuthHandler struct {
	service service.AdminAuthService
	logger  *zap.Logger
}

func NewAdminAuthHandler(svc service.AdminAuthService, logger *zap.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{service: svc, logger: logger}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type VerifyResponse struct {
	Username string `json:"username"`
}

func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("Admin logged in", zap.String("username", req.Username))
	writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}

// Verify echoes the admin behind a valid bearer token.
func (h *AdminAuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r)
	if !ok {
		writeError(w, h.logger, apperr.ErrUnauthorized("missing bearer token"))
		return
	}
	username, err := h.service.ParseToken(token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{Username: username})
}
