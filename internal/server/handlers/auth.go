// internal/server/handlers/auth.go

package handlers

import (
	"context"
	"net/http"

	"connectr/internal/domain/identity"
	identitysvc "connectr/internal/service/identity"
)

// IdentityService is the account and session API used by the handlers
type IdentityService interface {
	Register(ctx context.Context, req identitysvc.RegisterRequest) (*identity.User, error)
	Login(ctx context.Context, email, password string) (*identitysvc.Session, error)
	Logout(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, email, token, newPassword string) error
	GetUser(ctx context.Context, id string) (*identity.User, error)
	UpdateUser(ctx context.Context, id string, req identitysvc.UpdateProfileRequest) (*identity.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// AuthHandler handles registration, sessions and password resets
type AuthHandler struct {
	service      IdentityService
	maxBodyBytes int64
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service IdentityService, maxBodyBytes int64) *AuthHandler {
	return &AuthHandler{
		service:      service,
		maxBodyBytes: maxBodyBytes,
	}
}

// Register creates an account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req identitysvc.RegisterRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for an access token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if req.Email == "" || req.Password == "" {
		respondWithError(w, r, http.StatusBadRequest, "Email and password are required", nil)
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// Logout revokes the bearer token of the request
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		respondWithError(w, r, http.StatusUnauthorized, "Missing bearer token", nil)
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type resetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset starts a password reset. The response never reveals whether the email exists.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil || req.Email == "" {
		respondWithError(w, r, http.StatusBadRequest, "Email is required", nil)
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{
		"message": "If the address is registered, a reset link has been sent.",
	})
}

type resetConfirmRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ConfirmPasswordReset sets a new password using a reset token
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.service.ConfirmPasswordReset(r.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
