package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/logger"
	"github.com/fjod/cats-den/internal/service"
)

type AuthAPI interface {
	Register(ctx context.Context, req service.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req service.LoginRequest) (*service.Session, error)
}

type AuthHandler struct {
	auth    AuthAPI
	timeout time.Duration
	log     *slog.Logger
}

func NewAuthHandler(auth AuthAPI, timeout time.Duration, log *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, timeout: timeout, log: logger.OrDefault(log)}
}

type UserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type RegisterResponseDTO struct {
	Message string  `json:"message"`
	User    UserDTO `json:"user"`
}

type LoginResponseDTO struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserDTO   `json:"user"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{ID: u.ID, Email: u.Email, Name: u.Name}
}

// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req service.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.auth.Register(ctx, req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, RegisterResponseDTO{
		Message: "Account created successfully",
		User:    toUserDTO(user),
	})
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req service.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.auth.Login(ctx, req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, LoginResponseDTO{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      toUserDTO(session.User),
	})
}
