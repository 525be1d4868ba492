package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/logger"
	"github.com/fjod/cats-den/internal/repository"
	"github.com/fjod/cats-den/internal/service"
)

const registerBody = `{"name":"Jane","email":"jane@example.com","password":"Whiskers9"}`

func TestRegister_Created(t *testing.T) {
	handler := NewAuthHandler(AuthServiceMock{
		user: &domain.User{ID: "user-1", Email: "jane@example.com", Name: "Jane", PasswordHash: "$2a$hash"},
	}, 5*time.Second, logger.Discard())
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(registerBody))

	handler.Register(recorder, request)

	require.Equal(t, http.StatusCreated, recorder.Code)
	var resp RegisterResponseDTO
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "Account created successfully", resp.Message)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.NotContains(t, recorder.Body.String(), "$2a$hash")
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{"duplicate email", repository.ErrEmailTaken, http.StatusConflict, CodeAlreadyExists, ""},
		{"weak password", &service.ValidationError{Field: "password", Message: "Password must be at least 8 characters"}, http.StatusBadRequest, CodeValidation, "password"},
		{"storage down", errors.New("failed to create user: connection refused"), http.StatusServiceUnavailable, CodeDatabase, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthHandler(AuthServiceMock{err: tt.err}, 5*time.Second, logger.Discard())
			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(registerBody))

			handler.Register(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			body := decodeError(t, recorder)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantField, body.Field)
		})
	}
}

func TestLogin_Success(t *testing.T) {
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	handler := NewAuthHandler(AuthServiceMock{session: &service.Session{
		Token:     "signed.jwt.token",
		ExpiresAt: expires,
		User:      &domain.User{ID: "user-1", Email: "jane@example.com", Name: "Jane"},
	}}, 5*time.Second, logger.Discard())
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"jane@example.com","password":"Whiskers9"}`))

	handler.Login(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp LoginResponseDTO
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "signed.jwt.token", resp.Token)
	assert.True(t, expires.Equal(resp.ExpiresAt))
	assert.Equal(t, "jane@example.com", resp.User.Email)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	handler := NewAuthHandler(AuthServiceMock{err: service.ErrInvalidCredentials}, 5*time.Second, logger.Discard())
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"jane@example.com","password":"nope"}`))

	handler.Login(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "Invalid email or password", decodeError(t, recorder).Message)
}
