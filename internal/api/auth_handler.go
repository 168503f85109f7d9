package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/dibs-api/internal/api/shared"
	"github.com/phrazzld/dibs-api/internal/platform/logger"
	"github.com/phrazzld/dibs-api/internal/service/auth"
)

// Authenticator checks credentials and issues a session.
type Authenticator interface {
	Login(ctx context.Context, uname, password string) (*auth.Session, error)
}

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	authenticator Authenticator
	logger        *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(authenticator Authenticator, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authenticator: authenticator,
		logger:        logger.With(slog.String("component", "auth_handler")),
	}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.authenticator.Login(r.Context(), req.Uname, req.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.Error("login failed", slog.String("user", req.Uname))
		}
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		Uname:       session.Person.Uname,
		Role:        session.Person.Role,
		AccessToken: session.Token,
		ExpiresAt:   session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
