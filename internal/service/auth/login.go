package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/platform/logger"
	"github.com/phrazzld/dibs-api/internal/store"
)

// Session is the result of a successful login.
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Person    *domain.Person `json:"person"`
}

// LoginService checks credentials against the people table and issues tokens.
type LoginService struct {
	people   store.PersonStore
	verifier PasswordVerifier
	tokens   JWTService
	clock    func() time.Time
	logger   *slog.Logger
}

// NewLoginService creates a LoginService.
func NewLoginService(
	people store.PersonStore,
	verifier PasswordVerifier,
	tokens JWTService,
	logger *slog.Logger,
) (*LoginService, error) {
	if people == nil || verifier == nil || tokens == nil {
		return nil, fmt.Errorf("%w: login dependencies cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginService{
		people:   people,
		verifier: verifier,
		tokens:   tokens,
		clock:    time.Now,
		logger:   logger.With(slog.String("component", "login")),
	}, nil
}

// Login verifies uname and password and returns a session.
// Returns ErrInvalidCredentials when either is wrong.
func (s *LoginService) Login(ctx context.Context, uname, password string) (*Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	uname = strings.TrimSpace(uname)

	person, err := s.people.GetByUname(ctx, uname)
	if err != nil {
		if errors.Is(err, store.ErrPersonNotFound) {
			log.Info("login for unknown user", slog.String("user", uname))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load person: %w", err)
	}

	if person.PasswordHash == "" || s.verifier.Compare(person.PasswordHash, password) != nil {
		log.Info("login with wrong password", slog.String("user", uname))
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(ctx, person.Uname, person.Role)
	if err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	if err := s.people.TouchAuthTime(ctx, person.Uname, now); err != nil {
		// login still succeeds without the timestamp
		log.Warn("failed to record login time",
			slog.String("user", uname),
			slog.String("error", err.Error()))
	}
	person.AuthTime = &now

	claims, err := s.tokens.ValidateToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("issued token does not validate: %w", err)
	}

	log.Info("user logged in", slog.String("user", uname))
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt, Person: person}, nil
}
