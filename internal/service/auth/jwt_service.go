package auth

import (
	"context"
	"time"
)

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed access token for the user name. role is
	// the comma separated role list of the person, empty for patrons.
	GenerateToken(ctx context.Context, uname, role string) (string, error)

	// ValidateToken validates the provided access token string and extracts the claims.
	// Returns the claims containing user information if the token is valid,
	// or an error if validation fails (expired, invalid signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is what a validated token says about its bearer.
type Claims struct {
	// Subject is the user name the token was issued for.
	Subject string `json:"sub,omitempty"`

	// Role is the bearer's role list at the time the token was issued.
	Role string `json:"role,omitempty"`

	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
