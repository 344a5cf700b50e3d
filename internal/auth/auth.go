// Package auth verifies access tokens issued by the identity provider and turns their
// claims into the caller identity used by every access decision.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/salescrm/internal/core/identity"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims are the identity claims carried by an access token. Providers disagree on
// the user id claim, so Subject is used when user_id is absent.
type Claims struct {
	UserID      string `json:"user_id,omitempty"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
	TenantID    string `json:"tenant_id,omitempty"`
	ReportingTo string `json:"reporting_to,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts the claims, normalising the role spelling. Unknown roles are kept
// so the access engine can deny them.
func (c Claims) Identity() identity.Identity {
	userID := c.UserID
	if userID == "" {
		userID = c.Subject
	}
	return identity.Identity{
		UserID:      userID,
		Email:       c.Email,
		Role:        identity.NormalizeRole(c.Role),
		TenantID:    c.TenantID,
		ReportingTo: c.ReportingTo,
	}
}

type TokenVerifier interface {
	Verify(token string) (identity.Identity, error)
}
