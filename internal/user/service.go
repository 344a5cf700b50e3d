package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/salescrm/internal/access"
	"github.com/frahmantamala/salescrm/internal/core/identity"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

// ScopeResolver is the part of the access engine the profile needs.
type ScopeResolver interface {
	ResolveScope(ctx context.Context, id identity.Identity) (access.Scope, error)
}

// Visibility summarises whose records the caller can see.
type Visibility struct {
	WholeTenant bool     `json:"whole_tenant"`
	Owners      []string `json:"owners,omitempty"`
}

type Profile struct {
	Identity   identity.Identity `json:"identity"`
	User       *User             `json:"user,omitempty"`
	Visibility Visibility        `json:"visibility"`
}

type Service struct {
	repo   Repository
	scopes ScopeResolver
	logger *slog.Logger
}

func NewService(repo Repository, scopes ScopeResolver, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		scopes: scopes,
		logger: logger,
	}
}

// GetProfile returns the caller's directory entry and visibility. A missing or
// foreign-tenant directory entry is not an error; the profile is built from the
// verified identity alone.
func (s *Service) GetProfile(ctx context.Context, id identity.Identity) (*Profile, error) {
	scope, err := s.scopes.ResolveScope(ctx, id)
	if err != nil {
		s.logger.Error("failed to resolve scope", "error", err, "user_id", id.UserID)
		return nil, err
	}

	profile := &Profile{
		Identity: id,
		Visibility: Visibility{
			WholeTenant: scope.WholeTenant(),
			Owners:      scope.Owners(),
		},
	}

	u, err := s.repo.GetByID(ctx, id.UserID)
	switch {
	case errors.Is(err, ErrNotFound):
		s.logger.Debug("identity has no directory entry", "user_id", id.UserID)
	case err != nil:
		s.logger.Error("failed to get user", "error", err, "user_id", id.UserID)
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	case u.TenantID == id.TenantID:
		profile.User = u
	}
	return profile, nil
}
