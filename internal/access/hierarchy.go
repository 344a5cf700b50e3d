package access

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/salescrm/internal/core/identity"
	"github.com/frahmantamala/salescrm/internal/core/predicate"
)

// UserQuery selects directory users. ReportingTo is an equality for a single
// manager and an IN over a whole hierarchy level.
type UserQuery struct {
	ReportingTo predicate.Expr
	Filter      predicate.Expr
}

func (q UserQuery) Expr() predicate.Expr {
	return predicate.AllOf(q.ReportingTo, q.Filter)
}

// UserDirectory answers user lookups with the ids of the matching users.
type UserDirectory interface {
	FindUsers(ctx context.Context, q UserQuery) ([]string, error)
}

type FailurePolicy string

const (
	// FailClosed returns the directory error to the caller.
	FailClosed FailurePolicy = "propagate"
	// SelfOnly logs the error and resolves an empty subordinate set, so a manager
	// keeps visibility of their own records only.
	SelfOnly FailurePolicy = "self_only"
)

type ResolverOption func(*Resolver)

// WithTransitive makes the resolver follow reportingTo links to every level below
// the manager instead of direct reports only.
func WithTransitive(enabled bool) ResolverOption {
	return func(r *Resolver) { r.transitive = enabled }
}

func WithFailurePolicy(p FailurePolicy) ResolverOption {
	return func(r *Resolver) {
		if p != "" {
			r.onFailure = p
		}
	}
}

// Resolver computes the users whose records a manager may see besides their own.
type Resolver struct {
	directory  UserDirectory
	transitive bool
	onFailure  FailurePolicy
	logger     *slog.Logger
}

func NewResolver(directory UserDirectory, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		directory: directory,
		onFailure: FailClosed,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SubordinatesOf returns the direct SALES_REP reports of managerID within tenantID,
// excluding soft-deleted users. It issues exactly one directory query. In transitive
// mode it issues one query per hierarchy level and also walks through managers.
func (r *Resolver) SubordinatesOf(ctx context.Context, managerID, tenantID string) (Set, error) {
	var (
		subs Set
		err  error
	)
	if r.transitive {
		subs, err = r.closure(ctx, managerID, tenantID)
	} else {
		subs, err = r.directReports(ctx, managerID, tenantID)
	}
	if err == nil {
		return subs, nil
	}

	if r.onFailure == SelfOnly {
		r.logger.Warn("subordinate resolution failed, falling back to own records",
			"manager_id", managerID,
			"tenant_id", tenantID,
			"error", err)
		return NewSet(), nil
	}
	return nil, fmt.Errorf("%w for %s: %w", ErrResolveSubordinates, managerID, err)
}

func (r *Resolver) directReports(ctx context.Context, managerID, tenantID string) (Set, error) {
	ids, err := r.directory.FindUsers(ctx, UserQuery{
		ReportingTo: predicate.Equal(AttrReportingTo, "managerId", managerID),
		Filter: predicate.AllOf(
			predicate.Equal(AttrRole, "role", string(identity.RoleSalesRep)),
			predicate.Equal(AttrTenant, "tenantId", tenantID),
			NotDeleted(),
		),
	})
	if err != nil {
		return nil, err
	}
	return NewSet(ids...), nil
}

// closure walks the reporting graph breadth first. The visited set makes cycles in
// reportingTo harmless.
func (r *Resolver) closure(ctx context.Context, managerID, tenantID string) (Set, error) {
	visited := NewSet(managerID)
	frontier := []string{managerID}
	roles := predicate.In{Attr: AttrRole, Members: []predicate.Member{
		{Param: "role0", Value: string(identity.RoleSalesRep)},
		{Param: "role1", Value: string(identity.RoleSalesManager)},
	}}

	for len(frontier) > 0 {
		ids, err := r.directory.FindUsers(ctx, UserQuery{
			ReportingTo: reportingToAny(frontier),
			Filter: predicate.AllOf(
				roles,
				predicate.Equal(AttrTenant, "tenantId", tenantID),
				NotDeleted(),
			),
		})
		if err != nil {
			return nil, err
		}

		next := make([]string, 0, len(ids))
		for _, id := range ids {
			if !visited.Has(id) {
				visited.Add(id)
				next = append(next, id)
			}
		}
		frontier = next
	}

	delete(visited, managerID)
	return visited, nil
}

func reportingToAny(managers []string) predicate.Expr {
	if len(managers) == 1 {
		return predicate.Equal(AttrReportingTo, "managerId", managers[0])
	}
	members := make([]predicate.Member, len(managers))
	for i, id := range managers {
		members[i] = predicate.Member{Param: fmt.Sprintf("manager%d", i), Value: id}
	}
	return predicate.In{Attr: AttrReportingTo, Members: members}
}
