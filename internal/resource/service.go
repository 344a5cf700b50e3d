package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/salescrm/internal/access"
	"github.com/frahmantamala/salescrm/internal/audit"
	"github.com/frahmantamala/salescrm/internal/core/identity"
	"github.com/frahmantamala/salescrm/internal/core/predicate"
	"github.com/frahmantamala/salescrm/internal/store"
	"github.com/frahmantamala/salescrm/pkg/logger"
)

// Service exposes the read operations of one record type to a single caller at a
// time. Every operation resolves the caller's scope once and reuses it for all the
// records it touches.
type Service[T access.Owned] struct {
	def    Definition[T]
	store  store.Store
	scopes ScopeResolver
	sink   audit.Sink
	logger *slog.Logger
}

func NewService[T access.Owned](def Definition[T], s store.Store, scopes ScopeResolver, sink audit.Sink, logger *slog.Logger) *Service[T] {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Service[T]{
		def:    def,
		store:  s,
		scopes: scopes,
		sink:   sink,
		logger: logger.With("resource", def.Name),
	}
}

func (s *Service[T]) Definition() Definition[T] {
	return s.def
}

// entry keeps the raw item next to its decoded record; search and stats read
// attributes generically from the item.
type entry[T access.Owned] struct {
	item   store.Item
	record T
}

// ListForUser returns every record the caller may see, optionally including
// soft-deleted ones.
func (s *Service[T]) ListForUser(ctx context.Context, id identity.Identity, includeDeleted bool) ([]T, error) {
	entries, scope, err := s.visible(ctx, id, includeDeleted)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.OpList, id, "", !scope.Denied(), len(entries))
	return records(entries), nil
}

// GetByIDForUser fetches one record by id. A record the caller may not see is
// reported exactly like a missing one.
func (s *Service[T]) GetByIDForUser(ctx context.Context, recordID string, id identity.Identity) (T, error) {
	var zero T

	item, err := s.store.Get(ctx, s.def.Table, recordID)
	if errors.Is(err, store.ErrNotFound) {
		s.record(ctx, audit.OpGet, id, recordID, false, 0)
		return zero, ErrNotFound
	}
	if err != nil {
		s.log(ctx).Error("failed to get record", "error", err, "record_id", recordID)
		return zero, fmt.Errorf("get %s %s: %w", s.def.Name, recordID, err)
	}

	// a foreign tenant never costs a decode or a hierarchy lookup
	if item.String(access.AttrTenant) != id.TenantID {
		s.record(ctx, audit.OpGet, id, recordID, false, 0)
		return zero, ErrNotFound
	}
	rec, err := s.def.decode(item)
	if err != nil {
		s.log(ctx).Error("failed to decode record", "error", err, "record_id", recordID)
		return zero, err
	}

	scope, err := s.scopes.ResolveScope(ctx, id)
	if err != nil {
		return zero, err
	}
	if !(access.Evaluator{}).CanAccess(rec, scope) {
		s.record(ctx, audit.OpGet, id, recordID, false, 0)
		return zero, ErrNotFound
	}

	s.record(ctx, audit.OpGet, id, recordID, true, 1)
	return rec, nil
}

// GetByOwnerForUser lists the live records of ownerID. An owner outside the caller's
// scope yields an empty list, not an error.
func (s *Service[T]) GetByOwnerForUser(ctx context.Context, ownerID string, id identity.Identity) ([]T, error) {
	scope, err := s.scopes.ResolveScope(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.CanViewOwner(ownerID) {
		s.record(ctx, audit.OpByOwner, id, ownerID, false, 0)
		return []T{}, nil
	}

	filter := access.BuildFilter(scope, s.def.OwnerAttr, false)
	owner := predicate.Equal(s.def.OwnerAttr, "owner", ownerID)
	filter.Role = owner

	var items []store.Item
	if s.def.OwnerIndex != "" {
		items, err = s.store.Query(ctx, store.QueryInput{
			Table:        s.def.Table,
			Index:        s.def.OwnerIndex,
			KeyCondition: owner,
			Filter:       predicate.AllOf(filter.Tenant, filter.Deleted),
		})
	} else {
		items, err = s.fetch(ctx, filter)
	}
	if err != nil {
		s.log(ctx).Error("failed to list records by owner", "error", err, "owner_id", ownerID)
		return nil, fmt.Errorf("list %s by owner: %w", s.def.Name, err)
	}

	entries := s.admit(ctx, items, scope, access.Evaluator{})
	s.record(ctx, audit.OpByOwner, id, ownerID, true, len(entries))
	return records(entries), nil
}

// SearchForUser matches term case-insensitively as a substring of any search field
// of the records the caller may see. An empty term returns the whole visible list.
func (s *Service[T]) SearchForUser(ctx context.Context, id identity.Identity, term string) ([]T, error) {
	entries, scope, err := s.visible(ctx, id, false)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(term))
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		if needle == "" || s.matches(e.item, needle) {
			out = append(out, e.record)
		}
	}
	s.record(ctx, audit.OpSearch, id, "", !scope.Denied(), len(out))
	return out, nil
}

func (s *Service[T]) matches(item store.Item, needle string) bool {
	for _, field := range s.def.SearchFields {
		if strings.Contains(strings.ToLower(text(item[field])), needle) {
			return true
		}
	}
	return false
}

// StatsForUser aggregates the records the caller may see.
func (s *Service[T]) StatsForUser(ctx context.Context, id identity.Identity) (*Stats, error) {
	entries, scope, err := s.visible(ctx, id, false)
	if err != nil {
		return nil, err
	}

	items := make([]store.Item, len(entries))
	for i, e := range entries {
		items[i] = e.item
	}
	stats := aggregate(items, s.def.Dimensions, s.def.AmountAttr)
	s.record(ctx, audit.OpStats, id, "", !scope.Denied(), stats.Total)
	return stats, nil
}

// FindByAttributeForUser looks records up through a non-owner index. The index
// cannot carry the role clause, so each record is evaluated against the scope.
func (s *Service[T]) FindByAttributeForUser(ctx context.Context, id identity.Identity, attr, value string) ([]T, error) {
	index, ok := s.def.Lookups[attr]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnsupportedLookup, s.def.Name, attr)
	}

	scope, err := s.scopes.ResolveScope(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := s.store.Query(ctx, store.QueryInput{
		Table:        s.def.Table,
		Index:        index,
		KeyCondition: predicate.Equal(attr, "lookup", value),
		Filter:       predicate.Equal(access.AttrTenant, "tenantId", id.TenantID),
	})
	if err != nil {
		s.log(ctx).Error("failed to look up records", "error", err, "attribute", attr)
		return nil, fmt.Errorf("look up %s by %s: %w", s.def.Name, attr, err)
	}

	entries := s.admit(ctx, items, scope, access.Evaluator{})
	s.record(ctx, audit.OpByAttr, id, attr+"="+value, !scope.Denied(), len(entries))
	return records(entries), nil
}

// visible resolves the scope and runs the bulk filter for it.
func (s *Service[T]) visible(ctx context.Context, id identity.Identity, includeDeleted bool) ([]entry[T], access.Scope, error) {
	scope, err := s.scopes.ResolveScope(ctx, id)
	if err != nil {
		s.log(ctx).Error("failed to resolve scope", "error", err, "user_id", id.UserID)
		return nil, access.Scope{}, err
	}

	items, err := s.fetch(ctx, access.BuildFilter(scope, s.def.OwnerAttr, includeDeleted))
	if err != nil {
		s.log(ctx).Error("failed to list records", "error", err, "user_id", id.UserID)
		return nil, access.Scope{}, fmt.Errorf("list %s: %w", s.def.Name, err)
	}

	return s.admit(ctx, items, scope, access.Evaluator{IncludeDeleted: includeDeleted}), scope, nil
}

// fetch runs the filter as a tenant-index query when the table has one, else as a scan.
func (s *Service[T]) fetch(ctx context.Context, f access.Filter) ([]store.Item, error) {
	if s.def.TenantIndex != "" {
		return s.store.Query(ctx, store.QueryInput{
			Table:        s.def.Table,
			Index:        s.def.TenantIndex,
			KeyCondition: f.Tenant,
			Filter:       f.Residual(),
		})
	}
	return s.store.Scan(ctx, store.ScanInput{Table: s.def.Table, Filter: f.Expr()})
}

// admit decodes items and keeps those the evaluator accepts. Bulk results already
// satisfy the same predicate, so for them this only drops what a store returned
// outside the scope. A record that does not decode is skipped.
func (s *Service[T]) admit(ctx context.Context, items []store.Item, scope access.Scope, eval access.Evaluator) []entry[T] {
	out := make([]entry[T], 0, len(items))
	for _, item := range items {
		rec, err := s.def.decode(item)
		if err != nil {
			s.log(ctx).Warn("skipping undecodable record", "error", err, "record_id", item.ID())
			continue
		}
		if !eval.CanAccess(rec, scope) {
			continue
		}
		out = append(out, entry[T]{item: item, record: rec})
	}
	return out
}

func (s *Service[T]) record(ctx context.Context, op string, id identity.Identity, resourceID string, granted bool, count int) {
	d := audit.NewDecision(op, s.def.Name, id)
	d.ResourceID = resourceID
	d.Granted = granted
	d.Count = count
	s.sink.Record(ctx, d)
}

func records[T access.Owned](entries []entry[T]) []T {
	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.record
	}
	return out
}

// log prefers the request logger, which carries the request and caller ids.
func (s *Service[T]) log(ctx context.Context) *slog.Logger {
	if l, ok := logger.Lookup(ctx); ok {
		return l.With("resource", s.def.Name)
	}
	return s.logger
}
