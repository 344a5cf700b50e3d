// Package resourcetest builds the reference tenant used across resource tests: an
// admin, a manager with one direct rep, an unassigned rep and a rep two levels down.
package resourcetest

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/frahmantamala/salescrm/internal/access"
	"github.com/frahmantamala/salescrm/internal/core/identity"
	"github.com/frahmantamala/salescrm/internal/store"
	"github.com/frahmantamala/salescrm/internal/store/memory"
)

var (
	Admin   = identity.Identity{UserID: "a1", Email: "a1@example.com", TenantID: "t1", Role: identity.RoleAdmin}
	Manager = identity.Identity{UserID: "m1", Email: "m1@example.com", TenantID: "t1", Role: identity.RoleSalesManager}
	Rep     = identity.Identity{UserID: "r1", Email: "r1@example.com", TenantID: "t1", Role: identity.RoleSalesRep, ReportingTo: "m1"}
	Loner   = identity.Identity{UserID: "r2", Email: "r2@example.com", TenantID: "t1", Role: identity.RoleSalesRep}
	// Outsider shares Rep's user id in another tenant.
	Outsider = identity.Identity{UserID: "r1", Email: "r1@other.example.com", TenantID: "t2", Role: identity.RoleAdmin}
)

// Created is the timestamp written on every fixture record.
var Created = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Format(time.RFC3339)

func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Users returns the directory entries of the reference tenant.
func Users() []store.Item {
	return []store.Item{
		{"id": "a1", "tenantId": "t1", "role": "ADMIN", "email": "a1@example.com"},
		{"id": "m1", "tenantId": "t1", "role": "SALES_MANAGER", "email": "m1@example.com"},
		{"id": "r1", "tenantId": "t1", "role": "SALES_REP", "reportingTo": "m1", "email": "r1@example.com"},
		{"id": "r2", "tenantId": "t1", "role": "SALES_REP", "email": "r2@example.com"},
		{"id": "r3", "tenantId": "t1", "role": "SALES_REP", "reportingTo": "r1", "email": "r3@example.com"},
	}
}

// Record builds a fixture record of tenant t1 with the audit attributes filled in.
func Record(id, ownerAttr, owner string, attrs store.Item) store.Item {
	item := store.Item{
		"id":        id,
		"tenantId":  "t1",
		ownerAttr:   owner,
		"isDeleted": false,
		"createdAt": Created,
		"createdBy": owner,
		"updatedAt": Created,
		"updatedBy": owner,
	}
	for k, v := range attrs {
		item[k] = v
	}
	return item
}

// Setup puts the users and records into a fresh memory store and returns it with an
// engine resolving scopes from it.
func Setup(ctx context.Context, table string, records ...store.Item) (*memory.Store, *access.Engine, error) {
	s := memory.New()
	for _, u := range Users() {
		if err := s.Put(ctx, access.UsersTable, u); err != nil {
			return nil, nil, err
		}
	}
	for _, r := range records {
		if err := s.Put(ctx, table, r); err != nil {
			return nil, nil, err
		}
	}
	engine := access.NewEngine(access.NewResolver(access.NewStoreDirectory(s), Logger()), Logger())
	return s, engine, nil
}
