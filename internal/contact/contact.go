package contact

import (
	"log/slog"

	"github.com/frahmantamala/salescrm/internal/audit"
	"github.com/frahmantamala/salescrm/internal/resource"
	"github.com/frahmantamala/salescrm/internal/store"
)

const OwnerAttr = "contactOwner"

type Contact struct {
	resource.Base
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	AccountName  string `json:"accountName,omitempty"`
	LeadSource   string `json:"leadSource,omitempty"`
	ContactOwner string `json:"contactOwner"`
}

func (c Contact) RecordOwner() string {
	return c.ContactOwner
}

func (c Contact) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Definition has no amount attribute; contacts are counted by lead source only.
var Definition = resource.Definition[Contact]{
	Name:         "contact",
	Table:        "contacts",
	OwnerAttr:    OwnerAttr,
	TenantIndex:  resource.TenantIndex,
	OwnerIndex:   resource.IndexName(OwnerAttr),
	Lookups:      map[string]string{"email": resource.IndexName("email")},
	SearchFields: []string{"firstName", "lastName", "email", "phone", "accountName"},
	Dimensions:   []string{"leadSource"},
}

func NewService(s store.Store, scopes resource.ScopeResolver, sink audit.Sink, logger *slog.Logger) *resource.Service[Contact] {
	return resource.NewService(Definition, s, scopes, sink, logger)
}
