package dealer

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/salescrm/internal/audit"
	"github.com/frahmantamala/salescrm/internal/resource"
	"github.com/frahmantamala/salescrm/internal/store"
)

const OwnerAttr = "dealerOwner"

type Dealer struct {
	resource.Base
	DealerName  string          `json:"dealerName"`
	Region      string          `json:"region"`
	Email       string          `json:"email,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Status      string          `json:"status"`
	CreditLimit decimal.Decimal `json:"creditLimit"`
	DealerOwner string          `json:"dealerOwner"`
}

func (d Dealer) RecordOwner() string {
	return d.DealerOwner
}

var Definition = resource.Definition[Dealer]{
	Name:         "dealer",
	Table:        "dealers",
	OwnerAttr:    OwnerAttr,
	TenantIndex:  resource.TenantIndex,
	OwnerIndex:   resource.IndexName(OwnerAttr),
	Lookups:      map[string]string{"region": resource.IndexName("region")},
	SearchFields: []string{"dealerName", "region", "email", "phone"},
	Dimensions:   []string{"region", "status"},
	AmountAttr:   "creditLimit",
}

func NewService(s store.Store, scopes resource.ScopeResolver, sink audit.Sink, logger *slog.Logger) *resource.Service[Dealer] {
	return resource.NewService(Definition, s, scopes, sink, logger)
}
