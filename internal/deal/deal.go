// Package deal declares the Deal record and its access-controlled read service.
package deal

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/salescrm/internal/audit"
	"github.com/frahmantamala/salescrm/internal/resource"
	"github.com/frahmantamala/salescrm/internal/store"
)

const OwnerAttr = "dealOwner"

type Deal struct {
	resource.Base
	DealName    string          `json:"dealName"`
	AccountName string          `json:"accountName"`
	ContactName string          `json:"contactName,omitempty"`
	Stage       string          `json:"stage"`
	Amount      decimal.Decimal `json:"amount"`
	Probability int             `json:"probability,omitempty"`
	ClosingDate string          `json:"closingDate,omitempty"`
	DealOwner   string          `json:"dealOwner"`
}

func (d Deal) RecordOwner() string {
	return d.DealOwner
}

var Definition = resource.Definition[Deal]{
	Name:         "deal",
	Table:        "deals",
	OwnerAttr:    OwnerAttr,
	TenantIndex:  resource.TenantIndex,
	OwnerIndex:   resource.IndexName(OwnerAttr),
	Lookups:      map[string]string{"stage": resource.IndexName("stage")},
	SearchFields: []string{"dealName", "accountName", "stage", "amount"},
	Dimensions:   []string{"stage"},
	AmountAttr:   "amount",
}

func NewService(s store.Store, scopes resource.ScopeResolver, sink audit.Sink, logger *slog.Logger) *resource.Service[Deal] {
	return resource.NewService(Definition, s, scopes, sink, logger)
}
