package subsidiary

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/salescrm/internal/audit"
	"github.com/frahmantamala/salescrm/internal/resource"
	"github.com/frahmantamala/salescrm/internal/store"
)

const OwnerAttr = "subsidiaryOwner"

type Subsidiary struct {
	resource.Base
	SubsidiaryName  string          `json:"subsidiaryName"`
	Country         string          `json:"country"`
	TaxID           string          `json:"taxId,omitempty"`
	ParentCompany   string          `json:"parentCompany,omitempty"`
	Revenue         decimal.Decimal `json:"revenue"`
	SubsidiaryOwner string          `json:"subsidiaryOwner"`
}

func (s Subsidiary) RecordOwner() string {
	return s.SubsidiaryOwner
}

var Definition = resource.Definition[Subsidiary]{
	Name:         "subsidiary",
	Table:        "subsidiaries",
	OwnerAttr:    OwnerAttr,
	TenantIndex:  resource.TenantIndex,
	OwnerIndex:   resource.IndexName(OwnerAttr),
	Lookups:      map[string]string{"country": resource.IndexName("country")},
	SearchFields: []string{"subsidiaryName", "country", "taxId"},
	Dimensions:   []string{"country"},
	AmountAttr:   "revenue",
}

func NewService(s store.Store, scopes resource.ScopeResolver, sink audit.Sink, logger *slog.Logger) *resource.Service[Subsidiary] {
	return resource.NewService(Definition, s, scopes, sink, logger)
}
