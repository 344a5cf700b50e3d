package product

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/salescrm/internal/audit"
	"github.com/frahmantamala/salescrm/internal/resource"
	"github.com/frahmantamala/salescrm/internal/store"
)

const OwnerAttr = "productOwner"

// Product is a catalogue entry. Visibility follows productOwner like any other record.
type Product struct {
	resource.Base
	ProductName     string          `json:"productName"`
	ProductCode     string          `json:"productCode"`
	Category        string          `json:"category"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	QuantityInStock int             `json:"quantityInStock"`
	Description     string          `json:"description,omitempty"`
	ProductOwner    string          `json:"productOwner"`
}

func (p Product) RecordOwner() string {
	return p.ProductOwner
}

var Definition = resource.Definition[Product]{
	Name:         "product",
	Table:        "products",
	OwnerAttr:    OwnerAttr,
	TenantIndex:  resource.TenantIndex,
	OwnerIndex:   resource.IndexName(OwnerAttr),
	Lookups:      map[string]string{"category": resource.IndexName("category")},
	SearchFields: []string{"productName", "productCode", "category", "unitPrice"},
	Dimensions:   []string{"category"},
	AmountAttr:   "unitPrice",
}

func NewService(s store.Store, scopes resource.ScopeResolver, sink audit.Sink, logger *slog.Logger) *resource.Service[Product] {
	return resource.NewService(Definition, s, scopes, sink, logger)
}
