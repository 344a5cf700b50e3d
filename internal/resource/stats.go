package resource

import (
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/salescrm/internal/store"
)

// Unset is the group key of records that carry no value for a dimension.
const Unset = "unset"

type Stats struct {
	Total  int                       `json:"total"`
	Groups map[string]map[string]int `json:"groups"`
	Amount *AmountStats              `json:"amount,omitempty"`
}

// AmountStats sums a monetary attribute over the records that carry it.
type AmountStats struct {
	Field   string          `json:"field"`
	Count   int             `json:"count"`
	Sum     decimal.Decimal `json:"sum"`
	Average decimal.Decimal `json:"average"`
}

// aggregate counts every item exactly once per dimension; an item has a single value
// for each dimension, so the groups of one dimension partition the total.
func aggregate(items []store.Item, dimensions []string, amountAttr string) *Stats {
	stats := &Stats{
		Total:  len(items),
		Groups: make(map[string]map[string]int, len(dimensions)),
	}
	for _, dim := range dimensions {
		stats.Groups[dim] = make(map[string]int)
	}

	var amount *AmountStats
	if amountAttr != "" {
		amount = &AmountStats{Field: amountAttr, Sum: decimal.Zero, Average: decimal.Zero}
	}

	for _, item := range items {
		for _, dim := range dimensions {
			key := text(item[dim])
			if key == "" {
				key = Unset
			}
			stats.Groups[dim][key]++
		}
		if amount == nil {
			continue
		}
		if v, ok := toDecimal(item[amountAttr]); ok {
			amount.Sum = amount.Sum.Add(v)
			amount.Count++
		}
	}

	if amount != nil && amount.Count > 0 {
		amount.Average = amount.Sum.Div(decimal.NewFromInt(int64(amount.Count))).Round(2)
	}
	stats.Amount = amount
	return stats
}
