package resource

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/salescrm/internal/store"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// DecodeItem maps a schema-less item onto T through T's json tag names. Embedded
// structs are squashed, RFC 3339 strings become time.Time and numbers or numeric
// strings become decimal.Decimal.
func DecodeItem[T any](item store.Item) (T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
		Result:           &out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			decimalHook,
		),
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(map[string]any(item)); err != nil {
		return out, fmt.Errorf("decode item %s: %w", item.ID(), err)
	}
	return out, nil
}

func decimalHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	if d, ok := toDecimal(data); ok {
		return d, nil
	}
	return nil, fmt.Errorf("cannot convert %T to decimal", data)
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

// text renders an attribute value the way a user would type it in a search box.
func text(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case decimal.Decimal:
		return n.String()
	}
	return fmt.Sprint(v)
}
