package predicate

import "reflect"

// Eval reports whether item satisfies expr. A nil expression matches everything.
func Eval(expr Expr, item map[string]any) bool {
	switch n := expr.(type) {
	case nil:
		return true
	case Eq:
		v, ok := item[n.Attr]
		return ok && v != nil && valuesEqual(v, n.Value)
	case In:
		v, ok := item[n.Attr]
		if !ok || v == nil {
			return false
		}
		for _, m := range n.Members {
			if valuesEqual(v, m.Value) {
				return true
			}
		}
		return false
	case Absent:
		v, ok := item[n.Attr]
		return !ok || v == nil
	case And:
		for _, child := range n {
			if !Eval(child, item) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range n {
			if Eval(child, item) {
				return true
			}
		}
		return false
	}
	return false
}

func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// normalize folds the numeric kinds produced by JSON, SQL drivers and the DynamoDB
// unmarshaller onto float64 so that 1, int64(1) and 1.0 compare equal.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case []byte:
		return string(n)
	}
	return v
}
