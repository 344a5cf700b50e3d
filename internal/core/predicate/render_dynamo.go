package predicate

import (
	"fmt"
	"strings"
)

// MaxDynamoInOperands is the most operands DynamoDB accepts in one IN. Longer
// memberships render as an OR of IN groups.
const MaxDynamoInOperands = 100

const nullTypeParam = "nullType"

// DynamoExpression is a predicate rendered in DynamoDB condition expression syntax.
type DynamoExpression struct {
	Expression string
	Names      map[string]string
	Values     map[string]any
}

func (d DynamoExpression) Empty() bool {
	return d.Expression == ""
}

// RenderDynamo renders expr with #name placeholders for attributes and :param
// placeholders for bound values. A nil expression renders to an empty expression.
func RenderDynamo(expr Expr) (DynamoExpression, error) {
	out := DynamoExpression{
		Names:  map[string]string{},
		Values: map[string]any{},
	}
	if expr == nil {
		return out, nil
	}
	r := &dynamoRenderer{out: &out}
	text, err := r.render(expr, true)
	if err != nil {
		return DynamoExpression{}, err
	}
	out.Expression = text
	return out, nil
}

// MergeDynamo combines two rendered expressions that will travel in the same request,
// e.g. a key condition and a filter expression.
func MergeDynamo(a, b DynamoExpression) (map[string]string, map[string]any, error) {
	names := make(map[string]string, len(a.Names)+len(b.Names))
	values := make(map[string]any, len(a.Values)+len(b.Values))
	for _, src := range []DynamoExpression{a, b} {
		for k, v := range src.Names {
			names[k] = v
		}
		for k, v := range src.Values {
			if existing, ok := values[k]; ok && !valuesEqual(existing, v) {
				return nil, nil, fmt.Errorf("%w: %s", ErrParamCollision, k)
			}
			values[k] = v
		}
	}
	return names, values, nil
}

type dynamoRenderer struct {
	out *DynamoExpression
}

func (r *dynamoRenderer) name(attr string) (string, error) {
	if err := validAttr(attr); err != nil {
		return "", err
	}
	placeholder := "#" + attr
	r.out.Names[placeholder] = attr
	return placeholder, nil
}

func (r *dynamoRenderer) value(param string, v any) (string, error) {
	if !namePattern.MatchString(param) {
		return "", fmt.Errorf("%w: parameter %q", ErrInvalidName, param)
	}
	placeholder := ":" + param
	if existing, ok := r.out.Values[placeholder]; ok && !valuesEqual(existing, v) {
		return "", fmt.Errorf("%w: %s", ErrParamCollision, param)
	}
	r.out.Values[placeholder] = v
	return placeholder, nil
}

func (r *dynamoRenderer) render(expr Expr, top bool) (string, error) {
	switch n := expr.(type) {
	case Eq:
		name, err := r.name(n.Attr)
		if err != nil {
			return "", err
		}
		val, err := r.value(n.Param, n.Value)
		if err != nil {
			return "", err
		}
		return name + " = " + val, nil
	case In:
		name, err := r.name(n.Attr)
		if err != nil {
			return "", err
		}
		if len(n.Members) == 0 {
			return "", fmt.Errorf("predicate: empty IN on %s", n.Attr)
		}
		vals := make([]string, len(n.Members))
		for i, m := range n.Members {
			if vals[i], err = r.value(m.Param, m.Value); err != nil {
				return "", err
			}
		}
		groups := make([]string, 0, (len(vals)+MaxDynamoInOperands-1)/MaxDynamoInOperands)
		for len(vals) > 0 {
			n := min(len(vals), MaxDynamoInOperands)
			groups = append(groups, name+" IN ("+strings.Join(vals[:n], ", ")+")")
			vals = vals[n:]
		}
		text := strings.Join(groups, " OR ")
		if !top && len(groups) > 1 {
			text = "(" + text + ")"
		}
		return text, nil
	case Absent:
		name, err := r.name(n.Attr)
		if err != nil {
			return "", err
		}
		// a stored NULL counts as absent, as it does for Eval
		null, err := r.value(nullTypeParam, "NULL")
		if err != nil {
			return "", err
		}
		return "(attribute_not_exists(" + name + ") OR attribute_type(" + name + ", " + null + "))", nil
	case And:
		return r.join(n, " AND ", top)
	case Or:
		return r.join(n, " OR ", top)
	}
	return "", fmt.Errorf("predicate: unsupported node %T", expr)
}

func (r *dynamoRenderer) join(children []Expr, op string, top bool) (string, error) {
	parts := make([]string, 0, len(children))
	for _, child := range children {
		text, err := r.render(child, false)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	text := strings.Join(parts, op)
	if !top && len(parts) > 1 {
		text = "(" + text + ")"
	}
	return text, nil
}
