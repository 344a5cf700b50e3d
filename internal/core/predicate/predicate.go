// Package predicate is a small filter algebra (AND / OR / IN / equality / absence over
// named attributes with named bound parameters) that is rendered to a concrete store's
// query language by a separate renderer.
package predicate

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	ErrInvalidName    = errors.New("predicate: invalid attribute or parameter name")
	ErrParamCollision = errors.New("predicate: parameter bound to two different values")
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Expr interface {
	isExpr()
}

// Eq matches items whose attribute equals the bound value.
type Eq struct {
	Attr  string
	Param string
	Value any
}

type Member struct {
	Param string
	Value any
}

// In matches items whose attribute equals any enumerated member. Each member carries
// its own bound parameter because the target stores have no array-membership operator.
type In struct {
	Attr    string
	Members []Member
}

// Absent matches items that do not carry the attribute at all.
type Absent struct {
	Attr string
}

type And []Expr

type Or []Expr

func (Eq) isExpr()     {}
func (In) isExpr()     {}
func (Absent) isExpr() {}
func (And) isExpr()    {}
func (Or) isExpr()     {}

func Equal(attr, param string, value any) Eq {
	return Eq{Attr: attr, Param: param, Value: value}
}

// AllOf joins the non-nil expressions with AND. A single expression is returned as is.
func AllOf(exprs ...Expr) Expr {
	out := compact(exprs)
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return And(out)
}

// AnyOf joins the non-nil expressions with OR. A single expression is returned as is.
func AnyOf(exprs ...Expr) Expr {
	out := compact(exprs)
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return Or(out)
}

func compact(exprs []Expr) []Expr {
	out := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Params collects every bound parameter of expr.
func Params(expr Expr) (map[string]any, error) {
	params := make(map[string]any)
	err := walk(expr, func(e Expr) error {
		switch n := e.(type) {
		case Eq:
			return bind(params, n.Param, n.Value)
		case In:
			for _, m := range n.Members {
				if err := bind(params, m.Param, m.Value); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return params, nil
}

func bind(params map[string]any, name string, value any) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: parameter %q", ErrInvalidName, name)
	}
	if existing, ok := params[name]; ok && !valuesEqual(existing, value) {
		return fmt.Errorf("%w: %s", ErrParamCollision, name)
	}
	params[name] = value
	return nil
}

// Attributes returns the distinct attribute names referenced by expr, sorted.
func Attributes(expr Expr) []string {
	seen := map[string]struct{}{}
	_ = walk(expr, func(e Expr) error {
		switch n := e.(type) {
		case Eq:
			seen[n.Attr] = struct{}{}
		case In:
			seen[n.Attr] = struct{}{}
		case Absent:
			seen[n.Attr] = struct{}{}
		}
		return nil
	})
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func walk(expr Expr, fn func(Expr) error) error {
	if expr == nil {
		return nil
	}
	if err := fn(expr); err != nil {
		return err
	}
	switch n := expr.(type) {
	case And:
		for _, child := range n {
			if err := walk(child, fn); err != nil {
				return err
			}
		}
	case Or:
		for _, child := range n {
			if err := walk(child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func validAttr(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: attribute %q", ErrInvalidName, name)
	}
	return nil
}

// Canonical renders expr into a parameter-name independent string. Children of AND/OR
// and IN members are sorted, so two predicates with the same clause set and the same
// bound values produce the same canonical form.
func Canonical(expr Expr) string {
	switch n := expr.(type) {
	case nil:
		return "true"
	case Eq:
		return fmt.Sprintf("eq(%s,%s)", n.Attr, canonicalValue(n.Value))
	case In:
		vals := make([]string, len(n.Members))
		for i, m := range n.Members {
			vals[i] = canonicalValue(m.Value)
		}
		sort.Strings(vals)
		return fmt.Sprintf("in(%s,[%s])", n.Attr, strings.Join(vals, ","))
	case Absent:
		return fmt.Sprintf("absent(%s)", n.Attr)
	case And:
		return "and(" + canonicalChildren(n) + ")"
	case Or:
		return "or(" + canonicalChildren(n) + ")"
	}
	return fmt.Sprintf("unknown(%T)", expr)
}

func canonicalChildren(children []Expr) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = Canonical(c)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func canonicalValue(v any) string {
	return fmt.Sprintf("%T:%v", normalize(v), normalize(v))
}

// Same reports whether a and b select the same items by construction.
func Same(a, b Expr) bool {
	return Canonical(a) == Canonical(b)
}
