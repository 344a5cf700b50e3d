package predicate

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// SQLExpression is a rendered WHERE clause plus its positional arguments.
type SQLExpression struct {
	Clause string
	Args   []any
}

// Dialect adapts the SQL renderer to a storage layout.
type Dialect interface {
	Placeholder(position int) string
	Equal(attr, placeholder string) string
	In(attr string, placeholders []string) string
	Absent(attr string) string
	Bind(attr string, value any) (any, error)
}

// RenderSQL renders expr as a WHERE clause. Bound parameters become positional
// arguments in the order they appear in the clause.
func RenderSQL(expr Expr, d Dialect) (SQLExpression, error) {
	r := &sqlRenderer{dialect: d, params: map[string]any{}}
	if expr == nil {
		return SQLExpression{Clause: "1 = 1"}, nil
	}
	clause, err := r.render(expr, true)
	if err != nil {
		return SQLExpression{}, err
	}
	return SQLExpression{Clause: clause, Args: r.args}, nil
}

type sqlRenderer struct {
	dialect Dialect
	params  map[string]any
	args    []any
}

func (r *sqlRenderer) arg(attr, param string, v any) (string, error) {
	if err := bind(r.params, param, v); err != nil {
		return "", err
	}
	bound, err := r.dialect.Bind(attr, v)
	if err != nil {
		return "", err
	}
	r.args = append(r.args, bound)
	return r.dialect.Placeholder(len(r.args)), nil
}

func (r *sqlRenderer) render(expr Expr, top bool) (string, error) {
	switch n := expr.(type) {
	case Eq:
		if err := validAttr(n.Attr); err != nil {
			return "", err
		}
		ph, err := r.arg(n.Attr, n.Param, n.Value)
		if err != nil {
			return "", err
		}
		return r.dialect.Equal(n.Attr, ph), nil
	case In:
		if err := validAttr(n.Attr); err != nil {
			return "", err
		}
		if len(n.Members) == 0 {
			return "1 = 0", nil
		}
		phs := make([]string, len(n.Members))
		for i, m := range n.Members {
			ph, err := r.arg(n.Attr, m.Param, m.Value)
			if err != nil {
				return "", err
			}
			phs[i] = ph
		}
		return r.dialect.In(n.Attr, phs), nil
	case Absent:
		if err := validAttr(n.Attr); err != nil {
			return "", err
		}
		return r.dialect.Absent(n.Attr), nil
	case And:
		if len(n) == 0 {
			return "1 = 1", nil
		}
		return r.join(n, " AND ", top)
	case Or:
		if len(n) == 0 {
			return "1 = 0", nil
		}
		return r.join(n, " OR ", top)
	}
	return "", fmt.Errorf("predicate: unsupported node %T", expr)
}

func (r *sqlRenderer) join(children []Expr, op string, top bool) (string, error) {
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

// JSONBDialect targets a Postgres table that keeps every attribute of an item in a
// single jsonb column. Equality uses containment so the GIN index serves it and
// booleans and numbers keep their JSON type. Offset shifts placeholder numbers past
// arguments the caller binds ahead of the clause.
type JSONBDialect struct {
	Column string
	Offset int
}

func (d JSONBDialect) column() string {
	if d.Column == "" {
		return "attrs"
	}
	return d.Column
}

func (d JSONBDialect) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position+d.Offset)
}

func (d JSONBDialect) Equal(_ string, placeholder string) string {
	return fmt.Sprintf("%s @> %s::jsonb", d.column(), placeholder)
}

func (d JSONBDialect) In(attr string, placeholders []string) string {
	parts := make([]string, len(placeholders))
	for i, ph := range placeholders {
		parts[i] = d.Equal(attr, ph)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// Absent also matches a JSON null, which Eval treats as a missing attribute.
func (d JSONBDialect) Absent(attr string) string {
	return fmt.Sprintf("(NOT jsonb_exists(%[1]s, '%[2]s') OR %[1]s->'%[2]s' = 'null'::jsonb)", d.column(), attr)
}

func (d JSONBDialect) Bind(attr string, value any) (any, error) {
	raw, err := json.Marshal(map[string]any{attr: value})
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", attr, err)
	}
	return string(raw), nil
}

// ColumnDialect targets a typed table where every attribute has its own column.
// Attribute names are mapped through Columns, falling back to snake_case.
type ColumnDialect struct {
	Columns map[string]string
}

func (d ColumnDialect) Column(attr string) string {
	if col, ok := d.Columns[attr]; ok {
		return col
	}
	return SnakeCase(attr)
}

func (d ColumnDialect) Placeholder(int) string {
	return "?"
}

func (d ColumnDialect) Equal(attr, placeholder string) string {
	return fmt.Sprintf("%s = %s", d.Column(attr), placeholder)
}

func (d ColumnDialect) In(attr string, placeholders []string) string {
	return fmt.Sprintf("%s IN (%s)", d.Column(attr), strings.Join(placeholders, ", "))
}

func (d ColumnDialect) Absent(attr string) string {
	return fmt.Sprintf("%s IS NULL", d.Column(attr))
}

func (d ColumnDialect) Bind(_ string, value any) (any, error) {
	return value, nil
}

// SnakeCase converts a camelCase attribute name to snake_case.
func SnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
