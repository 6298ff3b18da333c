package query

import (
	"fmt"
	"strings"

	"github.com/blockwatch-labs/tzindexer/pkg/schema"
)

// compile validates q's identifiers against physical and renders a
// parameterized statement. No user-supplied string is ever concatenated
// into the SQL text; every identifier is checked against physical.Columns
// first, and every value becomes a $N placeholder.
func (e *Engine) compile(platform, network, entity string, physical schema.Entity, q Query) (string, []any, error) {
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	selectCols, err := e.renderSelect(platform, network, entity, physical, q)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", selectCols, quoteQualifiedTable(e.db.Schema, physical.Table))

	if len(q.Predicates) > 0 {
		clauses := make([]string, 0, len(q.Predicates))
		for _, p := range q.Predicates {
			clause, err := renderPredicate(platform, network, entity, physical, p, bind)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, clause)
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}

	if len(q.GroupBy) > 0 {
		groupCols := make([]string, 0, len(q.GroupBy))
		for _, name := range q.GroupBy {
			col, err := validColumn(platform, network, entity, physical, name)
			if err != nil {
				return "", nil, err
			}
			groupCols = append(groupCols, quoteIdent(col.Name))
		}
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groupCols, ", "))
	}

	if len(q.OrderBy) > 0 {
		orderCols := make([]string, 0, len(q.OrderBy))
		for _, o := range q.OrderBy {
			col, err := validColumn(platform, network, entity, physical, o.Attribute)
			if err != nil {
				return "", nil, err
			}
			dir := "ASC"
			if o.Direction == Descending {
				dir = "DESC"
			}
			orderCols = append(orderCols, fmt.Sprintf("%s %s", quoteIdent(col.Name), dir))
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(orderCols, ", "))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultRowLimit
	}
	if limit > maxRowLimit {
		limit = maxRowLimit
	}
	fmt.Fprintf(&b, " LIMIT %d", limit)
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}

	return b.String(), args, nil
}

func (e *Engine) renderSelect(platform, network, entity string, physical schema.Entity, q Query) (string, error) {
	if len(q.Aggregations) > 0 {
		parts := make([]string, 0, len(q.Aggregations)+len(q.GroupBy))
		for _, name := range q.GroupBy {
			col, err := validColumn(platform, network, entity, physical, name)
			if err != nil {
				return "", err
			}
			parts = append(parts, quoteIdent(col.Name))
		}
		for _, agg := range q.Aggregations {
			fn, err := validAggFunction(agg.Function)
			if err != nil {
				return "", err
			}
			alias := agg.Alias
			if alias == "" {
				alias = agg.Function
			}
			if fn == "COUNT" && agg.Attribute == "" {
				parts = append(parts, fmt.Sprintf("COUNT(*) AS %s", quoteIdent(alias)))
				continue
			}
			col, err := validColumn(platform, network, entity, physical, agg.Attribute)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s(%s) AS %s", fn, quoteIdent(col.Name), quoteIdent(alias)))
		}
		return strings.Join(parts, ", "), nil
	}

	if len(q.Select) == 0 {
		cols := make([]string, 0, len(physical.Columns))
		for _, c := range physical.Columns {
			cols = append(cols, quoteIdent(c.Name))
		}
		return strings.Join(cols, ", "), nil
	}

	cols := make([]string, 0, len(q.Select))
	for _, name := range q.Select {
		col, err := validColumn(platform, network, entity, physical, name)
		if err != nil {
			return "", err
		}
		cols = append(cols, quoteIdent(col.Name))
	}
	return strings.Join(cols, ", "), nil
}

func renderPredicate(platform, network, entity string, physical schema.Entity, p Predicate, bind func(any) string) (string, error) {
	col, err := validColumn(platform, network, entity, physical, p.Attribute)
	if err != nil {
		return "", err
	}
	if err := validOperand(col, p.Operator, p.Value); err != nil {
		return "", err
	}

	ident := quoteIdent(col.Name)
	switch p.Operator {
	case OpEq:
		return fmt.Sprintf("%s = %s", ident, bind(p.Value)), nil
	case OpNeq:
		return fmt.Sprintf("%s != %s", ident, bind(p.Value)), nil
	case OpGt:
		return fmt.Sprintf("%s > %s", ident, bind(p.Value)), nil
	case OpGte:
		return fmt.Sprintf("%s >= %s", ident, bind(p.Value)), nil
	case OpLt:
		return fmt.Sprintf("%s < %s", ident, bind(p.Value)), nil
	case OpLte:
		return fmt.Sprintf("%s <= %s", ident, bind(p.Value)), nil
	case OpLike:
		return fmt.Sprintf("%s LIKE %s", ident, bind(p.Value)), nil
	case OpIsNull:
		return fmt.Sprintf("%s IS NULL", ident), nil
	case OpNotNull:
		return fmt.Sprintf("%s IS NOT NULL", ident), nil
	case OpIn:
		values, ok := p.Value.([]any)
		if !ok || len(values) == 0 {
			return "", &ValidationError{Reason: fmt.Sprintf("attribute %q: operator in requires a non-empty list", p.Attribute)}
		}
		placeholders := make([]string, 0, len(values))
		for _, v := range values {
			placeholders = append(placeholders, bind(v))
		}
		return fmt.Sprintf("%s IN (%s)", ident, strings.Join(placeholders, ", ")), nil
	default:
		return "", &ValidationError{Reason: fmt.Sprintf("attribute %q: unknown operator %q", p.Attribute, p.Operator)}
	}
}

// validColumn whitelists name against physical.Columns, returning
// QueryValidationError for anything not a literal physical column.
func validColumn(platform, network, entity string, physical schema.Entity, name string) (schema.ColumnDef, error) {
	col, ok := physical.FindColumn(name)
	if !ok {
		return schema.ColumnDef{}, &ValidationError{Reason: fmt.Sprintf("unknown attribute %q on %s/%s/%s", name, platform, network, entity)}
	}
	return col, nil
}

func validAggFunction(fn string) (string, error) {
	switch strings.ToLower(fn) {
	case "count":
		return "COUNT", nil
	case "sum":
		return "SUM", nil
	case "avg":
		return "AVG", nil
	case "min":
		return "MIN", nil
	case "max":
		return "MAX", nil
	default:
		return "", &ValidationError{Reason: fmt.Sprintf("unknown aggregation function %q", fn)}
	}
}

// validOperand rejects predicates whose operand type cannot possibly
// match the attribute's physical data type; the override's presentation
// dataType is never consulted here.
func validOperand(col schema.ColumnDef, op Operator, value any) error {
	if op == OpIsNull || op == OpNotNull {
		return nil
	}
	if value == nil {
		return &ValidationError{Reason: fmt.Sprintf("attribute %q: operator %q requires a value", col.Name, op)}
	}
	switch col.Type {
	case schema.TypeInt, schema.TypeDecimal:
		switch value.(type) {
		case int, int32, int64, float32, float64:
		case []any:
			if op != OpIn {
				return &ValidationError{Reason: fmt.Sprintf("attribute %q: list operand only valid with in", col.Name)}
			}
		default:
			return &ValidationError{Reason: fmt.Sprintf("attribute %q: expected numeric operand", col.Name)}
		}
	case schema.TypeBoolean:
		if _, ok := value.(bool); !ok {
			return &ValidationError{Reason: fmt.Sprintf("attribute %q: expected boolean operand", col.Name)}
		}
	case schema.TypeString, schema.TypeHash, schema.TypeAccountAddress, schema.TypeDateTime:
		switch value.(type) {
		case string:
		case []any:
			if op != OpIn {
				return &ValidationError{Reason: fmt.Sprintf("attribute %q: list operand only valid with in", col.Name)}
			}
		default:
			return &ValidationError{Reason: fmt.Sprintf("attribute %q: expected string operand", col.Name)}
		}
	}
	if op == OpLike && col.Type != schema.TypeString && col.Type != schema.TypeHash && col.Type != schema.TypeAccountAddress {
		return &ValidationError{Reason: fmt.Sprintf("attribute %q: like is only valid on string-like attributes", col.Name)}
	}
	return nil
}

// quoteIdent double-quotes a Postgres identifier already checked against
// the physical schema — defense in depth, never the sole protection
// against injection.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// quoteQualifiedTable quotes schema and table as two separate
// identifiers, since the schema-qualified name dbconn.Client builds is
// not itself a single identifier.
func quoteQualifiedTable(schema, table string) string {
	if schema == "" {
		return quoteIdent(table)
	}
	return quoteIdent(schema) + "." + quoteIdent(table)
}
