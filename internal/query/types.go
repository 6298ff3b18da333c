// Package query turns a validated, attribute-named predicate/aggregation
// request into a parameterized SQL statement against the indexed tables,
// whitelisting every identifier against the physical column list from
// pkg/schema and binding every value through pgx. Visibility is checked
// for the entity only: an attribute hidden by an override is not
// rejected.
package query

import "fmt"

// Operator is a predicate comparison, restricted to the set the engine
// knows how to render and validate per schema.DataType.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNeq     Operator = "neq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpIn      Operator = "in"
	OpLike    Operator = "like"
	OpIsNull  Operator = "isNull"
	OpNotNull Operator = "notNull"
)

// Predicate filters rows on one attribute.
type Predicate struct {
	Attribute string
	Operator  Operator
	Value     any
}

// Aggregation applies one reducer to an attribute, or counts rows when
// Attribute is empty.
type Aggregation struct {
	Function  string // "count", "sum", "avg", "min", "max"
	Attribute string
	Alias     string
}

// SortDirection orders a result set by one attribute.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// OrderBy sorts the result set.
type OrderBy struct {
	Attribute string
	Direction SortDirection
}

// Query is the validated request shape AttributeQueryEngine accepts,
// scoped to one entity path by the caller.
type Query struct {
	Select      []string
	Predicates  []Predicate
	Aggregations []Aggregation
	GroupBy     []string
	OrderBy     []OrderBy
	Limit       int
	Offset      int
}

// ValidationError reports a query referencing an unknown attribute or
// using an operator incompatible with the attribute's physical type —
// spec's QueryValidationError, rendered as HTTP 400 by the API layer.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("query: %s", e.Reason)
}
