// Package catalog turns browsing filters into queries over the product collection.
package catalog

import (
	"github.com/fjod/go_storefront/internal/domain"
)

type Field string

const (
	FieldID         Field = "id"
	FieldCategory   Field = "category"
	FieldColors     Field = "colors"
	FieldSizes      Field = "sizes"
	FieldFinalPrice Field = "final_price"
	FieldOnSale     Field = "on_sale"
	FieldCreatedAt  Field = "created_at"
)

type Op string

const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpContains Op = "contains"
	OpGte      Op = "gte"
	OpLte      Op = "lte"
)

// Predicate is one condition of a query. Contains tests membership of Value in a list field.
type Predicate struct {
	Field Field
	Op    Op
	Value any
}

type Order struct {
	Field      Field
	Descending bool
}

// Query is a conjunction of predicates with exactly one order. Limit 0 means unlimited.
type Query struct {
	Predicates []Predicate
	Order      Order
	Limit      int
}

// RelatedLimit caps the "more like this" strip on the product page.
const RelatedLimit = 20

var newestFirst = Order{Field: FieldCreatedAt, Descending: true}

func NewQuery() Query {
	return Query{Order: newestFirst}
}

func (q Query) Where(field Field, op Op, value any) Query {
	preds := make([]Predicate, len(q.Predicates), len(q.Predicates)+1)
	copy(preds, q.Predicates)
	q.Predicates = append(preds, Predicate{Field: field, Op: op, Value: value})
	return q
}

func (q Query) OrderBy(field Field, descending bool) Query {
	q.Order = Order{Field: field, Descending: descending}
	return q
}

func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// BuildQuery translates a filter set into a collection query.
// An empty filter yields an unfiltered, newest-first query.
func BuildQuery(f domain.Filter) Query {
	f = f.Normalize()
	q := NewQuery()

	if f.Category != "" {
		q = q.Where(FieldCategory, OpEq, string(f.Category))
	}
	if f.Color != "" {
		q = q.Where(FieldColors, OpContains, f.Color)
	}
	if f.Size != "" {
		q = q.Where(FieldSizes, OpContains, f.Size)
	}
	if !f.PriceMin.IsZero() || !f.PriceMax.IsZero() {
		q = q.Where(FieldFinalPrice, OpGte, f.PriceMin).
			Where(FieldFinalPrice, OpLte, f.PriceMax)
	}
	if f.OnSaleOnly {
		q = q.Where(FieldOnSale, OpEq, true)
	}

	switch f.Sort {
	case domain.SortPriceAsc:
		q = q.OrderBy(FieldFinalPrice, false)
	case domain.SortPriceDesc:
		q = q.OrderBy(FieldFinalPrice, true)
	default:
		q = q.OrderBy(FieldCreatedAt, true)
	}
	return q
}

// RelatedQuery selects other products of the same category.
func RelatedQuery(p *domain.Product) Query {
	return NewQuery().
		Where(FieldCategory, OpEq, string(p.Category)).
		Where(FieldID, OpNeq, p.ID).
		WithLimit(RelatedLimit)
}

// ByIDQuery selects a single product.
func ByIDQuery(id string) Query {
	return NewQuery().Where(FieldID, OpEq, id).WithLimit(1)
}
