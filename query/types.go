package query

import (
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

// FilterStrategy adds WHERE conditions to a catalogue query
type FilterStrategy interface {
	// ApplyFilter adds filter conditions to the query builder
	ApplyFilter(sb *sqlbuilder.SelectBuilder)
}

// BudgetFilter keeps sofas whose discounted price fits the budget
type BudgetFilter struct {
	Max float64
}

func (f *BudgetFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	sb.Where(sb.LessEqualThan("original_price", f.Max))
}

// NameFilter keeps sofas whose name contains the search term, ignoring case
type NameFilter struct {
	Term string
}

func (f *NameFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	term := strings.TrimSpace(f.Term)
	if term == "" {
		return
	}
	// Escape LIKE wildcards so the term is matched literally
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(term))
	sb.Where("LOWER(name) LIKE " + sb.Args.Add("%"+escaped+"%") + ` ESCAPE '\'`)
}

// InStockFilter hides sofas that are sold out
type InStockFilter struct{}

func (f *InStockFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	sb.Where(sb.GreaterThan("quantity", 0))
}

// Apply runs every filter on the builder
func Apply(sb *sqlbuilder.SelectBuilder, filters ...FilterStrategy) {
	for _, filter := range filters {
		filter.ApplyFilter(sb)
	}
}

var _ FilterStrategy = (*BudgetFilter)(nil)
var _ FilterStrategy = (*NameFilter)(nil)
var _ FilterStrategy = (*InStockFilter)(nil)
