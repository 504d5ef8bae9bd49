package load

import "github.com/go-quern/quern"

// A Dimension is a named aggregation recipe: the group-by column set, the
// per-column aggregation map, and any renames applied to the aggregated
// result.
type Dimension struct {
	GroupBy []string
	Aggs    map[string]quern.AggOp
	Renames map[string]string
}

// namedDimensions are the built-in aggregation recipes for sales reporting
var namedDimensions = map[string]Dimension{
	"store": {
		GroupBy: []string{"store_id", "store_name", "region", "year", "month"},
		Aggs: map[string]quern.AggOp{
			"revenue":         quern.Sum,
			"quantity":        quern.Sum,
			"profit":          quern.Sum,
			"discount_amount": quern.Sum,
			"transaction_id":  quern.Nunique,
		},
		Renames: map[string]string{"transaction_id": "transaction_count"},
	},
	"product": {
		GroupBy: []string{"product_id", "product_name", "category", "year", "month"},
		Aggs: map[string]quern.AggOp{
			"revenue":         quern.Sum,
			"quantity":        quern.Sum,
			"profit":          quern.Sum,
			"discount_amount": quern.Sum,
		},
	},
	"date": {
		GroupBy: []string{"year", "month", "day", "weekday"},
		Aggs: map[string]quern.AggOp{
			"revenue":         quern.Sum,
			"quantity":        quern.Sum,
			"profit":          quern.Sum,
			"discount_amount": quern.Sum,
			"transaction_id":  quern.Nunique,
		},
		Renames: map[string]string{"transaction_id": "transaction_count"},
	},
}

// NamedDimension returns the built-in recipe with the given name
func NamedDimension(name string) (Dimension, bool) {
	dim, ok := namedDimensions[name]
	return dim, ok
}
