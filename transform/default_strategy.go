package transform

import (
	"math/rand"

	"github.com/go-quern/quern"
	"github.com/go-quern/quern/errors"
)

// Default bucketing of unit prices into categories. Bins are right-closed:
// a price p falls into bin i when bins[i] < p <= bins[i+1].
var (
	// DefaultPriceBins are the default unit-price bucket edges
	DefaultPriceBins = []float64{0, 1000, 5000, 10000, 50000}
	// DefaultPriceLabels are the default unit-price bucket labels
	DefaultPriceLabels = []string{"very_low", "low", "medium", "high", "very_high"}
)

// marginLow and marginHigh bound the synthetic profit margin
const (
	marginLow  = 0.15
	marginHigh = 0.45
)

// DefaultStrategy derives sales reporting columns: calendar fields from the
// date column, revenue, discount amount, a synthetic profit margin and
// profit, and a price category bucketing of the unit price. All derivations
// are row-local, so partitioned application recombines to the same row-set
// as whole-Frame application (profit margins excepted, being synthetic).
type DefaultStrategy struct{}

// Name identifies this Strategy in diagnostics and registries
func (s *DefaultStrategy) Name() string { return "default" }

// Transform derives the sales reporting columns
func (s *DefaultStrategy) Transform(frame *quern.Frame, opts *Options) (*quern.Frame, error) {
	out := frame.Clone()
	if err := addCalendarColumns(out, "date"); err != nil {
		return nil, err
	}

	totals, err := floatColumn(out, "total_price")
	if err != nil {
		return nil, err
	}
	quantities, err := floatColumn(out, "quantity")
	if err != nil {
		return nil, err
	}
	unitPrices, err := floatColumn(out, "unit_price")
	if err != nil {
		return nil, err
	}
	discounts, err := floatColumn(out, "discount")
	if err != nil {
		return nil, err
	}

	n := out.NumRows()
	revenue := make([]float64, n)
	discountAmount := make([]float64, n)
	margin := make([]float64, n)
	profit := make([]float64, n)
	rng := rand.New(rand.NewSource(opts.seed()))
	for i := 0; i < n; i++ {
		revenue[i] = totals[i]
		discountAmount[i] = quantities[i] * unitPrices[i] * discounts[i]
		margin[i] = marginLow + rng.Float64()*(marginHigh-marginLow)
		profit[i] = revenue[i] * margin[i]
	}
	categories, err := bucketPrices(unitPrices, opts.priceBins(), opts.priceLabels())
	if err != nil {
		return nil, err
	}

	newCols := []struct {
		col    quern.Column
		values interface{}
	}{
		{quern.Column{Name: "revenue", Type: quern.FloatType}, revenue},
		{quern.Column{Name: "discount_amount", Type: quern.FloatType}, discountAmount},
		{quern.Column{Name: "profit_margin", Type: quern.FloatType}, margin},
		{quern.Column{Name: "profit", Type: quern.FloatType}, profit},
		{quern.Column{Name: "price_category", Type: quern.StringType}, categories},
	}
	for _, c := range newCols {
		if err := out.AddColumn(c.col, c.values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// bucketPrices assigns each price a label from right-closed bins. Prices
// outside every bin, including those at or below the first edge, receive an
// empty label. The final bin is unbounded above.
func bucketPrices(prices []float64, bins []float64, labels []string) ([]string, error) {
	if len(labels) != len(bins) {
		return nil, errors.ConfigError{
			Field:  "price_labels",
			Reason: "label count must equal bin count (one label per right-closed bin, last bin unbounded)",
		}
	}
	if len(bins) == 0 {
		return nil, errors.ConfigError{Field: "price_bins", Reason: "at least one bin edge is required"}
	}
	out := make([]string, len(prices))
	for i, price := range prices {
		if price <= bins[0] {
			continue
		}
		label := labels[len(labels)-1]
		for b := 1; b < len(bins); b++ {
			if price <= bins[b] {
				label = labels[b-1]
				break
			}
		}
		out[i] = label
	}
	return out, nil
}
