// Package datagen produces synthetic sales days and accounting voucher books
// for examples and tests. Generators are deterministic under a fixed seed.
package datagen

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/go-quern/quern"
	"github.com/go-quern/quern/format"
)

var (
	regions    = []string{"north", "south", "east", "west"}
	categories = []string{"electronics", "apparel", "grocery", "home", "sports"}
)

// SalesGenerator writes one CSV of sales transactions per day, named
// sales_YYYYMMDD.csv, with the columns the default transform strategy and
// the built-in report dimensions consume.
type SalesGenerator struct {
	// Days is the number of daily files to generate. Defaults to 3.
	Days int
	// Stores is the number of distinct stores. Defaults to 4.
	Stores int
	// RowsPerDay is the number of transactions per daily file. Defaults to 100.
	RowsPerDay int
	// Start is the date of the first file. Defaults to 2024-01-01.
	Start time.Time
	// Seed fixes the generated data. Defaults to 1.
	Seed int64
}

func (g *SalesGenerator) defaults() SalesGenerator {
	out := *g
	if out.Days < 1 {
		out.Days = 3
	}
	if out.Stores < 1 {
		out.Stores = 4
	}
	if out.RowsPerDay < 1 {
		out.RowsPerDay = 100
	}
	if out.Start.IsZero() {
		out.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if out.Seed == 0 {
		out.Seed = 1
	}
	return out
}

// SalesSchema returns the schema of generated sales Frames
func SalesSchema() (*quern.Schema, error) {
	return quern.CreateSchema(
		quern.Column{Name: "transaction_id", Type: quern.StringType},
		quern.Column{Name: "date", Type: quern.TimeType},
		quern.Column{Name: "store_id", Type: quern.StringType},
		quern.Column{Name: "store_name", Type: quern.StringType},
		quern.Column{Name: "region", Type: quern.StringType},
		quern.Column{Name: "product_id", Type: quern.StringType},
		quern.Column{Name: "product_name", Type: quern.StringType},
		quern.Column{Name: "category", Type: quern.StringType},
		quern.Column{Name: "quantity", Type: quern.IntType},
		quern.Column{Name: "unit_price", Type: quern.FloatType},
		quern.Column{Name: "discount", Type: quern.FloatType},
		quern.Column{Name: "total_price", Type: quern.FloatType},
	)
}

// Day generates the Frame for one day offset from Start
func (g *SalesGenerator) Day(day int) (*quern.Frame, error) {
	conf := g.defaults()
	schema, err := SalesSchema()
	if err != nil {
		return nil, err
	}
	frame := quern.CreateFrame(schema)
	rng := rand.New(rand.NewSource(conf.Seed + int64(day)))
	date := conf.Start.AddDate(0, 0, day)
	for i := 0; i < conf.RowsPerDay; i++ {
		store := rng.Intn(conf.Stores)
		product := rng.Intn(50)
		quantity := int64(rng.Intn(10) + 1)
		unitPrice := math.Round(rng.Float64()*20000*100) / 100
		discount := math.Round(rng.Float64()*0.3*100) / 100
		totalPrice := math.Round(float64(quantity)*unitPrice*(1-discount)*100) / 100
		err := frame.AppendRow(
			fmt.Sprintf("T%s%06d", date.Format("20060102"), i),
			date,
			fmt.Sprintf("S%03d", store),
			fmt.Sprintf("Store %d", store),
			regions[store%len(regions)],
			fmt.Sprintf("P%04d", product),
			fmt.Sprintf("Product %d", product),
			categories[product%len(categories)],
			quantity,
			unitPrice,
			discount,
			totalPrice,
		)
		if err != nil {
			return nil, err
		}
	}
	return frame, nil
}

// Generate writes the daily sales files into dir and returns their paths
func (g *SalesGenerator) Generate(dir string) ([]string, error) {
	conf := g.defaults()
	codec, err := format.Detect("sales.csv")
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, conf.Days)
	for day := 0; day < conf.Days; day++ {
		frame, err := conf.Day(day)
		if err != nil {
			return nil, err
		}
		date := conf.Start.AddDate(0, 0, day)
		path := filepath.Join(dir, fmt.Sprintf("sales_%s.csv", date.Format("20060102")))
		if err := codec.Write(frame, path, codec.Defaults()); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
