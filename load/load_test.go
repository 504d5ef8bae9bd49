package load

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/go-quern/quern"
	"github.com/go-quern/quern/errors"
	"github.com/go-quern/quern/format"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// createTransformedFrame builds a small frame shaped like the transform
// stage's output, with the columns the built-in dimensions expect
func createTransformedFrame(t *testing.T) *quern.Frame {
	schema, err := quern.CreateSchema(
		quern.Column{Name: "transaction_id", Type: quern.StringType},
		quern.Column{Name: "store_id", Type: quern.StringType},
		quern.Column{Name: "store_name", Type: quern.StringType},
		quern.Column{Name: "region", Type: quern.StringType},
		quern.Column{Name: "product_id", Type: quern.StringType},
		quern.Column{Name: "product_name", Type: quern.StringType},
		quern.Column{Name: "category", Type: quern.StringType},
		quern.Column{Name: "year", Type: quern.IntType},
		quern.Column{Name: "month", Type: quern.IntType},
		quern.Column{Name: "day", Type: quern.IntType},
		quern.Column{Name: "weekday", Type: quern.IntType},
		quern.Column{Name: "revenue", Type: quern.FloatType},
		quern.Column{Name: "quantity", Type: quern.IntType},
		quern.Column{Name: "profit", Type: quern.FloatType},
		quern.Column{Name: "discount_amount", Type: quern.FloatType},
	)
	require.Nil(t, err)
	frame := quern.CreateFrame(schema)
	for i := 0; i < 30; i++ {
		store := i % 3
		product := i % 5
		require.Nil(t, frame.AppendRow(
			fmt.Sprintf("T%04d", i),
			fmt.Sprintf("S%02d", store),
			fmt.Sprintf("Store %d", store),
			"north",
			fmt.Sprintf("P%02d", product),
			fmt.Sprintf("Product %d", product),
			"electronics",
			int64(2024), int64(1+i%2), int64(1+i%28), int64(i%7),
			float64(100+i), int64(1+i%4), float64(30+i), float64(i),
		))
	}
	return frame
}

func TestProcessWritesNamedDimensionReport(t *testing.T) {
	pctx := quern.CreateContext()
	proc := CreateProcessor(pctx)
	frame := createTransformedFrame(t)
	path := filepath.Join(t.TempDir(), "store_report.csv")

	err := proc.Process(context.Background(), frame, Report{Dimension: "store", Filename: path}, nil)
	require.Nil(t, err)

	codec, err := format.Detect(path)
	require.Nil(t, err)
	report, err := codec.Read(path, nil)
	require.Nil(t, err)
	// 3 stores x 2 months
	require.Equal(t, 6, report.NumRows())
	for _, name := range []string{
		"store_id", "store_name", "region", "year", "month",
		"revenue", "quantity", "profit", "discount_amount", "transaction_count",
	} {
		require.True(t, report.Schema().HasColumn(name), "missing column %s", name)
	}
	require.False(t, report.Schema().HasColumn("transaction_id"))
	require.Equal(t, int64(1), pctx.Stats().FilesProcessed())
}

func TestProcessDateDimension(t *testing.T) {
	proc := CreateProcessor(quern.CreateContext())
	frame := createTransformedFrame(t)
	path := filepath.Join(t.TempDir(), "date_report.csv")

	require.Nil(t, proc.Process(context.Background(), frame, Report{Dimension: "date", Filename: path}, nil))
	codec, _ := format.Detect(path)
	report, err := codec.Read(path, nil)
	require.Nil(t, err)
	require.True(t, report.Schema().HasColumn("weekday"))
	require.True(t, report.Schema().HasColumn("transaction_count"))
}

func TestProcessGenericRecipe(t *testing.T) {
	pctx := quern.CreateContext()
	proc := CreateProcessor(pctx)
	frame := createTransformedFrame(t)
	path := filepath.Join(t.TempDir(), "custom_report.csv")

	err := proc.Process(context.Background(), frame, Report{
		Dimension: "custom",
		Filename:  path,
		GroupBy:   []string{"region"},
		Aggs:      map[string]quern.AggOp{"revenue": quern.Mean},
	}, nil)
	require.Nil(t, err)

	codec, _ := format.Detect(path)
	report, err := codec.Read(path, nil)
	require.Nil(t, err)
	require.Equal(t, 1, report.NumRows())
}

func TestProcessUnknownDimensionIsAggregationError(t *testing.T) {
	pctx := quern.CreateContext()
	proc := CreateProcessor(pctx)
	frame := createTransformedFrame(t)

	err := proc.Process(context.Background(), frame, Report{Dimension: "warehouse"}, nil)
	require.NotNil(t, err)
	require.Equal(t, "AggregationError", errors.Kind(err))
	require.Equal(t, int64(1), pctx.Stats().ErrorCounts()["AggregationError"])
}

func TestProcessPostProcessHook(t *testing.T) {
	proc := CreateProcessor(quern.CreateContext())
	frame := createTransformedFrame(t)
	path := filepath.Join(t.TempDir(), "hooked_report.csv")

	err := proc.Process(context.Background(), frame, Report{
		Dimension: "product",
		Filename:  path,
		PostProcess: func(f *quern.Frame) (*quern.Frame, error) {
			return f, f.Schema().RenameColumn("revenue", "total_revenue")
		},
	}, nil)
	require.Nil(t, err)

	codec, _ := format.Detect(path)
	report, err := codec.Read(path, nil)
	require.Nil(t, err)
	require.True(t, report.Schema().HasColumn("total_revenue"))
}

func TestProcessConcurrentLenientSuccessPolicy(t *testing.T) {
	pctx := quern.CreateContext()
	proc := CreateProcessor(pctx)
	frame := createTransformedFrame(t)
	dir := t.TempDir()

	results, err := proc.ProcessConcurrent(context.Background(), frame, []Report{
		{Dimension: "store", Filename: filepath.Join(dir, "store.csv")},
		{Dimension: "bogus"},
	}, &Options{OutputDir: dir})
	require.Nil(t, err)
	require.Equal(t, map[string]bool{"store": true, "bogus": false}, results)
	// overall stage success is "any report succeeded"
	require.True(t, AnySucceeded(results))

	allFailed, err := proc.ProcessConcurrent(context.Background(), frame, []Report{
		{Dimension: "bogus1"},
		{Dimension: "bogus2"},
	}, &Options{OutputDir: dir})
	require.Nil(t, err)
	require.False(t, AnySucceeded(allFailed))
}

func TestProcessConcurrentDefaultFilenames(t *testing.T) {
	proc := CreateProcessor(quern.CreateContext())
	frame := createTransformedFrame(t)
	dir := t.TempDir()

	results, err := proc.ProcessConcurrent(context.Background(), frame,
		[]Report{{Dimension: "store"}}, &Options{OutputDir: dir})
	require.Nil(t, err)
	require.True(t, results["store"])
	codec, _ := format.Detect("x.csv")
	report, err := codec.Read(filepath.Join(dir, "store_report.csv"), nil)
	require.Nil(t, err)
	require.False(t, report.IsEmpty())
}

func TestPerReportParamsOverrideGlobals(t *testing.T) {
	proc := CreateProcessor(quern.CreateContext())
	frame := createTransformedFrame(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "semicolon.csv")

	err := proc.Process(context.Background(), frame, Report{
		Dimension:   "store",
		Filename:    path,
		WriteParams: format.Params{"delimiter": ";"},
	}, &Options{WriteParams: format.Params{"delimiter": ","}})
	require.Nil(t, err)

	codec, _ := format.Detect(path)
	report, err := codec.Read(path, format.Params{"delimiter": ";"})
	require.Nil(t, err)
	require.True(t, report.Schema().HasColumn("store_id"))
}

func TestProcessNeverPanics(t *testing.T) {
	proc := CreateProcessor(quern.CreateContext())
	frame := createTransformedFrame(t)
	// unwritable path: the error is handled, logged and returned
	err := proc.Process(context.Background(), frame, Report{
		Dimension: "store",
		Filename:  filepath.Join(t.TempDir(), "no_such_dir", "store.csv"),
	}, nil)
	require.NotNil(t, err)
	require.Equal(t, "WriteError", errors.Kind(err))
}
