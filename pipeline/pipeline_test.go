package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/go-quern/quern"
	"github.com/go-quern/quern/datagen"
	"github.com/go-quern/quern/extract"
	"github.com/go-quern/quern/format"
	"github.com/go-quern/quern/load"
	"github.com/go-quern/quern/logging"
	"github.com/go-quern/quern/output"
)

// salesExtract parses the date column as a timestamp, which the default
// transform strategy requires
func salesExtract() *extract.Options {
	return &extract.Options{ReadParams: format.Params{"parse_dates": []string{"date"}}}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestProcessingModeString(t *testing.T) {
	require.Equal(t, "concurrent", Concurrent.String())
	require.Equal(t, "sequential", Sequential.String())
	require.Equal(t, "ProcessingMode(42)", ProcessingMode(42).String())
}

func generateSales(t *testing.T, dir string, days int) []string {
	gen := datagen.SalesGenerator{Days: days, RowsPerDay: 25}
	paths, err := gen.Generate(dir)
	require.Nil(t, err)
	return paths
}

func readReport(t *testing.T, path string) *quern.Frame {
	codec, err := format.Detect(path)
	require.Nil(t, err)
	frame, err := codec.Read(path, nil)
	require.Nil(t, err)
	return frame
}

// sumColumn totals a numeric column regardless of whether CSV inference
// read it back as integer or float
func sumColumn(t *testing.T, frame *quern.Frame, name string) float64 {
	var total float64
	if values, err := frame.Floats(name); err == nil {
		for _, v := range values {
			total += v
		}
		return total
	}
	values, err := frame.Ints(name)
	require.Nil(t, err)
	for _, v := range values {
		total += float64(v)
	}
	return total
}

func TestRunEndToEnd(t *testing.T) {
	dataDir := t.TempDir()
	outDir := t.TempDir()
	generateSales(t, dataDir, 2)
	log, err := logging.New(logging.Config{Level: "error"})
	require.Nil(t, err)
	orch := CreateOrchestrator(quern.CreateContext(quern.WithLogger(log)))

	err = orch.Run(context.Background(), RunConfig{
		DataDir:         dataDir,
		OutputDir:       outDir,
		Extract:         salesExtract(),
		SaveTransformed: true,
	})
	require.Nil(t, err)

	for _, dimension := range []string{"store", "product", "date"} {
		report := readReport(t, filepath.Join(outDir, dimension+"_report.csv"))
		require.True(t, report.NumRows() > 0, "empty %s report", dimension)
		require.True(t, report.Schema().HasColumn("revenue"))
	}
	_, err = os.Stat(filepath.Join(outDir, "transformed.pkl"))
	require.Nil(t, err)
	require.Equal(t, int64(0), orch.Stats().TotalErrors())
	require.True(t, orch.Stats().NumRowsProcessed() >= 50)
}

func TestRunSequentialMatchesConcurrentReports(t *testing.T) {
	dataDir := t.TempDir()
	generateSales(t, dataDir, 2)

	outDirs := map[ProcessingMode]string{
		Concurrent: t.TempDir(),
		Sequential: t.TempDir(),
	}
	for mode, outDir := range outDirs {
		orch := CreateOrchestrator(quern.CreateContext())
		require.Nil(t, orch.Run(context.Background(), RunConfig{
			DataDir:   dataDir,
			OutputDir: outDir,
			Extract:   salesExtract(),
			Mode:      mode,
		}))
	}

	// profit columns are synthetic, so compare the deterministic aggregates
	concurrent := readReport(t, filepath.Join(outDirs[Concurrent], "store_report.csv"))
	sequential := readReport(t, filepath.Join(outDirs[Sequential], "store_report.csv"))
	require.Equal(t, concurrent.NumRows(), sequential.NumRows())
	require.InDelta(t, sumColumn(t, concurrent, "revenue"), sumColumn(t, sequential, "revenue"), 0.001)
	require.InDelta(t, sumColumn(t, concurrent, "quantity"), sumColumn(t, sequential, "quantity"), 0.001)
}

func TestRunFailsWithoutSources(t *testing.T) {
	orch := CreateOrchestrator(quern.CreateContext())
	err := orch.Run(context.Background(), RunConfig{
		DataDir:   t.TempDir(),
		OutputDir: t.TempDir(),
	})
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "No sources matched")
}

func TestRunExplicitSourcesBypassGlob(t *testing.T) {
	dataDir := t.TempDir()
	paths := generateSales(t, dataDir, 2)
	outDir := t.TempDir()
	orch := CreateOrchestrator(quern.CreateContext())

	err := orch.Run(context.Background(), RunConfig{
		Sources:   paths[:1],
		OutputDir: outDir,
		Extract:   salesExtract(),
		Reports:   []load.Report{{Dimension: "date"}},
	})
	require.Nil(t, err)

	report := readReport(t, filepath.Join(outDir, "date_report.csv"))
	// one generated day groups to a single calendar row
	require.Equal(t, 1, report.NumRows())
}

func TestOutputRunWritesTargets(t *testing.T) {
	dataDir := t.TempDir()
	outDir := t.TempDir()
	generateSales(t, dataDir, 1)
	orch := CreateOutputOrchestrator(quern.CreateContext())

	err := orch.Run(context.Background(), OutputRunConfig{
		RunConfig: RunConfig{DataDir: dataDir, OutputDir: outDir, Extract: salesExtract()},
		Outputs: []output.Spec{
			{Filename: filepath.Join(outDir, "full.csv")},
			{Filename: filepath.Join(outDir, "full.json")},
		},
		SkipLoad: true,
	})
	require.Nil(t, err)

	full := readReport(t, filepath.Join(outDir, "full.csv"))
	require.Equal(t, 25, full.NumRows())
	require.True(t, full.Schema().HasColumn("price_category"))
	_, err = os.Stat(filepath.Join(outDir, "full.json"))
	require.Nil(t, err)
}

func TestOutputRunSkipTransformKeepsRawColumns(t *testing.T) {
	dataDir := t.TempDir()
	outDir := t.TempDir()
	generateSales(t, dataDir, 1)
	orch := CreateOutputOrchestrator(quern.CreateContext())

	err := orch.Run(context.Background(), OutputRunConfig{
		RunConfig:     RunConfig{DataDir: dataDir, OutputDir: outDir},
		Outputs:       []output.Spec{{Filename: filepath.Join(outDir, "raw.csv")}},
		SkipTransform: true,
		SkipLoad:      true,
	})
	require.Nil(t, err)

	raw := readReport(t, filepath.Join(outDir, "raw.csv"))
	require.True(t, raw.Schema().HasColumn("total_price"))
	require.False(t, raw.Schema().HasColumn("revenue"))
}

func TestOutputRunContinuesPastFailedLoad(t *testing.T) {
	dataDir := t.TempDir()
	outDir := t.TempDir()
	generateSales(t, dataDir, 1)
	orch := CreateOutputOrchestrator(quern.CreateContext())

	// every report fails, but the output stage still runs to completion
	err := orch.Run(context.Background(), OutputRunConfig{
		RunConfig: RunConfig{
			DataDir:   dataDir,
			OutputDir: outDir,
			Extract:   salesExtract(),
			Reports:   []load.Report{{Dimension: "no_such_dimension"}},
		},
		Outputs: []output.Spec{{Filename: filepath.Join(outDir, "survivor.csv")}},
	})
	require.Nil(t, err)
	_, err = os.Stat(filepath.Join(outDir, "survivor.csv"))
	require.Nil(t, err)
	require.Equal(t, int64(1), orch.Stats().ErrorCounts()["AggregationError"])
}

func TestOutputRunSkipsAllOptionalStages(t *testing.T) {
	dataDir := t.TempDir()
	generateSales(t, dataDir, 1)
	orch := CreateOutputOrchestrator(quern.CreateContext())

	err := orch.Run(context.Background(), OutputRunConfig{
		RunConfig:     RunConfig{DataDir: dataDir, OutputDir: t.TempDir()},
		SkipTransform: true,
		SkipLoad:      true,
		SkipOutput:    true,
	})
	require.Nil(t, err)
}

func TestOutputRunSequentialDefaultFilenames(t *testing.T) {
	dataDir := t.TempDir()
	outDir := t.TempDir()
	generateSales(t, dataDir, 1)
	orch := CreateOutputOrchestrator(quern.CreateContext())

	err := orch.Run(context.Background(), OutputRunConfig{
		RunConfig: RunConfig{DataDir: dataDir, OutputDir: outDir, Extract: salesExtract(), Mode: Sequential},
		Outputs:   []output.Spec{{}, {}},
		SkipLoad:  true,
	})
	require.Nil(t, err)
	for i := 0; i < 2; i++ {
		_, err := os.Stat(defaultOutputFilename(outDir, i))
		require.Nil(t, err)
	}
}
