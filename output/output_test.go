package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/go-quern/quern"
	"github.com/go-quern/quern/errors"
	"github.com/go-quern/quern/format"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func createOutputFrame(t *testing.T, rows int) *quern.Frame {
	schema, err := quern.CreateSchema(
		quern.Column{Name: "transaction_id", Type: quern.StringType},
		quern.Column{Name: "amount", Type: quern.FloatType},
	)
	require.Nil(t, err)
	frame := quern.CreateFrame(schema)
	for i := 0; i < rows; i++ {
		require.Nil(t, frame.AppendRow(fmt.Sprintf("T%04d", i), float64(i)*2.5))
	}
	return frame
}

func TestProcessRequiresFilename(t *testing.T) {
	pctx := quern.CreateContext()
	proc := CreateProcessor(pctx)
	err := proc.Process(context.Background(), createOutputFrame(t, 1), Spec{}, nil)
	require.NotNil(t, err)
	require.Equal(t, "ConfigError", errors.Kind(err))
	require.Equal(t, int64(1), pctx.Stats().ErrorCounts()["ConfigError"])
}

func TestProcessWritesAndRecordsStats(t *testing.T) {
	pctx := quern.CreateContext()
	proc := CreateProcessor(pctx)
	frame := createOutputFrame(t, 7)
	path := filepath.Join(t.TempDir(), "out.csv")

	require.Nil(t, proc.Process(context.Background(), frame, Spec{Filename: path}, nil))
	require.Equal(t, int64(1), pctx.Stats().FilesProcessed())
	require.Equal(t, int64(7), pctx.Stats().NumRowsProcessed())

	codec, err := format.Detect(path)
	require.Nil(t, err)
	read, err := codec.Read(path, nil)
	require.Nil(t, err)
	require.Equal(t, 7, read.NumRows())
	// tabular writers omit the row index unless asked
	require.False(t, read.Schema().HasColumn("index"))
}

func TestProcessParameterLayering(t *testing.T) {
	proc := CreateProcessor(quern.CreateContext())
	frame := createOutputFrame(t, 3)
	dir := t.TempDir()

	// each layer overrides the previous: defaults < common < format < spec
	path := filepath.Join(dir, "layered.csv")
	err := proc.Process(context.Background(), frame, Spec{
		Filename: path,
		Params:   format.Params{"delimiter": "|"},
	}, &Options{
		CommonParams: format.Params{"delimiter": ",", "index": true},
		FormatParams: map[string]format.Params{"dsv": {"delimiter": ";"}},
	})
	require.Nil(t, err)
	codec, _ := format.Detect(path)
	read, err := codec.Read(path, format.Params{"delimiter": "|"})
	require.Nil(t, err)
	require.True(t, read.Schema().HasColumn("transaction_id"))
	// index:true from CommonParams survives (no higher layer overrides it)
	require.True(t, read.Schema().HasColumn("index"))

	// format layer wins when the spec layer is silent
	path2 := filepath.Join(dir, "format_wins.csv")
	err = proc.Process(context.Background(), frame, Spec{Filename: path2}, &Options{
		CommonParams: format.Params{"delimiter": ","},
		FormatParams: map[string]format.Params{"dsv": {"delimiter": ";"}},
	})
	require.Nil(t, err)
	raw, err := os.ReadFile(path2)
	require.Nil(t, err)
	require.Contains(t, string(raw), "transaction_id;amount")
}

func TestProcessUnsupportedFormatNeverPanics(t *testing.T) {
	pctx := quern.CreateContext()
	proc := CreateProcessor(pctx)
	err := proc.Process(context.Background(), createOutputFrame(t, 1), Spec{Filename: "out.unsupported"}, nil)
	require.NotNil(t, err)
	require.Equal(t, "UnsupportedFormatError", errors.Kind(err))
}

func TestProcessConcurrentWritesMultipleFormats(t *testing.T) {
	pctx := quern.CreateContext()
	proc := CreateProcessor(pctx)
	frame := createOutputFrame(t, 5)
	dir := t.TempDir()
	specs := []Spec{
		{Filename: filepath.Join(dir, "out.csv")},
		{Filename: filepath.Join(dir, "out.json")},
		{Filename: filepath.Join(dir, "out.pkl")},
	}

	results, err := proc.ProcessConcurrent(context.Background(), frame, specs, nil)
	require.Nil(t, err)
	require.Len(t, results, 3)
	for filename, ok := range results {
		require.True(t, ok, "output %s failed", filename)
	}
	require.True(t, AnySucceeded(results))
}

func TestProcessConcurrentGeneratesDefaultFilenames(t *testing.T) {
	proc := CreateProcessor(quern.CreateContext())
	frame := createOutputFrame(t, 2)
	dir := t.TempDir()

	results, err := proc.ProcessConcurrent(context.Background(), frame,
		[]Spec{{}, {}}, &Options{OutputDir: dir})
	require.Nil(t, err)
	require.True(t, results[filepath.Join(dir, "output_0.csv")])
	require.True(t, results[filepath.Join(dir, "output_1.csv")])
}

func TestProcessConcurrentLenientSuccessPolicy(t *testing.T) {
	proc := CreateProcessor(quern.CreateContext())
	frame := createOutputFrame(t, 2)
	dir := t.TempDir()

	results, err := proc.ProcessConcurrent(context.Background(), frame, []Spec{
		{Filename: filepath.Join(dir, "good.csv")},
		{Filename: filepath.Join(dir, "bad.unsupported")},
	}, nil)
	require.Nil(t, err)
	require.True(t, results[filepath.Join(dir, "good.csv")])
	require.False(t, results[filepath.Join(dir, "bad.unsupported")])
	require.True(t, AnySucceeded(results))
}

func TestWritesToSamePathSerialize(t *testing.T) {
	pctx := quern.CreateContext()
	proc := CreateProcessor(pctx)
	frame := createOutputFrame(t, 3)
	path := filepath.Join(t.TempDir(), "contested.csv")

	// holding the path's lock must block a write to the same path
	lock := pctx.PathLock(path)
	lock.Lock()
	done := make(chan error, 1)
	go func() {
		done <- proc.Process(context.Background(), frame, Spec{Filename: path}, nil)
	}()
	select {
	case <-done:
		t.Fatal("write to a locked path completed without the lock")
	case <-time.After(50 * time.Millisecond):
	}
	lock.Unlock()
	require.Nil(t, <-done)
}

func TestWritesToDistinctPathsDoNotSerialize(t *testing.T) {
	pctx := quern.CreateContext()
	proc := CreateProcessor(pctx)
	frame := createOutputFrame(t, 3)
	dir := t.TempDir()

	// holding one path's lock must not block writes to a different path
	lock := pctx.PathLock(filepath.Join(dir, "held.csv"))
	lock.Lock()
	defer lock.Unlock()
	done := make(chan error, 1)
	go func() {
		done <- proc.Process(context.Background(), frame, Spec{Filename: filepath.Join(dir, "free.csv")}, nil)
	}()
	select {
	case err := <-done:
		require.Nil(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("write to an unrelated path blocked on a foreign lock")
	}
}
