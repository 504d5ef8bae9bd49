package quern

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatsConcurrentWriters(t *testing.T) {
	stats := CreateStats()
	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		worker := worker
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				stats.FileProcessed(fmt.Sprintf("file_%d_%d.csv", worker, i), 10)
				if i%10 == 0 {
					stats.RecordError("ExtractError")
				}
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(800), stats.FilesProcessed())
	require.Equal(t, int64(8000), stats.NumRowsProcessed())
	require.Equal(t, int64(80), stats.ErrorCounts()["ExtractError"])
	require.Equal(t, int64(80), stats.TotalErrors())
}

func TestStatsReset(t *testing.T) {
	stats := CreateStats()
	stats.FileProcessed("a.csv", 5)
	stats.RecordError("WriteError")
	stats.Reset()
	require.Equal(t, int64(0), stats.FilesProcessed())
	require.Equal(t, int64(0), stats.NumRowsProcessed())
	require.Empty(t, stats.ErrorCounts())
}

func TestStatsIgnoresEmptyErrorKind(t *testing.T) {
	stats := CreateStats()
	stats.RecordError("")
	require.Equal(t, int64(0), stats.TotalErrors())
}

func TestStatsSnapshotIsACopy(t *testing.T) {
	stats := CreateStats()
	stats.RecordError("TransformError")
	snapshot := stats.ErrorCounts()
	snapshot["TransformError"] = 99
	require.Equal(t, int64(1), stats.ErrorCounts()["TransformError"])
}

func TestStatsFieldsAreDeterministic(t *testing.T) {
	stats := CreateStats()
	stats.FileProcessed("a.csv", 3)
	stats.RecordError("WriteError")
	stats.RecordError("ExtractError")
	fields := stats.Fields()
	require.Len(t, fields, 4)
	require.Equal(t, "files_processed", fields[0].Key)
	require.Equal(t, "rows_processed", fields[1].Key)
	// error kinds sorted by name
	require.Equal(t, "errors_ExtractError", fields[2].Key)
	require.Equal(t, "errors_WriteError", fields[3].Key)
}
