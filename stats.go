package quern

import (
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Stats accumulates throughput counters and per-kind error counts for one
// pipeline run. Counter fields use atomic operations for safe concurrent
// access from worker goroutines; the error-kind map is guarded by a mutex.
// Transform partition workers never touch Stats directly - they relay
// Diagnostics back to the parent, which folds the error kind in here.
type Stats struct {
	filesProcessed atomic.Int64
	rowsProcessed  atomic.Int64

	mu          sync.Mutex
	errorCounts map[string]int64
}

// CreateStats is a factory for Stats sinks
func CreateStats() *Stats {
	return &Stats{errorCounts: make(map[string]int64)}
}

// FileProcessed records the successful processing of one file or output
// target containing the given number of rows
func (s *Stats) FileProcessed(path string, rows int) {
	s.filesProcessed.Add(1)
	s.rowsProcessed.Add(int64(rows))
}

// RowsProcessed records rows handled outside of a per-file boundary
func (s *Stats) RowsProcessed(rows int) {
	s.rowsProcessed.Add(int64(rows))
}

// RecordError increments the counter for the given error kind
func (s *Stats) RecordError(kind string) {
	if kind == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCounts[kind]++
}

// Reset zeroes all counters. Called once at the start of each orchestrator run.
func (s *Stats) Reset() {
	s.filesProcessed.Store(0)
	s.rowsProcessed.Store(0)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCounts = make(map[string]int64)
}

// FilesProcessed returns the number of files processed so far
func (s *Stats) FilesProcessed() int64 {
	return s.filesProcessed.Load()
}

// NumRowsProcessed returns the number of rows processed so far
func (s *Stats) NumRowsProcessed() int64 {
	return s.rowsProcessed.Load()
}

// ErrorCounts returns a snapshot of the per-kind error counters
func (s *Stats) ErrorCounts() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]int64, len(s.errorCounts))
	for kind, count := range s.errorCounts {
		snapshot[kind] = count
	}
	return snapshot
}

// TotalErrors returns the total number of errors recorded across all kinds
func (s *Stats) TotalErrors() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, count := range s.errorCounts {
		total += count
	}
	return total
}

// Fields renders a snapshot of this Stats as zap logging fields
func (s *Stats) Fields() []zap.Field {
	counts := s.ErrorCounts()
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	fields := []zap.Field{
		zap.Int64("files_processed", s.filesProcessed.Load()),
		zap.Int64("rows_processed", s.rowsProcessed.Load()),
	}
	for _, kind := range kinds {
		fields = append(fields, zap.Int64("errors_"+kind, counts[kind]))
	}
	return fields
}
