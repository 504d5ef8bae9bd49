// Package pipeline sequences the extract, transform, load and output stages
// into complete runs with partial-failure tolerance. Each stage is a
// synchronization barrier: every submitted unit of work finishes, with
// success or failure, before the next stage begins. There is no early
// cancellation or per-unit timeout, so a hung unit stalls its stage.
package pipeline

import "fmt"

// ProcessingMode selects how a stage dispatches its units of work
type ProcessingMode int

const (
	// Concurrent dispatches stage units across worker pools
	Concurrent ProcessingMode = iota
	// Sequential runs stage units one at a time in submission order,
	// fail-fast. Intended for correctness comparison and fallback, not
	// performance.
	Sequential
)

// String returns the name of this ProcessingMode
func (m ProcessingMode) String() string {
	switch m {
	case Concurrent:
		return "concurrent"
	case Sequential:
		return "sequential"
	default:
		return fmt.Sprintf("ProcessingMode(%d)", int(m))
	}
}
