package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// UnsupportedFormatError occurs when a file extension matches no known codec
type UnsupportedFormatError struct{ Ext string }

// Error returns a textual representation of this UnsupportedFormatError
func (e UnsupportedFormatError) Error() string {
	return fmt.Sprintf("Unsupported file format: %s", e.Ext)
}

// Kind returns the error-kind label for this UnsupportedFormatError
func (e UnsupportedFormatError) Kind() string { return "UnsupportedFormatError" }

// ConfigError occurs when a processor is given invalid or missing configuration
type ConfigError struct {
	Field  string
	Reason string
}

// Error returns a textual representation of this ConfigError
func (e ConfigError) Error() string {
	return fmt.Sprintf("Invalid configuration for %s: %s", e.Field, e.Reason)
}

// Kind returns the error-kind label for this ConfigError
func (e ConfigError) Kind() string { return "ConfigError" }

// ExtractError occurs when a source cannot be read into a Frame
type ExtractError struct {
	Source string
	Err    error
}

// Error returns a textual representation of this ExtractError
func (e ExtractError) Error() string {
	return fmt.Sprintf("Extract failed for %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying cause of this ExtractError
func (e ExtractError) Unwrap() error { return e.Err }

// Kind returns the error-kind label for this ExtractError
func (e ExtractError) Kind() string { return "ExtractError" }

// Diagnostic captures the full context of a transform failure, so a worker
// can relay it across the partition boundary for the parent to log and count
type Diagnostic struct {
	Kind      string   // error kind of the underlying cause
	Message   string   // message of the underlying cause
	Stack     string   // stack captured where the failure occurred
	Rows      int      // partition row count
	Cols      int      // partition column count
	Columns   []string // partition column names
	Strategy  string   // strategy name in effect
	Partition int      // original partition index
}

// TransformError occurs when a transform strategy fails on a partition
type TransformError struct{ Diag Diagnostic }

// Error returns a textual representation of this TransformError
func (e TransformError) Error() string {
	return fmt.Sprintf("Transform failed on partition %d (%d rows, strategy %s): %s",
		e.Diag.Partition, e.Diag.Rows, e.Diag.Strategy, e.Diag.Message)
}

// Kind returns the error-kind label for this TransformError
func (e TransformError) Kind() string { return "TransformError" }

// AggregationError occurs when a report recipe cannot be resolved or applied
type AggregationError struct {
	Dimension string
	Reason    string
}

// Error returns a textual representation of this AggregationError
func (e AggregationError) Error() string {
	return fmt.Sprintf("Aggregation failed for dimension %s: %s", e.Dimension, e.Reason)
}

// Kind returns the error-kind label for this AggregationError
func (e AggregationError) Kind() string { return "AggregationError" }

// WriteError occurs when a Frame cannot be serialized to a path
type WriteError struct {
	Path string
	Err  error
}

// Error returns a textual representation of this WriteError
func (e WriteError) Error() string {
	return fmt.Sprintf("Write failed for %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause of this WriteError
func (e WriteError) Unwrap() error { return e.Err }

// Kind returns the error-kind label for this WriteError
func (e WriteError) Kind() string { return "WriteError" }

// kinder is satisfied by every error in the taxonomy
type kinder interface{ Kind() string }

// Kind classifies an error into the label used by the stats sink's error
// counters. Taxonomy errors report their own kind; foreign errors are
// labelled with their Go type name.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var k kinder
	if stderrors.As(err, &k) {
		return k.Kind()
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}
