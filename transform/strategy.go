// Package transform applies pluggable strategies to Frame partitions,
// fanning out CPU-bound work across independently owned partitions.
package transform

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-quern/quern"
)

// A Strategy transforms a Frame into a derived Frame. Strategies are
// stateless and safe for concurrent use across partitions; any strategy
// whose derivations are row-local may be applied per partition and
// recombined without changing the result.
type Strategy interface {
	// Name identifies this Strategy in diagnostics and registries
	Name() string
	// Transform derives a new Frame from the input Frame
	Transform(frame *quern.Frame, opts *Options) (*quern.Frame, error)
}

var (
	registryMu sync.Mutex
	registry   = map[string]Strategy{
		"default":    &DefaultStrategy{},
		"accounting": &AccountingStrategy{},
	}
)

// Register makes a custom Strategy selectable by name. Built-in names may
// not be replaced.
func Register(strategy Strategy) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[strategy.Name()]; exists {
		return fmt.Errorf("Strategy %s is already registered", strategy.Name())
	}
	registry[strategy.Name()] = strategy
	return nil
}

// ByName returns the registered Strategy with the given name
func ByName(name string) (Strategy, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	strategy, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("No strategy registered with name %s", name)
	}
	return strategy, nil
}

// StrategyNames returns the names of all registered strategies, sorted
func StrategyNames() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// floatColumn reads a numeric column as float64, widening int columns
func floatColumn(frame *quern.Frame, name string) ([]float64, error) {
	col, _, err := frame.Schema().Column(name)
	if err != nil {
		return nil, err
	}
	switch col.Type {
	case quern.FloatType:
		return frame.Floats(name)
	case quern.IntType:
		ints, err := frame.Ints(name)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(ints))
		for i, v := range ints {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("Column %s is not numeric. Was: %s", name, col.Type)
	}
}

// addCalendarColumns derives year, month, day and weekday from the named
// timestamp column. Weekday is 0 for Monday through 6 for Sunday.
func addCalendarColumns(frame *quern.Frame, dateCol string) error {
	dates, err := frame.Times(dateCol)
	if err != nil {
		return err
	}
	n := len(dates)
	years := make([]int64, n)
	months := make([]int64, n)
	days := make([]int64, n)
	weekdays := make([]int64, n)
	for i, d := range dates {
		years[i] = int64(d.Year())
		months[i] = int64(d.Month())
		days[i] = int64(d.Day())
		weekdays[i] = int64((int(d.Weekday()) + 6) % 7)
	}
	cols := []struct {
		name   string
		values []int64
	}{
		{"year", years}, {"month", months}, {"day", days}, {"weekday", weekdays},
	}
	for _, col := range cols {
		if err := frame.AddColumn(quern.Column{Name: col.name, Type: quern.IntType}, col.values); err != nil {
			return err
		}
	}
	return nil
}

// periodKey renders a time as a YYYY-MM period label
func periodKey(t time.Time) string {
	return t.Format("2006-01")
}
