// Package load aggregates Frames along named or custom dimensions and
// serializes the resulting reports, fanning file writes out across a bounded
// worker pool.
package load

import (
	"context"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/go-quern/quern"
	"github.com/go-quern/quern/errors"
	"github.com/go-quern/quern/format"
)

// DefaultMaxWorkers bounds the load worker pool when Options does not
const DefaultMaxWorkers = 3

// A Report describes one aggregation report to produce. Dimension names a
// built-in recipe, or GroupBy and Aggs supply a custom one. A Report is
// immutable once dispatched.
type Report struct {
	// Dimension names this report; it selects a built-in recipe unless
	// GroupBy and Aggs are set
	Dimension string
	// Filename receives the serialized report. Defaults to
	// <OutputDir>/<dimension>_report.csv.
	Filename string
	// GroupBy and Aggs define a custom recipe, overriding the built-in table
	GroupBy []string
	Aggs    map[string]quern.AggOp
	// PostProcess, when set, reshapes the aggregated Frame before writing
	PostProcess func(*quern.Frame) (*quern.Frame, error)
	// WriteParams are layered over global write parameters for this report
	WriteParams format.Params
}

// Options configures loading
type Options struct {
	// MaxWorkers bounds the concurrent worker pool. Defaults to 3.
	MaxWorkers int
	// OutputDir anchors default report filenames
	OutputDir string
	// WriteParams apply to every report, under per-report WriteParams
	WriteParams format.Params
	// GroupBy and Aggs act as the recipe for reports that do not carry
	// their own and whose dimension is not a built-in name
	GroupBy []string
	Aggs    map[string]quern.AggOp
	// PostProcess applies to reports without their own hook
	PostProcess func(*quern.Frame) (*quern.Frame, error)
}

func (o *Options) maxWorkers() int {
	if o == nil || o.MaxWorkers < 1 {
		return DefaultMaxWorkers
	}
	return o.MaxWorkers
}

// A Processor aggregates Frames into serialized reports
type Processor struct {
	pctx *quern.Context
	log  *zap.Logger
}

// CreateProcessor is a factory for load Processors
func CreateProcessor(pctx *quern.Context) *Processor {
	return &Processor{
		pctx: pctx,
		log:  pctx.Log().With(zap.String("stage", "load")),
	}
}

// resolveRecipe finds the aggregation recipe for a report: the report's own
// GroupBy/Aggs win, then the built-in dimension table, then the generic
// recipe from Options. A dimension matching none of these is an
// AggregationError.
func resolveRecipe(report Report, opts *Options) (Dimension, error) {
	if len(report.GroupBy) > 0 && len(report.Aggs) > 0 {
		return Dimension{GroupBy: report.GroupBy, Aggs: report.Aggs}, nil
	}
	if dim, ok := NamedDimension(report.Dimension); ok {
		return dim, nil
	}
	if opts != nil && len(opts.GroupBy) > 0 && len(opts.Aggs) > 0 {
		return Dimension{GroupBy: opts.GroupBy, Aggs: opts.Aggs}, nil
	}
	return Dimension{}, errors.AggregationError{
		Dimension: report.Dimension,
		Reason:    "unknown dimension and no groupby_cols/agg_dict recipe supplied",
	}
}

// Process aggregates a Frame along one report's recipe and serializes the
// result. Failures never propagate as panics past this boundary: any error
// is logged, folded into the Stats sink, and returned already handled, so
// callers may treat the return purely as a success/failure signal.
func (p *Processor) Process(ctx context.Context, frame *quern.Frame, report Report, opts *Options) error {
	err := p.process(ctx, frame, report, opts)
	if err != nil {
		p.pctx.Stats().RecordError(errors.Kind(err))
		p.log.Warn("Report failed",
			zap.String("dimension", report.Dimension),
			zap.String("filename", report.Filename),
			zap.Error(err))
	}
	return err
}

func (p *Processor) process(ctx context.Context, frame *quern.Frame, report Report, opts *Options) error {
	recipe, err := resolveRecipe(report, opts)
	if err != nil {
		return err
	}
	aggregated, err := frame.GroupBy(recipe.GroupBy, recipe.Aggs)
	if err != nil {
		return errors.AggregationError{Dimension: report.Dimension, Reason: err.Error()}
	}
	for oldName, newName := range recipe.Renames {
		if err := aggregated.Schema().RenameColumn(oldName, newName); err != nil {
			return errors.AggregationError{Dimension: report.Dimension, Reason: err.Error()}
		}
	}
	postProcess := report.PostProcess
	if postProcess == nil && opts != nil {
		postProcess = opts.PostProcess
	}
	if postProcess != nil {
		aggregated, err = postProcess(aggregated)
		if err != nil {
			return errors.AggregationError{Dimension: report.Dimension, Reason: err.Error()}
		}
	}

	filename := p.reportFilename(report, opts)
	codec, err := format.Detect(filename)
	if err != nil {
		return errors.WriteError{Path: filename, Err: err}
	}
	var global format.Params
	if opts != nil {
		global = opts.WriteParams
	}
	params := codec.Defaults().Merge(global, report.WriteParams)

	// report files may be shared across reports; serialize on the run's file lock
	lock := p.pctx.FileLock()
	lock.Lock()
	defer lock.Unlock()
	if err := codec.Write(aggregated, filename, params); err != nil {
		return errors.WriteError{Path: filename, Err: err}
	}
	p.pctx.Stats().FileProcessed(filename, aggregated.NumRows())
	p.log.Info("Report written",
		zap.String("dimension", report.Dimension),
		zap.String("filename", filename),
		zap.Int("groups", aggregated.NumRows()))
	return nil
}

func (p *Processor) reportFilename(report Report, opts *Options) string {
	if report.Filename != "" {
		return report.Filename
	}
	dir := ""
	if opts != nil {
		dir = opts.OutputDir
	}
	return filepath.Join(dir, report.Dimension+"_report.csv")
}

// ProcessConcurrent produces many reports over a bounded worker pool and
// returns the per-dimension success map. Per-report parameters override the
// global options. The map always carries one entry per report; stage
// success, as the orchestrator consumes it, is "at least one report
// succeeded" - callers needing a stricter policy have the full map.
func (p *Processor) ProcessConcurrent(ctx context.Context, frame *quern.Frame, reports []Report, opts *Options) (map[string]bool, error) {
	results := make(map[string]bool, len(reports))
	var mu sync.Mutex
	pool, poolCtx := errgroup.WithContext(ctx)
	pool.SetLimit(opts.maxWorkers())
	for _, report := range reports {
		report := report
		pool.Go(func() error {
			err := p.Process(poolCtx, frame, report, opts)
			mu.Lock()
			defer mu.Unlock()
			results[report.Dimension] = err == nil
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// AnySucceeded reports whether at least one entry in a success map is true
func AnySucceeded(results map[string]bool) bool {
	for _, ok := range results {
		if ok {
			return true
		}
	}
	return false
}
