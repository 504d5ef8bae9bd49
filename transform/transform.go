package transform

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	multierror "github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/go-quern/quern"
	"github.com/go-quern/quern/errors"
)

// Options configures transformation
type Options struct {
	// NumPartitions is the number of near-equal partitions the input Frame
	// is split into. Defaults to the number of available processing units.
	NumPartitions int
	// MaxWorkers bounds the concurrent worker pool. Defaults to NumPartitions.
	MaxWorkers int
	// ProcessingFactor scales the synthetic per-partition delay: each
	// partition sleeps rows * ProcessingFactor seconds before transforming.
	// Defaults to 0 (no delay).
	ProcessingFactor float64
	// Strategy selects the transform to apply. Defaults to DefaultStrategy.
	Strategy Strategy
	// PostTransform, when set, runs on each partition's result after the
	// strategy
	PostTransform func(*quern.Frame) (*quern.Frame, error)

	// PriceBins and PriceLabels configure DefaultStrategy's unit-price
	// bucketing: one label per right-closed bin, the last bin unbounded
	PriceBins   []float64
	PriceLabels []string
	// Seed fixes the synthetic profit margin sequence for reproducible runs.
	// 0 seeds from the current time.
	Seed int64

	// StatementRules override AccountingStrategy's account-code prefix table
	StatementRules map[string]string
}

func (o *Options) strategy() Strategy {
	if o == nil || o.Strategy == nil {
		return &DefaultStrategy{}
	}
	return o.Strategy
}

func (o *Options) numPartitions() int {
	if o == nil || o.NumPartitions < 1 {
		return runtime.NumCPU()
	}
	return o.NumPartitions
}

func (o *Options) maxWorkers() int {
	if o == nil || o.MaxWorkers < 1 {
		return o.numPartitions()
	}
	return o.MaxWorkers
}

func (o *Options) priceBins() []float64 {
	if o == nil || len(o.PriceBins) == 0 {
		return DefaultPriceBins
	}
	return o.PriceBins
}

func (o *Options) priceLabels() []string {
	if o == nil || len(o.PriceLabels) == 0 {
		return DefaultPriceLabels
	}
	return o.PriceLabels
}

func (o *Options) seed() int64 {
	if o == nil || o.Seed == 0 {
		return time.Now().UnixNano()
	}
	return o.Seed
}

func (o *Options) statementRules() map[string]string {
	if o == nil || len(o.StatementRules) == 0 {
		return DefaultStatementRules
	}
	return o.StatementRules
}

// A Processor applies a Strategy to Frame partitions
type Processor struct {
	pctx *quern.Context
	log  *zap.Logger
}

// CreateProcessor is a factory for transform Processors
func CreateProcessor(pctx *quern.Context) *Processor {
	return &Processor{
		pctx: pctx,
		log:  pctx.Log().With(zap.String("stage", "transform")),
	}
}

// Process transforms a single Partition: an optional size-proportional
// synthetic delay, then the selected Strategy, then the optional
// PostTransform hook. A failure is returned as a TransformError carrying a
// full Diagnostic rather than a bare message, so callers collecting results
// from workers can log and account for the failure without access to the
// worker's state.
func (p *Processor) Process(ctx context.Context, part quern.Partition, opts *Options) (*quern.Frame, error) {
	frame, _, diag := transformPartition(ctx, p.pctx.Clock(), part, opts)
	if diag != nil {
		return nil, errors.TransformError{Diag: *diag}
	}
	return frame, nil
}

// transformPartition is the worker applied to each partition. It is a free
// function over owned, by-value inputs: it shares no mutable state with the
// parent or with sibling workers, and reports failure through the returned
// Diagnostic instead of touching shared sinks.
func transformPartition(ctx context.Context, clk clock.Clock, part quern.Partition, opts *Options) (*quern.Frame, int, *errors.Diagnostic) {
	fail := func(err error) (*quern.Frame, int, *errors.Diagnostic) {
		return nil, part.Index, &errors.Diagnostic{
			Kind:      errors.Kind(err),
			Message:   err.Error(),
			Stack:     string(debug.Stack()),
			Rows:      part.NumRows(),
			Cols:      part.Frame.NumColumns(),
			Columns:   part.Frame.Schema().ColumnNames(),
			Strategy:  opts.strategy().Name(),
			Partition: part.Index,
		}
	}
	if opts != nil && opts.ProcessingFactor > 0 {
		delay := time.Duration(float64(part.NumRows()) * opts.ProcessingFactor * float64(time.Second))
		select {
		case <-clk.After(delay):
		case <-ctx.Done():
			return fail(ctx.Err())
		}
	}
	frame, err := opts.strategy().Transform(part.Frame, opts)
	if err != nil {
		return fail(err)
	}
	if opts != nil && opts.PostTransform != nil {
		frame, err = opts.PostTransform(frame)
		if err != nil {
			return fail(err)
		}
	}
	return frame, part.Index, nil
}

// ProcessConcurrent splits the input Frame into near-equal partitions and
// transforms them over a bounded worker pool. Successful partitions are
// concatenated in completion order, not partition-index order. A failed
// partition is logged with its full Diagnostic and its error kind folded
// into the Stats sink, without aborting sibling partitions. When every
// partition fails, an empty Frame is returned together with the aggregated
// errors; an empty input Frame transforms to an empty Frame.
func (p *Processor) ProcessConcurrent(ctx context.Context, frame *quern.Frame, opts *Options) (*quern.Frame, error) {
	if frame.IsEmpty() {
		return quern.CreateFrame(nil), nil
	}
	numPartitions := opts.numPartitions()
	if numPartitions > frame.NumRows() {
		numPartitions = frame.NumRows()
	}
	parts, err := frame.Split(numPartitions)
	if err != nil {
		return nil, err
	}
	var (
		mu     sync.Mutex
		frames []*quern.Frame
		errs   *multierror.Error
	)
	pool, poolCtx := errgroup.WithContext(ctx)
	pool.SetLimit(opts.maxWorkers())
	for _, part := range parts {
		part := part
		pool.Go(func() error {
			result, idx, diag := transformPartition(poolCtx, p.pctx.Clock(), part, opts)
			mu.Lock()
			defer mu.Unlock()
			if diag != nil {
				transformErr := errors.TransformError{Diag: *diag}
				p.pctx.Stats().RecordError(errors.Kind(transformErr))
				p.log.Warn("Skipping failed partition",
					zap.Int("partition", idx),
					zap.Int("rows", diag.Rows),
					zap.Int("columns", diag.Cols),
					zap.String("strategy", diag.Strategy),
					zap.String("kind", diag.Kind),
					zap.String("message", diag.Message),
					zap.String("stack", diag.Stack))
				errs = multierror.Append(errs, transformErr)
				return nil
			}
			frames = append(frames, result)
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return quern.CreateFrame(nil), errs.ErrorOrNil()
	}
	merged, err := quern.Concat(frames...)
	if err != nil {
		return nil, err
	}
	p.pctx.Stats().RowsProcessed(merged.NumRows())
	p.log.Info("Transform stage complete",
		zap.Int("partitions", len(parts)),
		zap.Int("succeeded", len(frames)),
		zap.Int("rows", merged.NumRows()),
		zap.String("strategy", opts.strategy().Name()))
	return merged, nil
}
