// Package extract reads external sources into Frames, fanning out across a
// bounded worker pool for I/O-bound batches of files.
package extract

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/go-quern/quern"
	"github.com/go-quern/quern/errors"
	"github.com/go-quern/quern/format"
)

// DefaultMaxWorkers bounds the extract worker pool when Options does not
const DefaultMaxWorkers = 5

// Options configures extraction
type Options struct {
	// MaxWorkers bounds the concurrent worker pool. Defaults to 5.
	MaxWorkers int
	// ProcessingFactor scales the synthetic per-file delay: each file sleeps
	// rows * columns * ProcessingFactor seconds after reading. A throttle
	// knob for benchmarking, not business logic. Defaults to 0 (no delay).
	ProcessingFactor float64
	// ReadParams are layered over each codec's default read parameters
	ReadParams format.Params
}

func (o *Options) maxWorkers() int {
	if o == nil || o.MaxWorkers < 1 {
		return DefaultMaxWorkers
	}
	return o.MaxWorkers
}

// A Processor reads tabular sources into Frames
type Processor struct {
	pctx *quern.Context
	log  *zap.Logger
}

// CreateProcessor is a factory for extract Processors
func CreateProcessor(pctx *quern.Context) *Processor {
	return &Processor{
		pctx: pctx,
		log:  pctx.Log().With(zap.String("stage", "extract")),
	}
}

// Process reads one source into a Frame: the source path is resolved to its
// codec, codec default parameters are merged with caller read parameters
// (caller wins), and the Stats sink is updated with the source and its row
// count. Any failure is recorded in the Stats sink and returned as an
// ExtractError; the caller decides whether to skip the source.
func (p *Processor) Process(ctx context.Context, source string, opts *Options) (*quern.Frame, error) {
	if opts == nil {
		opts = &Options{}
	}
	frame, err := p.read(source, opts)
	if err != nil {
		extractErr := errors.ExtractError{Source: source, Err: err}
		p.pctx.Stats().RecordError(errors.Kind(extractErr))
		return nil, extractErr
	}
	if opts.ProcessingFactor > 0 {
		delay := time.Duration(float64(frame.NumRows()*frame.NumColumns()) * opts.ProcessingFactor * float64(time.Second))
		select {
		case <-p.pctx.Clock().After(delay):
		case <-ctx.Done():
			extractErr := errors.ExtractError{Source: source, Err: ctx.Err()}
			p.pctx.Stats().RecordError(errors.Kind(extractErr))
			return nil, extractErr
		}
	}
	p.pctx.Stats().FileProcessed(source, frame.NumRows())
	p.log.Debug("Extracted source",
		zap.String("source", source),
		zap.Int("rows", frame.NumRows()),
		zap.Int("columns", frame.NumColumns()))
	return frame, nil
}

func (p *Processor) read(source string, opts *Options) (*quern.Frame, error) {
	source = filepath.Clean(source)
	codec, err := format.Detect(source)
	if err != nil {
		return nil, err
	}
	params := codec.Defaults().Merge(opts.ReadParams)
	return codec.Read(source, params)
}

// ProcessConcurrent reads many sources over a bounded worker pool and unions
// the successful Frames. Results are collected in completion order, so row
// order across sources is not guaranteed. A source that fails is logged and
// excluded without aborting its siblings; the merged row count equals the sum
// of the row counts of exactly the sources that succeeded. When the input is
// non-empty but every source fails, an empty Frame is returned together with
// the aggregated per-source errors, which the orchestrator interprets as
// stage failure.
func (p *Processor) ProcessConcurrent(ctx context.Context, sources []string, opts *Options) (*quern.Frame, error) {
	if len(sources) == 0 {
		return quern.CreateFrame(nil), nil
	}
	var (
		mu     sync.Mutex
		frames []*quern.Frame
		errs   *multierror.Error
	)
	pool, poolCtx := errgroup.WithContext(ctx)
	pool.SetLimit(opts.maxWorkers())
	for _, source := range sources {
		source := source
		pool.Go(func() error {
			frame, err := p.Process(poolCtx, source, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.log.Warn("Skipping source", zap.String("source", source), zap.Error(err))
				errs = multierror.Append(errs, err)
				return nil
			}
			frames = append(frames, frame)
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
	p.log.Info("Extract stage complete",
		zap.Int("sources", len(sources)),
		zap.Int("succeeded", len(frames)),
		zap.Int("rows", merged.NumRows()))
	return merged, nil
}
