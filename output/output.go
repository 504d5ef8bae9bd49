// Package output serializes full Frames to one or more target files with no
// aggregation, fanning writes out across a bounded worker pool. Writes are
// serialized per target path through the Context's path-lock registry, so
// unrelated files are written in parallel while repeated writes to one file
// never interleave.
package output

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/go-quern/quern"
	"github.com/go-quern/quern/errors"
	"github.com/go-quern/quern/format"
)

// DefaultMaxWorkers bounds the output worker pool when Options does not
const DefaultMaxWorkers = 3

// A Spec describes one output target. A Spec is immutable once dispatched.
type Spec struct {
	// Filename receives the serialized Frame. Specs dispatched through
	// ProcessConcurrent without a filename receive a generated default;
	// Process requires one.
	Filename string
	// Params are the innermost write-parameter layer for this target
	Params format.Params
}

// Options configures output
type Options struct {
	// MaxWorkers bounds the concurrent worker pool. Defaults to 3.
	MaxWorkers int
	// OutputDir anchors generated default filenames
	OutputDir string
	// CommonParams apply to every target, under format and per-spec params
	CommonParams format.Params
	// FormatParams apply per codec kind (e.g. "dsv", "spreadsheet"), over
	// CommonParams and under per-spec params
	FormatParams map[string]format.Params
}

func (o *Options) maxWorkers() int {
	if o == nil || o.MaxWorkers < 1 {
		return DefaultMaxWorkers
	}
	return o.MaxWorkers
}

// A Processor serializes Frames to output targets
type Processor struct {
	pctx *quern.Context
	log  *zap.Logger
}

// CreateProcessor is a factory for output Processors
func CreateProcessor(pctx *quern.Context) *Processor {
	return &Processor{
		pctx: pctx,
		log:  pctx.Log().With(zap.String("stage", "output")),
	}
}

// Process serializes a Frame to one target. Write parameters layer in order,
// each layer overriding the previous: codec defaults, then CommonParams,
// then the codec kind's FormatParams, then the Spec's own Params. Tabular
// writers omit the row index unless a layer sets index true. The write
// happens under the lock dedicated to the target's normalized path. Failures
// never propagate as panics past this boundary: any error is logged, folded
// into the Stats sink, and returned already handled.
func (p *Processor) Process(ctx context.Context, frame *quern.Frame, spec Spec, opts *Options) error {
	err := p.process(frame, spec, opts)
	if err != nil {
		p.pctx.Stats().RecordError(errors.Kind(err))
		p.log.Warn("Output failed", zap.String("filename", spec.Filename), zap.Error(err))
	}
	return err
}

func (p *Processor) process(frame *quern.Frame, spec Spec, opts *Options) error {
	if spec.Filename == "" {
		return errors.ConfigError{Field: "filename", Reason: "output target requires a filename"}
	}
	codec, err := format.Detect(spec.Filename)
	if err != nil {
		return err
	}
	var common, byFormat format.Params
	if opts != nil {
		common = opts.CommonParams
		byFormat = opts.FormatParams[codec.Kind()]
	}
	params := codec.Defaults().Merge(common, byFormat, spec.Params)

	lock := p.pctx.PathLock(spec.Filename)
	lock.Lock()
	defer lock.Unlock()
	if err := codec.Write(frame, spec.Filename, params); err != nil {
		return errors.WriteError{Path: spec.Filename, Err: err}
	}
	p.pctx.Stats().FileProcessed(spec.Filename, frame.NumRows())
	p.log.Info("Output written",
		zap.String("filename", spec.Filename),
		zap.String("format", codec.Kind()),
		zap.Int("rows", frame.NumRows()))
	return nil
}

// ProcessConcurrent serializes a Frame to many targets over a bounded worker
// pool and returns the per-filename success map. Specs without a filename
// receive <OutputDir>/output_<i>.csv. The map always carries one entry per
// target; stage success, as callers consume it, is "at least one output
// succeeded".
func (p *Processor) ProcessConcurrent(ctx context.Context, frame *quern.Frame, specs []Spec, opts *Options) (map[string]bool, error) {
	dir := ""
	if opts != nil {
		dir = opts.OutputDir
	}
	results := make(map[string]bool, len(specs))
	var mu sync.Mutex
	pool, poolCtx := errgroup.WithContext(ctx)
	pool.SetLimit(opts.maxWorkers())
	for i, spec := range specs {
		spec := spec
		if spec.Filename == "" {
			spec.Filename = filepath.Join(dir, fmt.Sprintf("output_%d.csv", i))
		}
		pool.Go(func() error {
			err := p.Process(poolCtx, frame, spec, opts)
			mu.Lock()
			defer mu.Unlock()
			results[spec.Filename] = err == nil
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
