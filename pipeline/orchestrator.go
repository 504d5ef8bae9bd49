package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/go-quern/quern"
	"github.com/go-quern/quern/errors"
	"github.com/go-quern/quern/extract"
	"github.com/go-quern/quern/format"
	"github.com/go-quern/quern/load"
	"github.com/go-quern/quern/transform"
)

// RunConfig configures one pipeline run
type RunConfig struct {
	// DataDir and Pattern locate the input sources by glob. Pattern
	// defaults to *.csv.
	DataDir string
	Pattern string
	// Sources, when set, bypass globbing entirely
	Sources []string
	// OutputDir anchors report and output filenames
	OutputDir string
	// Mode selects concurrent or sequential stage dispatch
	Mode ProcessingMode
	// Reports are the load-stage reports. Defaults to the built-in store,
	// product and date dimensions.
	Reports []load.Report
	// Extract, Transform and Load carry per-stage options
	Extract   *extract.Options
	Transform *transform.Options
	Load      *load.Options
	// SaveTransformed persists the transformed Frame to TransformedPath
	// (default <OutputDir>/transformed.pkl) before the load stage
	SaveTransformed bool
	TransformedPath string
}

func (c *RunConfig) pattern() string {
	if c.Pattern == "" {
		return "*.csv"
	}
	return c.Pattern
}

func (c *RunConfig) reports() []load.Report {
	if len(c.Reports) > 0 {
		return c.Reports
	}
	return []load.Report{
		{Dimension: "store"},
		{Dimension: "product"},
		{Dimension: "date"},
	}
}

func (c *RunConfig) loadOptions() *load.Options {
	opts := c.Load
	if opts == nil {
		opts = &load.Options{}
	}
	if opts.OutputDir == "" {
		opts.OutputDir = c.OutputDir
	}
	return opts
}

func (c *RunConfig) transformedPath() string {
	if c.TransformedPath != "" {
		return c.TransformedPath
	}
	return filepath.Join(c.OutputDir, "transformed.pkl")
}

// An Orchestrator sequences Extract, Transform and Load into one run. It is
// a linear stage sequencer, not a general state machine: Extract and
// Transform gate the pipeline on a non-empty result, and the Load stage
// succeeds when at least one report does.
type Orchestrator struct {
	pctx      *quern.Context
	log       *zap.Logger
	extract   *extract.Processor
	transform *transform.Processor
	load      *load.Processor
}

// CreateOrchestrator is a factory for Orchestrators
func CreateOrchestrator(pctx *quern.Context) *Orchestrator {
	return &Orchestrator{
		pctx:      pctx,
		log:       pctx.Log().With(zap.String("component", "orchestrator")),
		extract:   extract.CreateProcessor(pctx),
		transform: transform.CreateProcessor(pctx),
		load:      load.CreateProcessor(pctx),
	}
}

// Stats returns the Stats sink of the underlying Context
func (o *Orchestrator) Stats() *quern.Stats {
	return o.pctx.Stats()
}

// Run executes Extract, Transform and Load. The Stats sink is reset at run
// start and logged, with the elapsed wall-clock time, at run end.
func (o *Orchestrator) Run(ctx context.Context, conf RunConfig) error {
	runID := uuid.Must(uuid.NewV4()).String()
	log := o.log.With(zap.String("run_id", runID))
	started := o.pctx.Clock().Now()
	o.pctx.Stats().Reset()
	log.Info("Pipeline run starting", zap.String("mode", conf.Mode.String()))

	transformed, err := o.extractAndTransform(ctx, conf, log)
	if err != nil {
		return err
	}
	if conf.SaveTransformed {
		if err := o.saveTransformed(transformed, conf.transformedPath()); err != nil {
			return err
		}
	}
	if err := o.runLoad(ctx, transformed, conf, log); err != nil {
		return err
	}
	o.finish(log, started)
	return nil
}

func (o *Orchestrator) extractAndTransform(ctx context.Context, conf RunConfig, log *zap.Logger) (*quern.Frame, error) {
	extracted, err := o.runExtract(ctx, conf, log)
	if err != nil {
		return nil, err
	}
	return o.runTransform(ctx, extracted, conf, log)
}

// sources resolves the run's input files, by explicit list or by glob
func (o *Orchestrator) sources(conf RunConfig) ([]string, error) {
	if len(conf.Sources) > 0 {
		return conf.Sources, nil
	}
	sources, err := filepath.Glob(filepath.Join(conf.DataDir, conf.pattern()))
	if err != nil {
		return nil, err
	}
	sort.Strings(sources)
	return sources, nil
}

func (o *Orchestrator) runExtract(ctx context.Context, conf RunConfig, log *zap.Logger) (*quern.Frame, error) {
	sources, err := o.sources(conf)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("No sources matched %s in %s", conf.pattern(), conf.DataDir)
	}
	var frame *quern.Frame
	if conf.Mode == Sequential {
		frame, err = o.extractSequential(ctx, sources, conf.Extract)
	} else {
		frame, err = o.extract.ProcessConcurrent(ctx, sources, conf.Extract)
	}
	if err != nil && frame.IsEmpty() {
		return nil, fmt.Errorf("Extract stage failed: %w", err)
	}
	if frame.IsEmpty() {
		return nil, fmt.Errorf("Extract stage produced no rows from %d sources", len(sources))
	}
	log.Info("Extract stage done", zap.Int("sources", len(sources)), zap.Int("rows", frame.NumRows()))
	return frame, nil
}

// extractSequential runs the extract stage one source at a time, fail-fast
func (o *Orchestrator) extractSequential(ctx context.Context, sources []string, opts *extract.Options) (*quern.Frame, error) {
	frames := make([]*quern.Frame, 0, len(sources))
	for _, source := range sources {
		frame, err := o.extract.Process(ctx, source, opts)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return quern.Concat(frames...)
}

func (o *Orchestrator) runTransform(ctx context.Context, extracted *quern.Frame, conf RunConfig, log *zap.Logger) (*quern.Frame, error) {
	var transformed *quern.Frame
	var err error
	if conf.Mode == Sequential {
		transformed, err = o.transform.Process(ctx, quern.Partition{Frame: extracted}, conf.Transform)
		if err != nil {
			o.pctx.Stats().RecordError(errors.Kind(err))
			return nil, fmt.Errorf("Transform stage failed: %w", err)
		}
		o.pctx.Stats().RowsProcessed(transformed.NumRows())
	} else {
		transformed, err = o.transform.ProcessConcurrent(ctx, extracted, conf.Transform)
		if err != nil && transformed.IsEmpty() {
			return nil, fmt.Errorf("Transform stage failed: %w", err)
		}
	}
	if transformed.IsEmpty() {
		return nil, fmt.Errorf("Transform stage produced no rows")
	}
	log.Info("Transform stage done", zap.Int("rows", transformed.NumRows()))
	return transformed, nil
}

// saveTransformed persists the transformed Frame to a side file under the
// run's shared file lock
func (o *Orchestrator) saveTransformed(frame *quern.Frame, path string) error {
	codec, err := format.Detect(path)
	if err != nil {
		return err
	}
	lock := o.pctx.FileLock()
	lock.Lock()
	defer lock.Unlock()
	if err := codec.Write(frame, path, codec.Defaults()); err != nil {
		return errors.WriteError{Path: path, Err: err}
	}
	o.log.Info("Transformed frame saved", zap.String("path", path))
	return nil
}

func (o *Orchestrator) runLoad(ctx context.Context, transformed *quern.Frame, conf RunConfig, log *zap.Logger) error {
	reports := conf.reports()
	opts := conf.loadOptions()
	var results map[string]bool
	if conf.Mode == Sequential {
		results = make(map[string]bool, len(reports))
		for _, report := range reports {
			results[report.Dimension] = o.load.Process(ctx, transformed, report, opts) == nil
		}
	} else {
		var err error
		results, err = o.load.ProcessConcurrent(ctx, transformed, reports, opts)
		if err != nil {
			return err
		}
	}
	if !load.AnySucceeded(results) {
		return fmt.Errorf("Load stage failed: no report succeeded out of %d", len(reports))
	}
	log.Info("Load stage done", zap.Any("results", results))
	return nil
}

// finish logs the run's Stats snapshot and elapsed wall-clock time
func (o *Orchestrator) finish(log *zap.Logger, started time.Time) {
	fields := append(o.pctx.Stats().Fields(), zap.Duration("elapsed", o.pctx.Clock().Since(started)))
	log.Info("Pipeline run complete", fields...)
}
