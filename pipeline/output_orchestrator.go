package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/go-quern/quern"
	"github.com/go-quern/quern/output"
)

// OutputRunConfig extends RunConfig with the output stage and per-stage skip
// flags
type OutputRunConfig struct {
	RunConfig
	// Outputs are the output-stage targets. Targets without filenames
	// receive generated defaults under OutputDir.
	Outputs []output.Spec
	// Output carries output-stage options
	Output *output.Options
	// SkipTransform feeds the extracted Frame directly onward; SkipLoad and
	// SkipOutput omit their stages entirely
	SkipTransform bool
	SkipLoad      bool
	SkipOutput    bool
}

func (c *OutputRunConfig) outputOptions() *output.Options {
	opts := c.Output
	if opts == nil {
		opts = &output.Options{}
	}
	if opts.OutputDir == "" {
		opts.OutputDir = c.OutputDir
	}
	return opts
}

// An OutputOrchestrator extends the base Orchestrator with an Output stage
// after Load. Load failure is non-fatal to Output: the two stages are
// independent consumers of the transformed Frame, so a failed Load is logged
// and the pipeline continues - asymmetric with the hard stop on Extract or
// Transform failure.
type OutputOrchestrator struct {
	Orchestrator
	output *output.Processor
}

// CreateOutputOrchestrator is a factory for OutputOrchestrators
func CreateOutputOrchestrator(pctx *quern.Context) *OutputOrchestrator {
	return &OutputOrchestrator{
		Orchestrator: *CreateOrchestrator(pctx),
		output:       output.CreateProcessor(pctx),
	}
}

// Run executes Extract, optional Transform, optional Load and optional
// Output
func (o *OutputOrchestrator) Run(ctx context.Context, conf OutputRunConfig) error {
	runID := uuid.Must(uuid.NewV4()).String()
	log := o.log.With(zap.String("run_id", runID))
	started := o.pctx.Clock().Now()
	o.pctx.Stats().Reset()
	log.Info("Pipeline run starting", zap.String("mode", conf.Mode.String()))

	frame, err := o.runExtract(ctx, conf.RunConfig, log)
	if err != nil {
		return err
	}
	if conf.SkipTransform {
		log.Info("Transform stage skipped")
	} else {
		frame, err = o.runTransform(ctx, frame, conf.RunConfig, log)
		if err != nil {
			return err
		}
		if conf.SaveTransformed {
			if err := o.saveTransformed(frame, conf.transformedPath()); err != nil {
				return err
			}
		}
	}

	if conf.SkipLoad {
		log.Info("Load stage skipped")
	} else if err := o.runLoad(ctx, frame, conf.RunConfig, log); err != nil {
		// Load and Output consume the same Frame independently; a failed
		// Load must not starve the outputs
		log.Warn("Load stage failed; continuing to output", zap.Error(err))
	}

	if conf.SkipOutput {
		log.Info("Output stage skipped")
	} else if err := o.runOutput(ctx, frame, conf, log); err != nil {
		return err
	}
	o.finish(log, started)
	return nil
}

func defaultOutputFilename(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("output_%d.csv", i))
}

func (o *OutputOrchestrator) runOutput(ctx context.Context, frame *quern.Frame, conf OutputRunConfig, log *zap.Logger) error {
	if len(conf.Outputs) == 0 {
		log.Info("Output stage has no targets")
		return nil
	}
	opts := conf.outputOptions()
	var results map[string]bool
	if conf.Mode == Sequential {
		results = make(map[string]bool, len(conf.Outputs))
		for i, spec := range conf.Outputs {
			if spec.Filename == "" {
				spec.Filename = defaultOutputFilename(opts.OutputDir, i)
			}
			results[spec.Filename] = o.output.Process(ctx, frame, spec, opts) == nil
		}
	} else {
		var err error
		results, err = o.output.ProcessConcurrent(ctx, frame, conf.Outputs, opts)
		if err != nil {
			return err
		}
	}
	if !output.AnySucceeded(results) {
		return fmt.Errorf("Output stage failed: no target succeeded out of %d", len(conf.Outputs))
	}
	log.Info("Output stage done", zap.Any("results", results))
	return nil
}
