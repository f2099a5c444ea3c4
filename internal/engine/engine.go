// Package engine expands a sweep configuration into an experiment
// plan and executes it. Scalar baselines run before the backends that
// are verified against them, experiments inside a stage run on a
// bounded worker pool, and finished experiments are checkpointed so
// an interrupted sweep can resume where it stopped.
package engine

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/seqbench/seqbench/internal/config"
	"github.com/seqbench/seqbench/internal/logging"
	"github.com/seqbench/seqbench/internal/results"
	"github.com/seqbench/seqbench/internal/store"
	"github.com/seqbench/seqbench/internal/tuning"
	"github.com/seqbench/seqbench/pkg/bench"
	"github.com/seqbench/seqbench/pkg/ops"
	"github.com/seqbench/seqbench/pkg/seq"
)

// Engine executes an experiment plan.
type Engine struct {
	cfg      config.Config
	plan     *Plan
	registry func(params ops.Params) *ops.Registry
	log      *logging.Logger

	mu              sync.Mutex
	completed       map[string]results.Experiment
	datasets        map[string][]seq.Record
	sinceCheckpoint int
	metrics         *sweepMetrics
}

// New builds the plan for cfg. The registry factory exists so every
// experiment gets operations configured with its own parameters.
func New(cfg config.Config, log *logging.Logger) (*Engine, error) {
	plan, err := BuildPlan(cfg, ops.DefaultRegistry(ops.DefaultParams()))
	if err != nil {
		return nil, errors.Wrap(err, "build plan")
	}

	return &Engine{
		cfg:       cfg,
		plan:      plan,
		registry:  ops.DefaultRegistry,
		log:       log,
		completed: make(map[string]results.Experiment),
		datasets:  make(map[string][]seq.Record),
		metrics:   newSweepMetrics(),
	}, nil
}

// Plan exposes the generated plan, mainly for rendering.
func (e *Engine) Plan() *Plan { return e.plan }

// Resume seeds the engine with a previous checkpoint. Experiments in
// the checkpoint are skipped and their results reused.
func (e *Engine) Resume(cp Checkpoint) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, exp := range cp.Completed {
		e.completed[id] = exp
		e.plan.SetStatus(id, store.StatusSkipped)
	}
	if e.log != nil && len(cp.Completed) > 0 {
		e.log.Printf("resuming, %d experiments already completed", len(cp.Completed))
	}
}

// dataset returns the deterministic input for a scale, generating it
// at most once.
func (e *Engine) dataset(scaleName string, sequences int) []seq.Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	if records, ok := e.datasets[scaleName]; ok {
		return records
	}
	started := time.Now()
	records := seq.Generate(seq.GeneratorConfig{
		Seed:           e.cfg.Datasets.Seed,
		NumSequences:   sequences,
		SequenceLength: e.cfg.Datasets.SequenceLength,
		Profile:        e.cfg.Datasets.QualityProfile,
		NFraction:      0.01,
	})
	e.datasets[scaleName] = records
	e.metrics.generate.add(time.Since(started))

	return records
}

// Run executes every planned experiment and returns the report.
// Individual experiment failures are recorded as failed rows, only
// infrastructure errors abort the sweep.
func (e *Engine) Run(ctx context.Context) (results.Report, error) {
	started := time.Now()
	checkpointPath := ""
	if e.cfg.Output.Checkpoint != "" {
		checkpointPath = filepath.Join(e.cfg.Output.Dir, e.cfg.Output.Checkpoint)
	}

	stages := [2][]Experiment{}
	for _, exp := range e.plan.Experiments {
		if exp.Backend == ops.BackendScalar {
			stages[0] = append(stages[0], exp)
		} else {
			stages[1] = append(stages[1], exp)
		}
	}

	for _, stage := range stages {
		if err := e.runStage(ctx, stage, checkpointPath); err != nil {
			return results.Report{}, err
		}
	}

	if checkpointPath != "" {
		// Final checkpoint, regardless of how many experiments ran
		// since the last one.
		if err := e.saveCheckpoint(checkpointPath, true); err != nil {
			return results.Report{}, err
		}
	}

	report := e.report()
	if e.log != nil {
		e.log.Printf("sweep %s finished, %d experiments in %s",
			e.cfg.Metadata.Name, len(report.Experiments), time.Since(started).Round(time.Millisecond))
		e.log.Printf("avg per experiment: generate=%s run=%s persist=%s",
			e.metrics.generate.avg(), e.metrics.run.avg(), e.metrics.persist.avg())
	}

	return report, nil
}

func (e *Engine) runStage(ctx context.Context, stage []Experiment, checkpointPath string) error {
	grp, gCtx := errgroup.WithContext(ctx)
	grp.SetLimit(tuning.Workers(e.cfg.Execution.Workers, len(stage)))

	for _, exp := range stage {
		exp := exp
		if e.alreadyCompleted(exp.ID) {
			continue
		}
		grp.Go(func() error {
			e.runExperiment(gCtx, exp)
			if checkpointPath != "" {
				if err := e.saveCheckpoint(checkpointPath, false); err != nil {
					return err
				}
			}

			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				return nil
			}
		})
	}

	return errors.Wrap(grp.Wait(), "run stage")
}

func (e *Engine) alreadyCompleted(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.completed[id]

	return ok
}

func (e *Engine) runExperiment(ctx context.Context, exp Experiment) {
	e.plan.SetStatus(exp.ID, store.StatusRunning)
	defer func(started time.Time) {
		e.metrics.run.add(time.Since(started))
	}(time.Now())

	row := results.Experiment{
		ID:        exp.ID,
		Operation: exp.Operation,
		Backend:   exp.Backend,
		Scale:     seq.ScaleOf(exp.Sequences),
	}

	op, err := e.registry(exp.Params).Get(exp.Operation)
	if err == nil {
		records := e.dataset(exp.ScaleName, exp.Sequences)
		measurement, merr := bench.Measure(ctx, op, records, ops.ExecConfig{
			Backend: exp.Backend,
			Workers: e.cfg.Execution.Workers,
		}, bench.Options{
			WarmupRuns:   e.cfg.Execution.WarmupRuns,
			MeasuredRuns: e.cfg.Execution.MeasurementRuns,
			SkipVerify:   !e.cfg.Execution.Validate,
		})
		if merr != nil {
			err = merr
		} else {
			row = results.FromMeasurement(exp.ID, measurement)
		}
	}

	if err != nil {
		row.Status = "failed"
		row.Error = err.Error()
		e.plan.SetStatus(exp.ID, store.StatusFailed)
		if e.log != nil {
			e.log.Printf("experiment %s (%s) failed: %v", exp.ID, exp.label(), err)
		}
	} else {
		e.plan.SetStatus(exp.ID, store.StatusCompleted)
		if e.log != nil {
			e.log.Printf("experiment %s (%s) mean=%s", exp.ID, exp.label(), time.Duration(row.MeanNs))
		}
	}

	e.mu.Lock()
	e.completed[exp.ID] = row
	e.mu.Unlock()
}

// report assembles rows in plan order and fills in speedups against
// the scalar baselines.
func (e *Engine) report() results.Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows := make([]results.Experiment, 0, len(e.completed))
	for _, exp := range e.plan.Experiments {
		row, ok := e.completed[exp.ID]
		if !ok {
			continue
		}
		if row.Status == "completed" {
			row.Speedup = e.speedupLocked(exp, row)
			e.plan.SetSpeedup(exp.ID, row.Speedup)
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	return results.Report{
		Name:        e.cfg.Metadata.Name,
		Version:     e.cfg.Metadata.Version,
		GeneratedAt: time.Now().UTC(),
		Experiments: rows,
	}
}

func (e *Engine) speedupLocked(exp Experiment, row results.Experiment) float64 {
	if exp.Backend == ops.BackendScalar {
		return 1
	}
	baselineID, ok := e.plan.BaselineID(exp)
	if !ok {
		return 0
	}
	baseline, ok := e.completed[baselineID]
	if !ok || baseline.Status != "completed" || row.MeanNs == 0 {
		return 0
	}

	return float64(baseline.MeanNs) / float64(row.MeanNs)
}
