package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqbench/seqbench/internal/config"
	"github.com/seqbench/seqbench/internal/engine"
	"github.com/seqbench/seqbench/internal/results"
	"github.com/seqbench/seqbench/internal/store"
	"github.com/seqbench/seqbench/pkg/ops"
)

func sweepConfig(t *testing.T) config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Metadata.Name = "test-sweep"
	cfg.Datasets.Seed = 3
	cfg.Datasets.SequenceLength = 60
	cfg.Datasets.Scales = []config.Scale{{Name: "tiny", Sequences: 40}}
	cfg.Operations = []config.Operation{
		{Name: "gc_content"},
		{Name: "hamming_distance", Backends: []ops.Backend{ops.BackendScalar, ops.BackendPacked}},
	}
	cfg.Execution.WarmupRuns = 0
	cfg.Execution.MeasurementRuns = 1
	cfg.Execution.Workers = 2
	cfg.Execution.CheckpointInterval = 2
	cfg.Output.Dir = t.TempDir()

	return cfg
}

func TestBuildPlan(t *testing.T) {
	t.Parallel()

	plan, err := engine.BuildPlan(sweepConfig(t), ops.DefaultRegistry(ops.DefaultParams()))
	require.NoError(t, err)

	// gc_content sweeps all four backends, hamming two.
	assert.Len(t, plan.Experiments, 6)
	assert.Equal(t, "exp_000001", plan.Experiments[0].ID)

	var scalars, others int
	for _, exp := range plan.Experiments {
		if exp.Backend == ops.BackendScalar {
			scalars++
			continue
		}
		others++
		baseline, ok := plan.BaselineID(exp)
		require.True(t, ok, exp.ID)
		// The edge from baseline to experiment is in the graph.
		_, err := plan.Graph.Edge(baseline, exp.ID)
		require.NoError(t, err, exp.ID)
	}
	assert.Equal(t, 2, scalars)
	assert.Equal(t, 4, others)

	status, ok := plan.Store.Attribute("exp_000001", store.AttrStatus)
	require.True(t, ok)
	assert.Equal(t, store.StatusPending, status)
}

func TestBuildPlanAddsMissingBaseline(t *testing.T) {
	t.Parallel()

	cfg := sweepConfig(t)
	cfg.Operations = []config.Operation{
		{Name: "gc_content", Backends: []ops.Backend{ops.BackendPacked}},
	}

	plan, err := engine.BuildPlan(cfg, ops.DefaultRegistry(ops.DefaultParams()))
	require.NoError(t, err)
	require.Len(t, plan.Experiments, 2)
	assert.Equal(t, ops.BackendScalar, plan.Experiments[0].Backend)
	assert.Equal(t, ops.BackendPacked, plan.Experiments[1].Backend)
}

func TestBuildPlanRejectsUnknownOperation(t *testing.T) {
	t.Parallel()

	cfg := sweepConfig(t)
	cfg.Operations = []config.Operation{{Name: "transcribe"}}

	_, err := engine.BuildPlan(cfg, ops.DefaultRegistry(ops.DefaultParams()))
	assert.ErrorIs(t, err, ops.ErrOpNotFound)
}

func TestBuildPlanRejectsUnsupportedBackend(t *testing.T) {
	t.Parallel()

	cfg := sweepConfig(t)
	cfg.Operations = []config.Operation{
		{Name: "quality_statistics", Backends: []ops.Backend{ops.BackendPacked}},
	}

	_, err := engine.BuildPlan(cfg, ops.DefaultRegistry(ops.DefaultParams()))
	assert.ErrorIs(t, err, ops.ErrBackendUnsupported)
}

func TestRunSweep(t *testing.T) {
	t.Parallel()

	cfg := sweepConfig(t)
	eng, err := engine.New(cfg, nil)
	require.NoError(t, err)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Experiments, 6)

	for _, row := range report.Experiments {
		assert.Equal(t, "completed", row.Status, row.ID)
		assert.True(t, row.Verified, row.ID)
		assert.Equal(t, 40, row.NumSequences, row.ID)
		if row.Backend == ops.BackendScalar {
			assert.InDelta(t, 1.0, row.Speedup, 1e-12, row.ID)
		} else {
			assert.Greater(t, row.Speedup, 0.0, row.ID)
		}
	}

	// The final checkpoint covers the whole sweep.
	cp, err := engine.LoadCheckpoint(filepath.Join(cfg.Output.Dir, cfg.Output.Checkpoint))
	require.NoError(t, err)
	assert.Len(t, cp.Completed, 6)
	assert.Equal(t, "test-sweep", cp.ConfigName)
}

func TestRunSweepSparseCheckpointInterval(t *testing.T) {
	t.Parallel()

	// An interval larger than the sweep means no mid-run writes, the
	// final checkpoint still covers every experiment.
	cfg := sweepConfig(t)
	cfg.Execution.CheckpointInterval = 100
	eng, err := engine.New(cfg, nil)
	require.NoError(t, err)

	_, err = eng.Run(context.Background())
	require.NoError(t, err)

	cp, err := engine.LoadCheckpoint(filepath.Join(cfg.Output.Dir, cfg.Output.Checkpoint))
	require.NoError(t, err)
	assert.Len(t, cp.Completed, 6)
}

func TestRunSweepResume(t *testing.T) {
	t.Parallel()

	cfg := sweepConfig(t)
	eng, err := engine.New(cfg, nil)
	require.NoError(t, err)

	done := results.Experiment{
		ID: "exp_000001", Operation: "gc_content", Backend: ops.BackendScalar,
		MeanNs: 12345, Status: "completed", Verified: true, Speedup: 1,
	}
	eng.Resume(engine.Checkpoint{Completed: map[string]results.Experiment{done.ID: done}})

	report, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Experiments, 6)

	for _, row := range report.Experiments {
		if row.ID == done.ID {
			// The checkpointed measurement is reused, not rerun.
			assert.Equal(t, int64(12345), row.MeanNs)
		}
	}
}

func TestLoadCheckpointMissingFile(t *testing.T) {
	t.Parallel()

	cp, err := engine.LoadCheckpoint(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, cp.Completed)
}

func TestLoadCheckpointCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := engine.LoadCheckpoint(path)
	assert.Error(t, err)
}

func TestRunSweepCanceled(t *testing.T) {
	t.Parallel()

	cfg := sweepConfig(t)
	eng, err := engine.New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = eng.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
