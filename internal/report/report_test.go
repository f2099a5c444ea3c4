package report_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqbench/seqbench/internal/config"
	"github.com/seqbench/seqbench/internal/engine"
	"github.com/seqbench/seqbench/internal/report"
	"github.com/seqbench/seqbench/internal/store"
	"github.com/seqbench/seqbench/pkg/ops"
)

func testPlan(t *testing.T) *engine.Plan {
	t.Helper()

	cfg := config.Default()
	cfg.Datasets.Scales = []config.Scale{{Name: "tiny", Sequences: 100}}
	cfg.Operations = []config.Operation{
		{Name: "gc_content", Backends: []ops.Backend{ops.BackendScalar, ops.BackendPacked}},
	}

	plan, err := engine.BuildPlan(cfg, ops.DefaultRegistry(ops.DefaultParams()))
	require.NoError(t, err)

	return plan
}

func TestRender(t *testing.T) {
	t.Parallel()

	plan := testPlan(t)
	plan.SetStatus("exp_000001", store.StatusCompleted)
	plan.SetSpeedup("exp_000001", 1)
	plan.SetStatus("exp_000002", store.StatusFailed)

	var buf bytes.Buffer
	require.NoError(t, report.Render(plan, &buf))
	out := buf.String()

	assert.Contains(t, out, "strict digraph")
	assert.Contains(t, out, `"exp_000001"`)
	assert.Contains(t, out, `"exp_000001" -> "exp_000002"`)
	assert.Contains(t, out, "gc_content scalar tiny")
	assert.Contains(t, out, "1.00x")
}

func TestDraw(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plan.dot")
	require.NoError(t, report.Draw(testPlan(t), path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "strict digraph")
}

func TestRenderStatusColors(t *testing.T) {
	t.Parallel()

	plan := testPlan(t)
	plan.SetStatus("exp_000001", store.StatusCompleted)
	plan.SetSpeedup("exp_000001", 8)
	plan.SetStatus("exp_000002", store.StatusSkipped)

	var buf bytes.Buffer
	require.NoError(t, report.Render(plan, &buf))
	out := buf.String()

	// High speedups render darker green than the baseline white.
	assert.Contains(t, out, "lightyellow")
	assert.NotContains(t, out, `fillcolor="white"`)
}
