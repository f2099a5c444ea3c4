package bench_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqbench/seqbench/pkg/bench"
	"github.com/seqbench/seqbench/pkg/ops"
	"github.com/seqbench/seqbench/pkg/seq"
)

func benchRecords(t *testing.T) []seq.Record {
	t.Helper()

	return seq.Generate(seq.GeneratorConfig{
		Seed:           11,
		NumSequences:   200,
		SequenceLength: 150,
		Profile:        seq.QualityUniformHigh,
	})
}

func TestMeasureScalar(t *testing.T) {
	t.Parallel()

	records := benchRecords(t)
	result, err := bench.Measure(context.Background(), ops.GCContent{}, records,
		ops.ExecConfig{Backend: ops.BackendScalar}, bench.Options{MeasuredRuns: 3})
	require.NoError(t, err)

	assert.Equal(t, "gc_content", result.Operation)
	assert.Equal(t, ops.BackendScalar, result.Backend)
	assert.Equal(t, 200, result.NumSequences)
	assert.Equal(t, 200*150, result.TotalBases)
	assert.Equal(t, seq.ScaleTiny, result.Scale)
	assert.Len(t, result.Durations, 3)
	assert.True(t, result.Verified)
	assert.Greater(t, result.SequencesPerSecond, 0.0)
	assert.Greater(t, result.MBPerSecond, 0.0)
	assert.NotNil(t, result.Output)
}

func TestMeasureVerifiesAgainstBaseline(t *testing.T) {
	t.Parallel()

	records := benchRecords(t)
	result, err := bench.Measure(context.Background(), ops.GCContent{}, records,
		ops.ExecConfig{Backend: ops.BackendPacked}, bench.DefaultOptions())
	require.NoError(t, err)
	assert.True(t, result.Verified)
}

func TestMeasureRejectsZeroRuns(t *testing.T) {
	t.Parallel()

	_, err := bench.Measure(context.Background(), ops.GCContent{}, benchRecords(t),
		ops.ExecConfig{Backend: ops.BackendScalar}, bench.Options{})
	assert.ErrorIs(t, err, bench.ErrNoRuns)
}

func TestMeasureUnsupportedBackend(t *testing.T) {
	t.Parallel()

	_, err := bench.Measure(context.Background(), ops.GCContent{}, benchRecords(t),
		ops.ExecConfig{Backend: ops.Backend("gpu")}, bench.Options{MeasuredRuns: 1})
	assert.ErrorIs(t, err, ops.ErrBackendUnsupported)
}

type unstableOutput struct{}

func (unstableOutput) Equal(ops.Output) bool { return false }

type unstableOp struct{ calls *int }

func (unstableOp) Name() string            { return "unstable" }
func (unstableOp) Category() ops.Category  { return ops.CategoryElementWise }
func (unstableOp) Backends() []ops.Backend { return []ops.Backend{ops.BackendScalar, ops.BackendTable} }

func (op unstableOp) Run(context.Context, []seq.Record, ops.ExecConfig) (ops.Output, error) {
	*op.calls++

	return unstableOutput{}, nil
}

func TestMeasureReportsVerificationFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	result, err := bench.Measure(context.Background(), unstableOp{calls: &calls}, benchRecords(t),
		ops.ExecConfig{Backend: ops.BackendTable}, bench.Options{MeasuredRuns: 1})
	assert.ErrorIs(t, err, bench.ErrVerificationFailed)
	assert.False(t, result.Verified)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	stats := bench.Summarize([]time.Duration{
		4 * time.Millisecond,
		2 * time.Millisecond,
		6 * time.Millisecond,
	})

	assert.Equal(t, 4*time.Millisecond, stats.Mean)
	assert.Equal(t, 4*time.Millisecond, stats.Median)
	assert.Equal(t, 2*time.Millisecond, stats.Min)
	assert.Equal(t, 6*time.Millisecond, stats.Max)
	assert.Greater(t, stats.StdDev, time.Duration(0))
	assert.GreaterOrEqual(t, stats.P99, stats.Median)
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bench.Stats{}, bench.Summarize(nil))
}

func TestSpeedup(t *testing.T) {
	t.Parallel()

	baseline := bench.Result{Stats: bench.Stats{Mean: 100 * time.Millisecond}}
	fast := bench.Result{Stats: bench.Stats{Mean: 25 * time.Millisecond}}

	assert.InDelta(t, 4.0, fast.Speedup(baseline), 1e-12)
	assert.InDelta(t, 0.0, bench.Result{}.Speedup(baseline), 1e-12)
}
