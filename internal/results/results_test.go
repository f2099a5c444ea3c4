package results_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqbench/seqbench/internal/results"
	"github.com/seqbench/seqbench/pkg/bench"
	"github.com/seqbench/seqbench/pkg/ops"
	"github.com/seqbench/seqbench/pkg/seq"
)

func sampleExperiments() []results.Experiment {
	return []results.Experiment{
		{
			ID: "exp_000001", Operation: "gc_content", Backend: ops.BackendScalar,
			Scale: seq.ScaleTiny, NumSequences: 100, TotalBases: 15000,
			MeanNs: 120000, Speedup: 1, Verified: true, Status: "completed",
		},
		{
			ID: "exp_000002", Operation: "gc_content", Backend: ops.BackendPacked,
			Scale: seq.ScaleTiny, NumSequences: 100, TotalBases: 15000,
			MeanNs: 30000, Speedup: 4, Verified: true, Status: "completed",
		},
		{
			ID: "exp_000003", Operation: "edit_distance", Backend: ops.BackendTable,
			Scale: seq.ScaleTiny, Status: "failed", Error: "context canceled",
		},
	}
}

func TestJSONRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.json")
	report := results.Report{
		Name:        "sweep",
		Version:     "1",
		GeneratedAt: time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC),
		Experiments: sampleExperiments(),
	}
	require.NoError(t, results.WriteJSON(path, report))

	loaded, err := results.ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, report, loaded)
}

func TestReadJSONMissing(t *testing.T) {
	t.Parallel()

	_, err := results.ReadJSON(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, results.WriteCSV(path, sampleExperiments()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "exp_000002", rows[2][0])
	assert.Equal(t, "packed", rows[2][2])
	assert.Equal(t, "4.000", rows[2][13])
	assert.Equal(t, "failed", rows[3][15])
	assert.Equal(t, "context canceled", rows[3][16])
}

func TestFromMeasurement(t *testing.T) {
	t.Parallel()

	m := bench.Result{
		Operation:          "hamming_distance",
		Backend:            ops.BackendPacked,
		Scale:              seq.ScaleSmall,
		NumSequences:       5000,
		TotalBases:         750000,
		Stats:              bench.Stats{Mean: 2 * time.Millisecond, Min: time.Millisecond, Max: 3 * time.Millisecond},
		SequencesPerSecond: 2.5e6,
		MBPerSecond:        357.6,
		Verified:           true,
	}

	e := results.FromMeasurement("exp_000042", m)
	assert.Equal(t, "exp_000042", e.ID)
	assert.Equal(t, "hamming_distance", e.Operation)
	assert.Equal(t, int64(2_000_000), e.MeanNs)
	assert.Equal(t, int64(1_000_000), e.MinNs)
	assert.True(t, e.Verified)
	assert.Equal(t, "completed", e.Status)
}
