package ops_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqbench/seqbench/pkg/ops"
	"github.com/seqbench/seqbench/pkg/seq"
)

func TestQualityFilterKnownInput(t *testing.T) {
	t.Parallel()

	// 'I' is Q40, '#' is Q2.
	records := []seq.Record{
		seq.Fastq("good", []byte("ACGT"), []byte("IIII")),
		seq.Fastq("bad", []byte("ACGT"), []byte("####")),
		seq.Fasta("noqual", []byte("ACGT")),
	}
	op := ops.QualityFilter{MinMeanQuality: 20}

	out, err := op.Run(context.Background(), records, ops.ExecConfig{Backend: ops.BackendScalar})
	require.NoError(t, err)

	res := out.(ops.FilterResult)
	assert.Equal(t, 1, res.Passed)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 3, res.TotalSequences)
	assert.InDelta(t, 100.0/3.0, res.PassPercent, 1e-9)
}

func TestQualityFilterBackendsAgree(t *testing.T) {
	t.Parallel()

	runAllBackends(t, ops.QualityFilter{MinMeanQuality: 25}, testRecords(t, 500, 150))
}

func TestQualityStatisticsKnownInput(t *testing.T) {
	t.Parallel()

	// Position 0 holds Q30, Q40; position 1 holds Q30, Q20.
	records := []seq.Record{
		seq.Fastq("a", []byte("AC"), []byte("??")),
		seq.Fastq("b", []byte("GT"), []byte("I5")),
	}

	out, err := ops.QualityStatistics{}.Run(context.Background(), records, ops.ExecConfig{Backend: ops.BackendScalar})
	require.NoError(t, err)

	res := out.(ops.QualityStatsResult)
	require.Len(t, res.Positions, 2)
	assert.Equal(t, 2, res.NumReads)
	assert.InDelta(t, 35.0, res.Positions[0].Mean, 1e-9)
	assert.InDelta(t, 35.0, res.Positions[0].Median, 1e-9)
	assert.InDelta(t, 25.0, res.Positions[1].Mean, 1e-9)
	assert.InDelta(t, 30.0, res.OverallMean(), 1e-9)
	assert.Equal(t, []int{1}, res.LowQualityPositions(30))
}

func TestQualityStatisticsRaggedReads(t *testing.T) {
	t.Parallel()

	records := []seq.Record{
		seq.Fastq("long", []byte("ACGT"), []byte("IIII")),
		seq.Fastq("short", []byte("AC"), []byte("II")),
	}

	out, err := ops.QualityStatistics{}.Run(context.Background(), records, ops.ExecConfig{Backend: ops.BackendScalar})
	require.NoError(t, err)

	res := out.(ops.QualityStatsResult)
	require.Len(t, res.Positions, 4)
	assert.Equal(t, 2, res.Positions[0].Count)
	assert.Equal(t, 1, res.Positions[3].Count)
}

func TestQualityStatisticsBackendsAgree(t *testing.T) {
	t.Parallel()

	runAllBackends(t, ops.QualityStatistics{}, testRecords(t, 300, 150))
}
