package ops_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqbench/seqbench/pkg/ops"
	"github.com/seqbench/seqbench/pkg/seq"
)

func TestReverseComplementKnownInput(t *testing.T) {
	t.Parallel()

	records := []seq.Record{
		seq.Fastq("r1", []byte("ACGT"), []byte("IFC#")),
		seq.Fasta("r2", []byte("AANTT")),
		seq.Fasta("r3", []byte("acgt")),
	}

	for _, backend := range (ops.ReverseComplement{}).Backends() {
		out, err := ops.ReverseComplement{}.Run(context.Background(), records, ops.ExecConfig{Backend: backend})
		require.NoError(t, err, backend)

		res := out.(ops.RecordsResult)
		require.Len(t, res.Records, 3, backend)
		assert.Equal(t, "ACGT", string(res.Records[0].Sequence), backend)
		assert.Equal(t, "#CFI", string(res.Records[0].Quality), backend)
		assert.Equal(t, "AANTT", string(res.Records[1].Sequence), backend)
		assert.Equal(t, "acgt", string(res.Records[2].Sequence), backend)
	}
}

func TestReverseComplementIsInvolution(t *testing.T) {
	t.Parallel()

	records := testRecords(t, 100, 53)
	op := ops.ReverseComplement{}

	once, err := op.Run(context.Background(), records, ops.ExecConfig{Backend: ops.BackendPacked})
	require.NoError(t, err)
	twice, err := op.Run(context.Background(), once.(ops.RecordsResult).Records, ops.ExecConfig{Backend: ops.BackendPacked})
	require.NoError(t, err)

	assert.True(t, ops.RecordsResult{Records: records}.Equal(twice))
}

func TestReverseComplementBackendsAgree(t *testing.T) {
	t.Parallel()

	runAllBackends(t, ops.ReverseComplement{}, testRecords(t, 200, 150))
}

func TestComplexityScoreKnownInput(t *testing.T) {
	t.Parallel()

	records := []seq.Record{
		seq.Fasta("poly", []byte("AAAAAAAA")),   // 1 of 4 bases, score 0.25
		seq.Fasta("dimer", []byte("ATATATAT")),  // 2 of 4 bases, score 0.5
		seq.Fasta("full", []byte("ACGTACGT")),   // all 4 bases, score 1
		seq.Fasta("single", []byte("A")),        // shorter than the alphabet
	}

	out, err := ops.ComplexityScore{}.Run(context.Background(), records, ops.ExecConfig{Backend: ops.BackendScalar})
	require.NoError(t, err)

	res := out.(ops.ComplexityResult)
	assert.Equal(t, 4, res.TotalSequences)
	assert.Equal(t, 1, res.LowComplexityCount)
	assert.Equal(t, 2, res.HighComplexityCount)
	assert.InDelta(t, (0.25+0.5+1+1)/4, res.MeanComplexity, 1e-9)
}

func TestComplexityScoreBackendsAgree(t *testing.T) {
	t.Parallel()

	runAllBackends(t, ops.ComplexityScore{}, testRecords(t, 400, 150))
}

func TestSequenceLengthKnownInput(t *testing.T) {
	t.Parallel()

	records := []seq.Record{
		seq.Fasta("a", []byte("ACGT")),
		seq.Fasta("b", []byte("AC")),
		seq.Fasta("c", []byte("ACGTACGTAC")),
	}

	out, err := ops.SequenceLength{}.Run(context.Background(), records, ops.ExecConfig{Backend: ops.BackendScalar})
	require.NoError(t, err)

	res := out.(ops.LengthResult)
	assert.Equal(t, 3, res.NumSequences)
	assert.Equal(t, uint64(16), res.TotalBases)
	assert.Equal(t, 2, res.MinLength)
	assert.Equal(t, 10, res.MaxLength)
	assert.InDelta(t, 16.0/3.0, res.MeanLength, 1e-9)
}

func TestSequenceLengthBackendsAgree(t *testing.T) {
	t.Parallel()

	runAllBackends(t, ops.SequenceLength{}, testRecords(t, 500, 150))
}

func TestLengthFilterKnownInput(t *testing.T) {
	t.Parallel()

	records := []seq.Record{
		seq.Fasta("short", []byte("ACG")),
		seq.Fasta("exact", []byte("ACGTA")),
		seq.Fasta("long", []byte("ACGTACGT")),
	}

	out, err := ops.LengthFilter{MinLength: 5}.Run(context.Background(), records, ops.ExecConfig{Backend: ops.BackendScalar})
	require.NoError(t, err)

	res := out.(ops.FilterResult)
	assert.Equal(t, 2, res.Passed)
	assert.Equal(t, 1, res.Failed)
	assert.InDelta(t, 200.0/3.0, res.PassPercent, 1e-9)
}

func TestLengthFilterBackendsAgree(t *testing.T) {
	t.Parallel()

	runAllBackends(t, ops.LengthFilter{MinLength: 150}, testRecords(t, 500, 150))
}
