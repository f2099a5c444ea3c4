package ops

import (
	"context"
	"encoding/binary"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/seqbench/seqbench/pkg/seq"
)

var ErrUnequalLengths = errors.New("sequences must have equal length for hamming distance")

// DistanceMatrix is a symmetric all-pairs distance matrix.
type DistanceMatrix struct {
	IDs       []string
	Distances [][]int
}

// Equal implements Output.
func (m DistanceMatrix) Equal(other Output) bool {
	o, ok := other.(DistanceMatrix)
	if !ok || len(m.Distances) != len(o.Distances) {
		return false
	}
	for i := range m.Distances {
		if len(m.Distances[i]) != len(o.Distances[i]) {
			return false
		}
		for j := range m.Distances[i] {
			if m.Distances[i][j] != o.Distances[i][j] {
				return false
			}
		}
	}

	return true
}

// Distance returns the distance between sequences i and j.
func (m DistanceMatrix) Distance(i, j int) int {
	return m.Distances[i][j]
}

// MeanDistance averages the upper triangle.
func (m DistanceMatrix) MeanDistance() float64 {
	n := len(m.Distances)
	if n < 2 {
		return 0
	}
	var sum, count float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += float64(m.Distances[i][j])
			count++
		}
	}

	return sum / count
}

// MinMaxDistance returns the extremes of the upper triangle.
func (m DistanceMatrix) MinMaxDistance() (min, max int) {
	n := len(m.Distances)
	first := true
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := m.Distances[i][j]
			if first {
				min, max = d, d
				first = false

				continue
			}
			if d < min {
				min = d
			}
			if d > max {
				max = d
			}
		}
	}

	return min, max
}

// HammingDistance computes the all-pairs mismatch-count matrix over
// equal-length sequences.
type HammingDistance struct{}

func (HammingDistance) Name() string       { return "hamming_distance" }
func (HammingDistance) Category() Category { return CategoryPairwise }
func (HammingDistance) Backends() []Backend {
	return []Backend{BackendScalar, BackendPacked, BackendParallel}
}

func hammingScalar(a, b []byte) (int, error) {
	if len(a) != len(b) {
		return 0, errors.Wrapf(ErrUnequalLengths, "%d vs %d", len(a), len(b))
	}
	mismatches := 0
	for i := range a {
		if a[i] != b[i] {
			mismatches++
		}
	}

	return mismatches, nil
}

// hammingPacked compares 8 bytes per step: XOR makes differing bytes
// non-zero, a SWAR mask collapses each lane to its high bit, and a
// popcount totals the lanes.
func hammingPacked(a, b []byte) (int, error) {
	if len(a) != len(b) {
		return 0, errors.Wrapf(ErrUnequalLengths, "%d vs %d", len(a), len(b))
	}

	const (
		lows = 0x0101010101010101
		high = 0x8080808080808080
	)

	mismatches := 0
	i := 0
	for ; i+8 <= len(a); i += 8 {
		x := binary.LittleEndian.Uint64(a[i:]) ^ binary.LittleEndian.Uint64(b[i:])
		// Per-lane "is non-zero": borrows out of a lane's low bit only
		// when the lane is zero, so the high bit survives for non-zero
		// lanes after masking.
		nonZero := (x | ((x | high) - lows)) & high
		mismatches += bits.OnesCount64(nonZero)
	}
	for ; i < len(a); i++ {
		if a[i] != b[i] {
			mismatches++
		}
	}

	return mismatches, nil
}

func (op HammingDistance) Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	kernel := hammingScalar
	switch cfg.Backend {
	case BackendScalar:
	case BackendPacked, BackendParallel:
		kernel = hammingPacked
	default:
		return nil, unsupported(op, cfg.Backend)
	}

	matrix := newMatrix(records)
	fillRow := func(i int) error {
		for j := i + 1; j < len(records); j++ {
			d, err := kernel(records[i].Sequence, records[j].Sequence)
			if err != nil {
				return errors.Wrapf(err, "pair (%d,%d)", i, j)
			}
			matrix.Distances[i][j] = d
			matrix.Distances[j][i] = d
		}

		return nil
	}

	if cfg.Backend == BackendParallel {
		if err := pairwiseParallel(ctx, len(records), cfg.Workers, fillRow); err != nil {
			return nil, err
		}

		return matrix, nil
	}

	for i := range records {
		if err := fillRow(i); err != nil {
			return nil, err
		}
	}

	return matrix, nil
}

func newMatrix(records []seq.Record) DistanceMatrix {
	ids := make([]string, len(records))
	distances := make([][]int, len(records))
	for i, r := range records {
		ids[i] = r.ID
		distances[i] = make([]int, len(records))
	}

	return DistanceMatrix{IDs: ids, Distances: distances}
}

// pairwiseParallel fans rows of the upper triangle out to workers. Rows
// write disjoint (i,j) and mirrored (j,i) cells with j > i, and row i is
// owned by exactly one worker, so writes never overlap.
func pairwiseParallel(ctx context.Context, n, workers int, fillRow func(i int) error) error {
	errs := make([]error, n)
	if err := forEachIndex(ctx, n, workers, func(i int) {
		errs[i] = fillRow(i)
	}); err != nil {
		return err
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}
