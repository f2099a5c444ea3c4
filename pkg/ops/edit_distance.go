package ops

import (
	"context"

	"github.com/seqbench/seqbench/pkg/seq"
)

// DefaultMaxPairs caps the all-pairs edit distance matrix; the O(n²·L²)
// cost explodes past a few hundred reads.
const DefaultMaxPairs = 100

// EditDistance computes the all-pairs Levenshtein matrix over at most
// MaxSequences reads.
type EditDistance struct {
	// MaxSequences truncates the input; 0 means DefaultMaxPairs.
	MaxSequences int
}

func (EditDistance) Name() string       { return "edit_distance" }
func (EditDistance) Category() Category { return CategoryPairwise }
func (EditDistance) Backends() []Backend {
	return []Backend{BackendScalar, BackendTable, BackendParallel}
}

// levenshtein is the two-row Wagner-Fischer recurrence.
func levenshtein(a, b []byte) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d := prev[j] + 1 // deletion
			if ins := curr[j-1] + 1; ins < d {
				d = ins // insertion
			}
			if sub := prev[j-1] + cost; sub < d {
				d = sub // substitution
			}
			curr[j] = d
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// levenshteinBlocked keeps the same recurrence but hoists the equality
// tests for a whole row into a reusable buffer, trading a cheap
// sequential pass for branchier DP inner-loop work.
func levenshteinBlocked(a, b []byte, eq []bool) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		base := a[i-1]
		for j := 0; j < len(b); j++ {
			eq[j] = b[j] == base
		}

		curr[0] = i
		for j := 1; j <= len(b); j++ {
			d := prev[j] + 1
			if ins := curr[j-1] + 1; ins < d {
				d = ins
			}
			sub := prev[j-1]
			if !eq[j-1] {
				sub++
			}
			if sub < d {
				d = sub
			}
			curr[j] = d
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func (op EditDistance) limit(n int) int {
	max := op.MaxSequences
	if max <= 0 {
		max = DefaultMaxPairs
	}
	if n < max {
		return n
	}

	return max
}

func (op EditDistance) Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	records = records[:op.limit(len(records))]
	matrix := newMatrix(records)

	maxLen := 0
	for _, r := range records {
		if r.Len() > maxLen {
			maxLen = r.Len()
		}
	}

	fillRow := func(buf []bool) func(i int) error {
		return func(i int) error {
			for j := i + 1; j < len(records); j++ {
				var d int
				if buf != nil {
					d = levenshteinBlocked(records[i].Sequence, records[j].Sequence, buf)
				} else {
					d = levenshtein(records[i].Sequence, records[j].Sequence)
				}
				matrix.Distances[i][j] = d
				matrix.Distances[j][i] = d
			}

			return nil
		}
	}

	switch cfg.Backend {
	case BackendScalar:
		row := fillRow(nil)
		for i := range records {
			if err := row(i); err != nil {
				return nil, err
			}
		}
	case BackendTable:
		row := fillRow(make([]bool, maxLen))
		for i := range records {
			if err := row(i); err != nil {
				return nil, err
			}
		}
	case BackendParallel:
		// One equality buffer per row keeps workers allocation-free in
		// the inner loop without sharing state.
		if err := forEachIndex(ctx, len(records), cfg.Workers, func(i int) {
			_ = fillRow(make([]bool, maxLen))(i)
		}); err != nil {
			return nil, err
		}
	default:
		return nil, unsupported(op, cfg.Backend)
	}

	return matrix, nil
}
