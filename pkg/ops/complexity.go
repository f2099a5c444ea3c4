package ops

import (
	"context"

	"github.com/seqbench/seqbench/pkg/seq"
)

// Reads below lowComplexityCutoff are dust-like repeats, above
// highComplexityCutoff they use the full alphabet.
const (
	lowComplexityCutoff  = 0.4
	highComplexityCutoff = 0.7
)

// ComplexityResult aggregates per-read complexity scores.
type ComplexityResult struct {
	TotalSequences      int
	MeanComplexity      float64
	LowComplexityCount  int
	HighComplexityCount int
}

// Equal implements Output.
func (r ComplexityResult) Equal(other Output) bool {
	o, ok := other.(ComplexityResult)

	return ok && r.TotalSequences == o.TotalSequences &&
		r.LowComplexityCount == o.LowComplexityCount &&
		r.HighComplexityCount == o.HighComplexityCount &&
		floatEq(r.MeanComplexity, o.MeanComplexity)
}

type complexityAccum struct {
	num  int
	sum  float64
	low  int
	high int
}

func (a complexityAccum) add(b complexityAccum) complexityAccum {
	a.num += b.num
	a.sum += b.sum
	a.low += b.low
	a.high += b.high

	return a
}

// scoreComplexity is the ratio of distinct bases to the at most four
// possible ones, 0 for empty reads.
func scoreComplexity(sequence []byte) float64 {
	if len(sequence) == 0 {
		return 0
	}

	var seen [256]bool
	unique := 0
	for _, base := range sequence {
		if !seen[base] {
			seen[base] = true
			unique++
		}
	}

	maxUnique := len(sequence)
	if maxUnique > 4 {
		maxUnique = 4
	}

	return float64(unique) / float64(maxUnique)
}

func complexityScan(records []seq.Record) complexityAccum {
	var acc complexityAccum
	for _, r := range records {
		score := scoreComplexity(r.Sequence)
		acc.num++
		acc.sum += score
		if score < lowComplexityCutoff {
			acc.low++
		} else if score > highComplexityCutoff {
			acc.high++
		}
	}

	return acc
}

// ComplexityScore estimates per-read alphabet diversity.
type ComplexityScore struct{}

func (ComplexityScore) Name() string       { return "complexity_score" }
func (ComplexityScore) Category() Category { return CategoryElementWise }
func (ComplexityScore) Backends() []Backend {
	return []Backend{BackendScalar, BackendParallel}
}

func (op ComplexityScore) Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error) {
	var (
		acc complexityAccum
		err error
	)
	switch cfg.Backend {
	case BackendScalar:
		acc = complexityScan(records)
	case BackendParallel:
		acc, err = mapReduce(ctx, records, cfg.Workers, complexityScan, complexityAccum.add)
		if err != nil {
			return nil, err
		}
	default:
		return nil, unsupported(op, cfg.Backend)
	}

	result := ComplexityResult{
		TotalSequences:      acc.num,
		LowComplexityCount:  acc.low,
		HighComplexityCount: acc.high,
	}
	if acc.num > 0 {
		result.MeanComplexity = acc.sum / float64(acc.num)
	}

	return result, nil
}
