package ops

import (
	"context"

	"github.com/seqbench/seqbench/pkg/seq"
)

// LengthResult summarizes read lengths across the dataset.
type LengthResult struct {
	NumSequences int
	TotalBases   uint64
	MinLength    int
	MaxLength    int
	MeanLength   float64
}

// Equal implements Output.
func (r LengthResult) Equal(other Output) bool {
	o, ok := other.(LengthResult)

	return ok && r.NumSequences == o.NumSequences && r.TotalBases == o.TotalBases &&
		r.MinLength == o.MinLength && r.MaxLength == o.MaxLength &&
		floatEq(r.MeanLength, o.MeanLength)
}

type lengthAccum struct {
	num   int
	total uint64
	min   int
	max   int
}

func (a lengthAccum) add(b lengthAccum) lengthAccum {
	if b.num == 0 {
		return a
	}
	if a.num == 0 {
		return b
	}
	a.num += b.num
	a.total += b.total
	if b.min < a.min {
		a.min = b.min
	}
	if b.max > a.max {
		a.max = b.max
	}

	return a
}

func lengthScan(records []seq.Record) lengthAccum {
	var acc lengthAccum
	for _, r := range records {
		n := r.Len()
		if acc.num == 0 {
			acc.min, acc.max = n, n
		} else {
			if n < acc.min {
				acc.min = n
			}
			if n > acc.max {
				acc.max = n
			}
		}
		acc.num++
		acc.total += uint64(n)
	}

	return acc
}

// SequenceLength computes min/max/mean read length.
type SequenceLength struct{}

func (SequenceLength) Name() string       { return "sequence_length" }
func (SequenceLength) Category() Category { return CategoryAggregation }
func (SequenceLength) Backends() []Backend {
	return []Backend{BackendScalar, BackendParallel}
}

func (op SequenceLength) Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error) {
	var (
		acc lengthAccum
		err error
	)
	switch cfg.Backend {
	case BackendScalar:
		acc = lengthScan(records)
	case BackendParallel:
		acc, err = mapReduce(ctx, records, cfg.Workers, lengthScan, lengthAccum.add)
		if err != nil {
			return nil, err
		}
	default:
		return nil, unsupported(op, cfg.Backend)
	}

	result := LengthResult{
		NumSequences: acc.num,
		TotalBases:   acc.total,
		MinLength:    acc.min,
		MaxLength:    acc.max,
	}
	if acc.num > 0 {
		result.MeanLength = float64(acc.total) / float64(acc.num)
	}

	return result, nil
}

// FilterResult reports pass/fail tallies of a filtering operation.
type FilterResult struct {
	Passed         int
	Failed         int
	TotalSequences int
	PassPercent    float64
}

// Equal implements Output.
func (r FilterResult) Equal(other Output) bool {
	o, ok := other.(FilterResult)

	return ok && r.Passed == o.Passed && r.Failed == o.Failed &&
		r.TotalSequences == o.TotalSequences && floatEq(r.PassPercent, o.PassPercent)
}

func (r FilterResult) finalize() FilterResult {
	r.TotalSequences = r.Passed + r.Failed
	if r.TotalSequences > 0 {
		r.PassPercent = float64(r.Passed) / float64(r.TotalSequences) * 100
	}

	return r
}

func (r FilterResult) add(other FilterResult) FilterResult {
	r.Passed += other.Passed
	r.Failed += other.Failed

	return r
}

// LengthFilter counts reads at or above a minimum length.
type LengthFilter struct {
	MinLength int
}

func (LengthFilter) Name() string       { return "length_filter" }
func (LengthFilter) Category() Category { return CategoryFilter }
func (LengthFilter) Backends() []Backend {
	return []Backend{BackendScalar, BackendParallel}
}

func (op LengthFilter) Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error) {
	scan := func(chunk []seq.Record) FilterResult {
		var res FilterResult
		for _, r := range chunk {
			if r.Len() >= op.MinLength {
				res.Passed++
			} else {
				res.Failed++
			}
		}

		return res
	}

	switch cfg.Backend {
	case BackendScalar:
		return scan(records).finalize(), nil
	case BackendParallel:
		res, err := mapReduce(ctx, records, cfg.Workers, scan, FilterResult.add)
		if err != nil {
			return nil, err
		}

		return res.finalize(), nil
	default:
		return nil, unsupported(op, cfg.Backend)
	}
}
