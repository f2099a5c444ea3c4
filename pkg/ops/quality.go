package ops

import (
	"context"
	"sort"

	"github.com/seqbench/seqbench/pkg/seq"
)

// phredOffset converts ASCII quality bytes to Phred scores.
const phredOffset = 33

// QualityFilter counts reads whose mean Phred score reaches a minimum.
// Reads without quality scores fail the filter.
type QualityFilter struct {
	MinMeanQuality float64
}

func (QualityFilter) Name() string       { return "quality_filter" }
func (QualityFilter) Category() Category { return CategoryFilter }
func (QualityFilter) Backends() []Backend {
	return []Backend{BackendScalar, BackendParallel}
}

func meanPhred(quality []byte) float64 {
	if len(quality) == 0 {
		return 0
	}
	var sum uint64
	for _, q := range quality {
		sum += uint64(q)
	}

	return float64(sum)/float64(len(quality)) - phredOffset
}

func (op QualityFilter) Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error) {
	scan := func(chunk []seq.Record) FilterResult {
		var res FilterResult
		for _, r := range chunk {
			if r.HasQuality() && meanPhred(r.Quality) >= op.MinMeanQuality {
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

// PositionStats summarizes quality scores observed at one read position.
type PositionStats struct {
	Mean   float64
	Median float64
	Q1     float64
	Q3     float64
	Count  int
}

func (p PositionStats) equal(o PositionStats) bool {
	return p.Count == o.Count && floatEq(p.Mean, o.Mean) &&
		floatEq(p.Median, o.Median) && floatEq(p.Q1, o.Q1) && floatEq(p.Q3, o.Q3)
}

// QualityStatsResult carries per-position quality distributions, the
// FastQC-style per-base report.
type QualityStatsResult struct {
	Positions []PositionStats
	NumReads  int
}

// Equal implements Output.
func (r QualityStatsResult) Equal(other Output) bool {
	o, ok := other.(QualityStatsResult)
	if !ok || r.NumReads != o.NumReads || len(r.Positions) != len(o.Positions) {
		return false
	}
	for i := range r.Positions {
		if !r.Positions[i].equal(o.Positions[i]) {
			return false
		}
	}

	return true
}

// OverallMean averages the per-position means, weighted by count.
func (r QualityStatsResult) OverallMean() float64 {
	var sum float64
	var n int
	for _, p := range r.Positions {
		sum += p.Mean * float64(p.Count)
		n += p.Count
	}
	if n == 0 {
		return 0
	}

	return sum / float64(n)
}

// LowQualityPositions returns positions whose mean falls below threshold.
func (r QualityStatsResult) LowQualityPositions(threshold float64) []int {
	var out []int
	for i, p := range r.Positions {
		if p.Count > 0 && p.Mean < threshold {
			out = append(out, i)
		}
	}

	return out
}

// QualityStatistics computes per-position quality distributions.
type QualityStatistics struct{}

func (QualityStatistics) Name() string       { return "quality_statistics" }
func (QualityStatistics) Category() Category { return CategoryAggregation }
func (QualityStatistics) Backends() []Backend {
	return []Backend{BackendScalar, BackendParallel}
}

// columns transposes quality bytes into per-position slices.
func columns(records []seq.Record) [][]byte {
	maxLen := 0
	for _, r := range records {
		if len(r.Quality) > maxLen {
			maxLen = len(r.Quality)
		}
	}

	cols := make([][]byte, maxLen)
	for _, r := range records {
		for i, q := range r.Quality {
			cols[i] = append(cols[i], q)
		}
	}

	return cols
}

func positionStats(qualities []byte) PositionStats {
	if len(qualities) == 0 {
		return PositionStats{}
	}

	var sum uint64
	for _, q := range qualities {
		sum += uint64(q) - phredOffset
	}

	sorted := make([]byte, len(qualities))
	copy(sorted, qualities)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return PositionStats{
		Mean:   float64(sum) / float64(len(qualities)),
		Median: percentile(sorted, 50),
		Q1:     percentile(sorted, 25),
		Q3:     percentile(sorted, 75),
		Count:  len(qualities),
	}
}

// percentile interpolates linearly over sorted Phred+33 bytes.
func percentile(sorted []byte, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return float64(sorted[0]) - phredOffset
	}

	rank := pct / 100 * float64(len(sorted)-1)
	lo := int(rank)
	frac := rank - float64(lo)
	if lo+1 >= len(sorted) {
		return float64(sorted[len(sorted)-1]) - phredOffset
	}

	a := float64(sorted[lo]) - phredOffset
	b := float64(sorted[lo+1]) - phredOffset

	return a + frac*(b-a)
}

func (op QualityStatistics) Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error) {
	cols := columns(records)
	result := QualityStatsResult{
		Positions: make([]PositionStats, len(cols)),
		NumReads:  len(records),
	}

	switch cfg.Backend {
	case BackendScalar:
		for i, col := range cols {
			result.Positions[i] = positionStats(col)
		}
	case BackendParallel:
		// Positions are independent, so the fan-out is per column.
		if err := forEachIndex(ctx, len(cols), cfg.Workers, func(i int) {
			result.Positions[i] = positionStats(cols[i])
		}); err != nil {
			return nil, err
		}
	default:
		return nil, unsupported(op, cfg.Backend)
	}

	return result, nil
}
