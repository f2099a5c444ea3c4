package ops

import (
	"context"

	"github.com/seqbench/seqbench/pkg/seq"
)

// BaseCounts holds raw per-base tallies shared by the counting family.
type BaseCounts struct {
	A, C, G, T, N uint64
	// Other counts bytes outside ACGTN (case-insensitive).
	Other      uint64
	TotalBases uint64
}

func (c BaseCounts) add(other BaseCounts) BaseCounts {
	c.A += other.A
	c.C += other.C
	c.G += other.G
	c.T += other.T
	c.N += other.N
	c.Other += other.Other
	c.TotalBases += other.TotalBases

	return c
}

// valid returns the number of unambiguous bases.
func (c BaseCounts) valid() uint64 {
	return c.A + c.C + c.G + c.T
}

// Equal implements Output.
func (c BaseCounts) Equal(other Output) bool {
	o, ok := other.(BaseCounts)

	return ok && c == o
}

// baseClass maps a byte to its tally slot: 0..3 ACGT, 4 N, 5 other.
var baseClass [256]uint8

func init() {
	for i := range baseClass {
		baseClass[i] = 5
	}
	for _, p := range []struct {
		bases string
		class uint8
	}{
		{"Aa", 0}, {"Cc", 1}, {"Gg", 2}, {"Tt", 3}, {"Nn", 4},
	} {
		for i := 0; i < len(p.bases); i++ {
			baseClass[p.bases[i]] = p.class
		}
	}
}

func countScalar(records []seq.Record) BaseCounts {
	var counts BaseCounts
	for _, r := range records {
		counts.TotalBases += uint64(len(r.Sequence))
		for _, base := range r.Sequence {
			switch base {
			case 'A', 'a':
				counts.A++
			case 'C', 'c':
				counts.C++
			case 'G', 'g':
				counts.G++
			case 'T', 't':
				counts.T++
			case 'N', 'n':
				counts.N++
			default:
				counts.Other++
			}
		}
	}

	return counts
}

func countTable(records []seq.Record) BaseCounts {
	var slots [6]uint64
	var total uint64
	for _, r := range records {
		total += uint64(len(r.Sequence))
		for _, base := range r.Sequence {
			slots[baseClass[base]]++
		}
	}

	return BaseCounts{
		A: slots[0], C: slots[1], G: slots[2], T: slots[3],
		N: slots[4], Other: slots[5], TotalBases: total,
	}
}

// countPacked tallies through the 2-bit representation. Ambiguous bytes
// pack as code 00, so the A slot is corrected by a cheap pre-count of
// non-ACGT bytes.
func countPacked(records []seq.Record) BaseCounts {
	var counts BaseCounts
	for _, r := range records {
		counts.TotalBases += uint64(len(r.Sequence))

		var ambiguous uint64
		for _, base := range r.Sequence {
			if class := baseClass[base]; class >= 4 {
				if class == 4 {
					counts.N++
				} else {
					counts.Other++
				}
				ambiguous++
			}
		}

		packed := seq.Pack(r.Sequence)
		counts.A += uint64(packed.CountBase('A')) - ambiguous
		counts.C += uint64(packed.CountBase('C'))
		counts.G += uint64(packed.CountBase('G'))
		counts.T += uint64(packed.CountBase('T'))
	}

	return counts
}

// countBases dispatches the shared counting kernel.
func countBases(ctx context.Context, op Operation, records []seq.Record, cfg ExecConfig) (BaseCounts, error) {
	switch cfg.Backend {
	case BackendScalar:
		return countScalar(records), nil
	case BackendTable:
		return countTable(records), nil
	case BackendPacked:
		return countPacked(records), nil
	case BackendParallel:
		return mapReduce(ctx, records, cfg.Workers, countTable, BaseCounts.add)
	default:
		return BaseCounts{}, unsupported(op, cfg.Backend)
	}
}

var countBackends = []Backend{BackendScalar, BackendTable, BackendPacked, BackendParallel}

// BaseCounting counts A, C, G, T, N occurrences across the dataset.
type BaseCounting struct{}

func (BaseCounting) Name() string        { return "base_counting" }
func (BaseCounting) Category() Category  { return CategoryElementWise }
func (BaseCounting) Backends() []Backend { return countBackends }

func (op BaseCounting) Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error) {
	return countBases(ctx, op, records, cfg)
}

// GCResult reports GC composition. The percentage excludes ambiguous
// bases from the denominator.
type GCResult struct {
	CountG     uint64
	CountC     uint64
	CountGC    uint64
	CountAT    uint64
	CountN     uint64
	TotalBases uint64
	GCPercent  float64
}

// Equal implements Output.
func (r GCResult) Equal(other Output) bool {
	o, ok := other.(GCResult)
	if !ok {
		return false
	}

	return r.CountG == o.CountG && r.CountC == o.CountC &&
		r.CountGC == o.CountGC && r.CountAT == o.CountAT &&
		r.CountN == o.CountN && r.TotalBases == o.TotalBases &&
		floatEq(r.GCPercent, o.GCPercent)
}

// GCContent computes the fraction of G+C bases.
type GCContent struct{}

func (GCContent) Name() string        { return "gc_content" }
func (GCContent) Category() Category  { return CategoryElementWise }
func (GCContent) Backends() []Backend { return countBackends }

func (op GCContent) Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error) {
	counts, err := countBases(ctx, op, records, cfg)
	if err != nil {
		return nil, err
	}

	result := GCResult{
		CountG:     counts.G,
		CountC:     counts.C,
		CountGC:    counts.G + counts.C,
		CountAT:    counts.A + counts.T,
		CountN:     counts.N,
		TotalBases: counts.TotalBases,
	}
	if valid := counts.valid(); valid > 0 {
		result.GCPercent = float64(result.CountGC) / float64(valid) * 100
	}

	return result, nil
}

// ATResult reports AT composition.
type ATResult struct {
	CountAT    uint64
	TotalBases uint64
	ATPercent  float64
}

// Equal implements Output.
func (r ATResult) Equal(other Output) bool {
	o, ok := other.(ATResult)

	return ok && r.CountAT == o.CountAT && r.TotalBases == o.TotalBases &&
		floatEq(r.ATPercent, o.ATPercent)
}

// ATContent computes the fraction of A+T bases.
type ATContent struct{}

func (ATContent) Name() string        { return "at_content" }
func (ATContent) Category() Category  { return CategoryElementWise }
func (ATContent) Backends() []Backend { return countBackends }

func (op ATContent) Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error) {
	counts, err := countBases(ctx, op, records, cfg)
	if err != nil {
		return nil, err
	}

	result := ATResult{
		CountAT:    counts.A + counts.T,
		TotalBases: counts.TotalBases,
	}
	if valid := counts.valid(); valid > 0 {
		result.ATPercent = float64(result.CountAT) / float64(valid) * 100
	}

	return result, nil
}

// NContentResult reports the share of ambiguous bases across all bases,
// N included in the denominator.
type NContentResult struct {
	CountN     uint64
	TotalBases uint64
	NPercent   float64
}

// Equal implements Output.
func (r NContentResult) Equal(other Output) bool {
	o, ok := other.(NContentResult)

	return ok && r.CountN == o.CountN && r.TotalBases == o.TotalBases &&
		floatEq(r.NPercent, o.NPercent)
}

// NContent measures how many bases are ambiguous.
type NContent struct{}

func (NContent) Name() string        { return "n_content" }
func (NContent) Category() Category  { return CategoryElementWise }
func (NContent) Backends() []Backend { return countBackends }

func (op NContent) Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error) {
	counts, err := countBases(ctx, op, records, cfg)
	if err != nil {
		return nil, err
	}

	result := NContentResult{CountN: counts.N, TotalBases: counts.TotalBases}
	if counts.TotalBases > 0 {
		result.NPercent = float64(counts.N) / float64(counts.TotalBases) * 100
	}

	return result, nil
}
