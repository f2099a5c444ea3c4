package ops

import (
	"context"

	"github.com/seqbench/seqbench/pkg/seq"
)

// MaskLowQuality replaces bases whose Phred score falls below the
// threshold with 'N'. Quality strings are kept as they are, and reads
// without quality pass through unchanged.
type MaskLowQuality struct {
	// MinQuality is the Phred threshold, bases strictly below it are
	// masked.
	MinQuality int
}

func (MaskLowQuality) Name() string       { return "sequence_masking" }
func (MaskLowQuality) Category() Category { return CategoryElementWise }
func (MaskLowQuality) Backends() []Backend {
	return []Backend{BackendScalar, BackendTable, BackendParallel}
}

func maskScalar(r seq.Record, cutoff byte) seq.Record {
	if r.Quality == nil {
		return r
	}
	out := make([]byte, len(r.Sequence))
	for i, base := range r.Sequence {
		if r.Quality[i] < cutoff {
			out[i] = 'N'
		} else {
			out[i] = base
		}
	}

	return seq.Record{ID: r.ID, Sequence: out, Quality: r.Quality}
}

// maskTable precomputes the keep decision for every quality byte, so
// the inner loop is a single indexed load per base.
func maskTable(cutoff byte) func(seq.Record) seq.Record {
	var keep [256]bool
	for q := int(cutoff); q < 256; q++ {
		keep[q] = true
	}

	return func(r seq.Record) seq.Record {
		if r.Quality == nil {
			return r
		}
		out := make([]byte, len(r.Sequence))
		for i, base := range r.Sequence {
			if keep[r.Quality[i]] {
				out[i] = base
			} else {
				out[i] = 'N'
			}
		}

		return seq.Record{ID: r.ID, Sequence: out, Quality: r.Quality}
	}
}

func (op MaskLowQuality) Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error) {
	cutoff := byte(phredOffset + op.MinQuality)

	switch cfg.Backend {
	case BackendScalar:
		out := make([]seq.Record, len(records))
		for i, r := range records {
			out[i] = maskScalar(r, cutoff)
		}

		return RecordsResult{Records: out}, nil
	case BackendTable:
		kernel := maskTable(cutoff)
		out := make([]seq.Record, len(records))
		for i, r := range records {
			out[i] = kernel(r)
		}

		return RecordsResult{Records: out}, nil
	case BackendParallel:
		out, err := mapRecords(ctx, records, cfg.Workers, maskTable(cutoff))
		if err != nil {
			return nil, err
		}

		return RecordsResult{Records: out}, nil
	default:
		return nil, unsupported(op, cfg.Backend)
	}
}
