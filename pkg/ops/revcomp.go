package ops

import (
	"context"

	"github.com/seqbench/seqbench/pkg/seq"
)

// RecordsResult wraps transformed records produced by an operation.
type RecordsResult struct {
	Records []seq.Record
}

// Equal implements Output. Record order matters.
func (r RecordsResult) Equal(other Output) bool {
	o, ok := other.(RecordsResult)
	if !ok || len(r.Records) != len(o.Records) {
		return false
	}
	for i := range r.Records {
		a, b := r.Records[i], o.Records[i]
		if a.ID != b.ID || string(a.Sequence) != string(b.Sequence) || string(a.Quality) != string(b.Quality) {
			return false
		}
	}

	return true
}

// ReverseComplement reverses each read and complements its bases.
// Quality strings are reversed alongside, as aligners expect.
type ReverseComplement struct{}

func (ReverseComplement) Name() string       { return "reverse_complement" }
func (ReverseComplement) Category() Category { return CategoryElementWise }
func (ReverseComplement) Backends() []Backend {
	return []Backend{BackendScalar, BackendTable, BackendPacked, BackendParallel}
}

func revCompScalar(r seq.Record) seq.Record {
	out := make([]byte, len(r.Sequence))
	for i, base := range r.Sequence {
		var c byte
		switch base {
		case 'A':
			c = 'T'
		case 'T':
			c = 'A'
		case 'C':
			c = 'G'
		case 'G':
			c = 'C'
		case 'a':
			c = 't'
		case 't':
			c = 'a'
		case 'c':
			c = 'g'
		case 'g':
			c = 'c'
		default:
			c = base
		}
		out[len(out)-1-i] = c
	}

	return seq.Record{ID: r.ID, Sequence: out, Quality: reverseQuality(r.Quality)}
}

func revCompTable(r seq.Record) seq.Record {
	out := make([]byte, len(r.Sequence))
	for i, base := range r.Sequence {
		out[len(out)-1-i] = seq.ComplementBase(base)
	}

	return seq.Record{ID: r.ID, Sequence: out, Quality: reverseQuality(r.Quality)}
}

// revCompPacked round-trips through the 2-bit form. Reads containing
// ambiguous bases cannot survive packing, so those take the table path;
// this mirrors how 2-bit pipelines treat N-containing reads specially.
func revCompPacked(r seq.Record) seq.Record {
	for _, base := range r.Sequence {
		switch base {
		case 'A', 'C', 'G', 'T':
		default:
			// Lowercase or ambiguous bases do not survive packing.
			return revCompTable(r)
		}
	}
	packed := seq.Pack(r.Sequence)

	return seq.Record{
		ID:       r.ID,
		Sequence: packed.ReverseComplement().Unpack(),
		Quality:  reverseQuality(r.Quality),
	}
}

func reverseQuality(quality []byte) []byte {
	if quality == nil {
		return nil
	}
	out := make([]byte, len(quality))
	for i, q := range quality {
		out[len(out)-1-i] = q
	}

	return out
}

func (op ReverseComplement) Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error) {
	perRecord := map[Backend]func(seq.Record) seq.Record{
		BackendScalar: revCompScalar,
		BackendTable:  revCompTable,
		BackendPacked: revCompPacked,
	}

	if kernel, ok := perRecord[cfg.Backend]; ok {
		out := make([]seq.Record, len(records))
		for i, r := range records {
			out[i] = kernel(r)
		}

		return RecordsResult{Records: out}, nil
	}

	if cfg.Backend != BackendParallel {
		return nil, unsupported(op, cfg.Backend)
	}

	out, err := mapRecords(ctx, records, cfg.Workers, revCompTable)
	if err != nil {
		return nil, err
	}

	return RecordsResult{Records: out}, nil
}
