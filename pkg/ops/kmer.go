package ops

import (
	"context"

	"github.com/pkg/errors"

	"github.com/seqbench/seqbench/pkg/seq"
)

var ErrBadKmerSize = errors.New("k must be between 1 and 32")

// KmerCounts maps k-mers to their occurrence counts. Only uppercase
// ACGT k-mers are counted; windows containing other bytes are skipped.
type KmerCounts struct {
	K          int
	Canonical  bool
	Counts     map[string]uint64
	TotalKmers uint64
}

// Equal implements Output.
func (r KmerCounts) Equal(other Output) bool {
	o, ok := other.(KmerCounts)
	if !ok || r.K != o.K || r.Canonical != o.Canonical ||
		r.TotalKmers != o.TotalKmers || len(r.Counts) != len(o.Counts) {
		return false
	}
	for kmer, count := range r.Counts {
		if o.Counts[kmer] != count {
			return false
		}
	}

	return true
}

// Distinct returns the number of distinct k-mers observed.
func (r KmerCounts) Distinct() int { return len(r.Counts) }

// KmerCounting tallies k-mer occurrences across the dataset.
type KmerCounting struct {
	K int
	// Canonical folds each k-mer with its reverse complement, keeping
	// the lexicographically smaller of the two.
	Canonical bool
}

func (KmerCounting) Name() string       { return "kmer_counting" }
func (KmerCounting) Category() Category { return CategorySearch }
func (KmerCounting) Backends() []Backend {
	return []Backend{BackendScalar, BackendPacked, BackendParallel}
}

func validKmer(kmer []byte) bool {
	for _, b := range kmer {
		switch b {
		case 'A', 'C', 'G', 'T':
		default:
			return false
		}
	}

	return true
}

func revCompKmer(kmer string) string {
	out := make([]byte, len(kmer))
	for i := 0; i < len(kmer); i++ {
		out[len(kmer)-1-i] = seq.ComplementBase(kmer[i])
	}

	return string(out)
}

func (op KmerCounting) countScalar(records []seq.Record) KmerCounts {
	result := KmerCounts{K: op.K, Canonical: op.Canonical, Counts: make(map[string]uint64)}
	for _, r := range records {
		if r.Len() < op.K {
			continue
		}
		for i := 0; i+op.K <= r.Len(); i++ {
			window := r.Sequence[i : i+op.K]
			if !validKmer(window) {
				continue
			}
			kmer := string(window)
			if op.Canonical {
				if rc := revCompKmer(kmer); rc < kmer {
					kmer = rc
				}
			}
			result.Counts[kmer]++
			result.TotalKmers++
		}
	}

	return result
}

// countPacked keeps a rolling 2-bit code per window. With MSB-first
// codes, numeric order equals lexicographic order, so canonical
// selection is a plain min of the forward and reverse-complement codes.
func (op KmerCounting) countPacked(records []seq.Record) KmerCounts {
	result := KmerCounts{K: op.K, Canonical: op.Canonical, Counts: make(map[string]uint64)}
	packed := make(map[uint64]uint64)

	k := uint(op.K)
	mask := uint64(1)<<(2*k) - 1
	if op.K == 32 {
		mask = ^uint64(0)
	}
	rcShift := 2 * (k - 1)

	for _, r := range records {
		var fwd, rc uint64
		run := 0
		for _, base := range r.Sequence {
			var code uint64
			switch base {
			case 'A':
				code = 0
			case 'C':
				code = 1
			case 'G':
				code = 2
			case 'T':
				code = 3
			default:
				run = 0

				continue
			}
			fwd = (fwd<<2 | code) & mask
			rc = (rc >> 2) | (code^0b11)<<rcShift
			run++
			if run < op.K {
				continue
			}
			key := fwd
			if op.Canonical && rc < fwd {
				key = rc
			}
			packed[key]++
			result.TotalKmers++
		}
	}

	for code, count := range packed {
		result.Counts[decodeKmer(code, op.K)] = count
	}

	return result
}

func decodeKmer(code uint64, k int) string {
	out := make([]byte, k)
	for i := k - 1; i >= 0; i-- {
		out[i] = [4]byte{'A', 'C', 'G', 'T'}[code&0b11]
		code >>= 2
	}

	return string(out)
}

func (r KmerCounts) merge(other KmerCounts) KmerCounts {
	if r.Counts == nil {
		return other
	}
	for kmer, count := range other.Counts {
		r.Counts[kmer] += count
	}
	r.TotalKmers += other.TotalKmers

	return r
}

func (op KmerCounting) Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error) {
	if op.K < 1 || op.K > 32 {
		return nil, errors.Wrapf(ErrBadKmerSize, "k=%d", op.K)
	}

	switch cfg.Backend {
	case BackendScalar:
		return op.countScalar(records), nil
	case BackendPacked:
		return op.countPacked(records), nil
	case BackendParallel:
		return mapReduce(ctx, records, cfg.Workers, op.countPacked, KmerCounts.merge)
	default:
		return nil, unsupported(op, cfg.Backend)
	}
}
