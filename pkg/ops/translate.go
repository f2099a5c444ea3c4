package ops

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/seqbench/seqbench/pkg/seq"
)

// ErrBadFrame rejects reading frames outside 0..2.
var ErrBadFrame = errors.New("reading frame must be 0, 1, or 2")

// geneticCode is the standard genetic code (NCBI translation table 1).
// '*' marks stop codons.
var geneticCode = map[string]byte{
	"TTT": 'F', "TTC": 'F',
	"TTA": 'L', "TTG": 'L', "CTT": 'L', "CTC": 'L', "CTA": 'L', "CTG": 'L',
	"ATT": 'I', "ATC": 'I', "ATA": 'I',
	"ATG": 'M',
	"GTT": 'V', "GTC": 'V', "GTA": 'V', "GTG": 'V',
	"TCT": 'S', "TCC": 'S', "TCA": 'S', "TCG": 'S', "AGT": 'S', "AGC": 'S',
	"CCT": 'P', "CCC": 'P', "CCA": 'P', "CCG": 'P',
	"ACT": 'T', "ACC": 'T', "ACA": 'T', "ACG": 'T',
	"GCT": 'A', "GCC": 'A', "GCA": 'A', "GCG": 'A',
	"TAT": 'Y', "TAC": 'Y',
	"TAA": '*', "TAG": '*', "TGA": '*',
	"CAT": 'H', "CAC": 'H',
	"CAA": 'Q', "CAG": 'Q',
	"AAT": 'N', "AAC": 'N',
	"AAA": 'K', "AAG": 'K',
	"GAT": 'D', "GAC": 'D',
	"GAA": 'E', "GAG": 'E',
	"TGT": 'C', "TGC": 'C',
	"TGG": 'W',
	"CGT": 'R', "CGC": 'R', "CGA": 'R', "CGG": 'R', "AGA": 'R', "AGG": 'R',
	"GGT": 'G', "GGC": 'G', "GGA": 'G', "GGG": 'G',
}

// codonTable indexes the genetic code by the 2-bit codes of a codon's
// three bases, for the table backend.
var codonTable [64]byte

func init() {
	bases := []byte{'A', 'C', 'G', 'T'}
	for i, a := range bases {
		for j, b := range bases {
			for k, c := range bases {
				codonTable[i<<4|j<<2|k] = geneticCode[string([]byte{a, b, c})]
			}
		}
	}
}

// Translate converts reads to peptides using the standard genetic
// code. Translation starts at the configured reading frame and stops
// at the first stop codon; unknown codons become 'X'. Peptides shorter
// than MinPeptide are dropped, so the output may hold fewer records
// than the input.
type Translate struct {
	Frame      int
	MinPeptide int
}

func (Translate) Name() string       { return "translation" }
func (Translate) Category() Category { return CategoryElementWise }
func (Translate) Backends() []Backend {
	return []Backend{BackendScalar, BackendTable, BackendParallel}
}

func translateScalar(sequence []byte, frame int) []byte {
	var peptide []byte
	for i := frame; i+3 <= len(sequence); i += 3 {
		aa, ok := geneticCode[string(sequence[i:i+3])]
		if !ok {
			peptide = append(peptide, 'X')
			continue
		}
		if aa == '*' {
			break
		}
		peptide = append(peptide, aa)
	}

	return peptide
}

func translateTable(sequence []byte, frame int) []byte {
	var peptide []byte
	for i := frame; i+3 <= len(sequence); i += 3 {
		code, ok := codonCode(sequence[i], sequence[i+1], sequence[i+2])
		if !ok {
			peptide = append(peptide, 'X')
			continue
		}
		aa := codonTable[code]
		if aa == '*' {
			break
		}
		peptide = append(peptide, aa)
	}

	return peptide
}

// codonCode packs three bases into a 6-bit index. Any base outside
// ACGT makes the codon untranslatable.
func codonCode(a, b, c byte) (int, bool) {
	x, ok1 := nucCode(a)
	y, ok2 := nucCode(b)
	z, ok3 := nucCode(c)

	return x<<4 | y<<2 | z, ok1 && ok2 && ok3
}

func nucCode(base byte) (int, bool) {
	switch base {
	case 'A':
		return 0, true
	case 'C':
		return 1, true
	case 'G':
		return 2, true
	case 'T':
		return 3, true
	default:
		return 0, false
	}
}

func (op Translate) Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error) {
	if op.Frame < 0 || op.Frame > 2 {
		return nil, errors.Wrapf(ErrBadFrame, "frame %d", op.Frame)
	}

	kernel := translateScalar
	switch cfg.Backend {
	case BackendScalar:
	case BackendTable, BackendParallel:
		kernel = translateTable
	default:
		return nil, unsupported(op, cfg.Backend)
	}

	transform := func(r seq.Record) seq.Record {
		return seq.Record{
			ID:       fmt.Sprintf("%s_frame%d", r.ID, op.Frame),
			Sequence: kernel(r.Sequence, op.Frame),
		}
	}

	var translated []seq.Record
	var err error
	if cfg.Backend == BackendParallel {
		translated, err = mapRecords(ctx, records, cfg.Workers, transform)
		if err != nil {
			return nil, err
		}
	} else {
		translated = make([]seq.Record, len(records))
		for i, r := range records {
			translated[i] = transform(r)
		}
	}

	kept := translated[:0]
	for _, r := range translated {
		if len(r.Sequence) >= op.MinPeptide {
			kept = append(kept, r)
		}
	}

	return RecordsResult{Records: kept}, nil
}
