package seq

// Record is a single sequencing read, FASTA or FASTQ.
type Record struct {
	// ID is the header without the leading '>' or '@'.
	ID string
	// Sequence holds the bases (A, C, G, T, N; upper or lower case).
	Sequence []byte
	// Quality holds Phred+33 scores, nil for FASTA records.
	Quality []byte
}

// Fasta builds a record without quality scores.
func Fasta(id string, sequence []byte) Record {
	return Record{ID: id, Sequence: sequence}
}

// Fastq builds a record with quality scores.
func Fastq(id string, sequence, quality []byte) Record {
	return Record{ID: id, Sequence: sequence, Quality: quality}
}

// Len returns the number of bases.
func (r Record) Len() int {
	return len(r.Sequence)
}

// HasQuality reports whether the record carries quality scores.
func (r Record) HasQuality() bool {
	return r.Quality != nil
}

// TotalBases sums the lengths of all records.
func TotalBases(records []Record) int {
	total := 0
	for _, r := range records {
		total += r.Len()
	}

	return total
}

// Scale buckets a dataset by its number of sequences.
type Scale string

const (
	ScaleTiny      Scale = "tiny"      // <1K sequences
	ScaleSmall     Scale = "small"     // 1K-10K
	ScaleMedium    Scale = "medium"    // 10K-100K
	ScaleLarge     Scale = "large"     // 100K-1M
	ScaleVeryLarge Scale = "verylarge" // 1M-10M
	ScaleHuge      Scale = "huge"      // >10M
)

// ScaleOf returns the scale category for a sequence count.
func ScaleOf(numSequences int) Scale {
	switch {
	case numSequences < 1_000:
		return ScaleTiny
	case numSequences < 10_000:
		return ScaleSmall
	case numSequences < 100_000:
		return ScaleMedium
	case numSequences < 1_000_000:
		return ScaleLarge
	case numSequences < 10_000_000:
		return ScaleVeryLarge
	default:
		return ScaleHuge
	}
}
