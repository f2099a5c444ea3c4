package seq

import (
	"fmt"
	"math/rand"
)

// QualityProfile shapes the synthetic Phred scores of generated reads.
type QualityProfile string

const (
	// QualityUniformHigh keeps every position around Q40.
	QualityUniformHigh QualityProfile = "uniform_high"
	// QualityDegrading ramps from Q40 down to Q20 across the read,
	// the typical Illumina shape.
	QualityDegrading QualityProfile = "degrading"
	// QualityRealistic is degrading plus occasional low-quality drops.
	QualityRealistic QualityProfile = "realistic"
)

// GeneratorConfig describes a synthetic dataset.
type GeneratorConfig struct {
	Seed           int64
	NumSequences   int
	SequenceLength int
	Profile        QualityProfile
	// NFraction is the probability of emitting an N at any position.
	NFraction float64
}

// Generate produces a deterministic synthetic FASTQ dataset. The same
// config always yields byte-identical records.
func Generate(cfg GeneratorConfig) []Record {
	rng := rand.New(rand.NewSource(cfg.Seed))
	bases := [4]byte{'A', 'C', 'G', 'T'}

	records := make([]Record, 0, cfg.NumSequences)
	for i := 0; i < cfg.NumSequences; i++ {
		sequence := make([]byte, cfg.SequenceLength)
		for j := range sequence {
			if cfg.NFraction > 0 && rng.Float64() < cfg.NFraction {
				sequence[j] = 'N'

				continue
			}
			sequence[j] = bases[rng.Intn(4)]
		}

		quality := make([]byte, cfg.SequenceLength)
		for j := range quality {
			quality[j] = phred(rng, cfg.Profile, j, cfg.SequenceLength)
		}

		records = append(records, Fastq(fmt.Sprintf("seq_%d", i), sequence, quality))
	}

	return records
}

// phred draws one Phred+33 score for a position.
func phred(rng *rand.Rand, profile QualityProfile, pos, length int) byte {
	const offset = 33

	switch profile {
	case QualityDegrading, QualityRealistic:
		// Linear ramp Q40 -> Q20 along the read.
		q := 40
		if length > 1 {
			q = 40 - (20*pos)/(length-1)
		}
		q += rng.Intn(5) - 2
		if profile == QualityRealistic && rng.Float64() < 0.02 {
			q = 2 + rng.Intn(8)
		}
		if q < 2 {
			q = 2
		}
		if q > 40 {
			q = 40
		}

		return byte(offset + q)
	default:
		// Uniform high quality, Q36-Q40.
		return byte(offset + 36 + rng.Intn(5))
	}
}
