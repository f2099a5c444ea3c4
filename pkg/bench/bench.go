// Package bench measures operation kernels against a reference
// baseline. Every measurement replays the operation on the scalar
// backend and cross-checks the outputs, so a fast kernel that drifts
// from the reference is reported as incorrect rather than as a win.
package bench

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/seqbench/seqbench/pkg/ops"
	"github.com/seqbench/seqbench/pkg/seq"
)

var (
	ErrNoRuns = errors.New("at least one measured run is required")
)

// Options controls a measurement.
type Options struct {
	// WarmupRuns execute before timing starts.
	WarmupRuns int
	// MeasuredRuns are timed. Must be at least 1.
	MeasuredRuns int
	// SkipVerify disables the scalar cross-check. The scalar backend
	// itself is never verified against anything.
	SkipVerify bool
}

// DefaultOptions is one warmup and five measured runs.
func DefaultOptions() Options {
	return Options{WarmupRuns: 1, MeasuredRuns: 5}
}

// Stats summarizes a set of run durations.
type Stats struct {
	Mean   time.Duration
	Median time.Duration
	Min    time.Duration
	Max    time.Duration
	StdDev time.Duration
	P99    time.Duration
}

// Result is the outcome of one measured operation/backend pairing.
type Result struct {
	Operation string
	Backend   ops.Backend
	Workers   int

	NumSequences int
	TotalBases   int
	Scale        seq.Scale

	Durations []time.Duration
	Stats     Stats

	// SequencesPerSecond and MBPerSecond derive from the mean duration.
	SequencesPerSecond float64
	MBPerSecond        float64

	// Verified is true when the output matched the scalar baseline,
	// or when verification was skipped.
	Verified bool

	Output ops.Output
}

// Speedup relates this result to a baseline measurement of the same
// operation, >1 meaning faster.
func (r Result) Speedup(baseline Result) float64 {
	if r.Stats.Mean == 0 {
		return 0
	}

	return float64(baseline.Stats.Mean) / float64(r.Stats.Mean)
}

// ErrVerificationFailed reports a kernel whose output diverged from
// the scalar baseline.
var ErrVerificationFailed = errors.New("output does not match the scalar baseline")

// Measure times an operation on one backend over warmup plus measured
// runs and cross-checks the last output against the scalar backend.
func Measure(ctx context.Context, op ops.Operation, records []seq.Record, cfg ops.ExecConfig, opts Options) (Result, error) {
	if opts.MeasuredRuns < 1 {
		return Result{}, errors.Wrapf(ErrNoRuns, "measured runs %d", opts.MeasuredRuns)
	}

	for i := 0; i < opts.WarmupRuns; i++ {
		if _, err := op.Run(ctx, records, cfg); err != nil {
			return Result{}, errors.Wrapf(err, "warmup run %d of %s on %s", i, op.Name(), cfg.Backend)
		}
	}

	var (
		output    ops.Output
		durations = make([]time.Duration, 0, opts.MeasuredRuns)
	)
	for i := 0; i < opts.MeasuredRuns; i++ {
		start := time.Now()
		out, err := op.Run(ctx, records, cfg)
		elapsed := time.Since(start)
		if err != nil {
			return Result{}, errors.Wrapf(err, "measured run %d of %s on %s", i, op.Name(), cfg.Backend)
		}
		durations = append(durations, elapsed)
		output = out
	}

	result := Result{
		Operation:    op.Name(),
		Backend:      cfg.Backend,
		Workers:      cfg.Workers,
		NumSequences: len(records),
		TotalBases:   seq.TotalBases(records),
		Scale:        seq.ScaleOf(len(records)),
		Durations:    durations,
		Stats:        Summarize(durations),
		Verified:     true,
		Output:       output,
	}

	if mean := result.Stats.Mean.Seconds(); mean > 0 {
		result.SequencesPerSecond = float64(result.NumSequences) / mean
		result.MBPerSecond = float64(result.TotalBases) / (1024 * 1024) / mean
	}

	if !opts.SkipVerify && cfg.Backend != ops.BackendScalar {
		reference, err := op.Run(ctx, records, ops.ExecConfig{Backend: ops.BackendScalar})
		if err != nil {
			return Result{}, errors.Wrapf(err, "baseline run of %s", op.Name())
		}
		result.Verified = output.Equal(reference)
		if !result.Verified {
			return result, errors.Wrapf(ErrVerificationFailed, "%s on %s", op.Name(), cfg.Backend)
		}
	}

	return result, nil
}

// Summarize computes distribution statistics over run durations.
func Summarize(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	mean := sum / time.Duration(len(sorted))

	var variance float64
	for _, d := range sorted {
		diff := float64(d - mean)
		variance += diff * diff
	}
	variance /= float64(len(sorted))

	return Stats{
		Mean:   mean,
		Median: durationPercentile(sorted, 50),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		StdDev: time.Duration(math.Sqrt(variance)),
		P99:    durationPercentile(sorted, 99),
	}
}

func durationPercentile(sorted []time.Duration, pct float64) time.Duration {
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := pct / 100 * float64(len(sorted)-1)
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)

	return sorted[lo] + time.Duration(frac*float64(sorted[lo+1]-sorted[lo]))
}
