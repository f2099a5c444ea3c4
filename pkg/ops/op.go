package ops

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/seqbench/seqbench/internal/tuning"
	"github.com/seqbench/seqbench/pkg/seq"
)

// Backend selects an execution strategy for an operation.
type Backend string

const (
	// BackendScalar is the portable baseline and correctness reference.
	BackendScalar Backend = "scalar"
	// BackendTable uses 256-entry lookup tables.
	BackendTable Backend = "table"
	// BackendPacked works on 2-bit packed sequences.
	BackendPacked Backend = "packed"
	// BackendParallel chunks the input across goroutines.
	BackendParallel Backend = "parallel"
)

// AllBackends lists every backend in dispatch-preference order.
var AllBackends = []Backend{BackendScalar, BackendTable, BackendPacked, BackendParallel}

// Category groups operations with similar optimization characteristics.
type Category string

const (
	CategoryElementWise Category = "element_wise"
	CategoryFilter      Category = "filter"
	CategorySearch      Category = "search"
	CategoryPairwise    Category = "pairwise"
	CategoryAggregation Category = "aggregation"
	CategoryIO          Category = "io"
)

var (
	ErrBackendUnsupported = errors.New("backend not supported by operation")
	ErrNoRecords          = errors.New("at least one record is required")
)

// ExecConfig carries the dispatch decision for a single run.
type ExecConfig struct {
	Backend Backend
	// Workers bounds the parallel backend; 0 picks a machine default.
	Workers int
}

// Output is the result of one operation run. Implementations compare
// with a small tolerance on derived floats so that parallel reductions
// with a different summation order still validate against scalar.
type Output interface {
	Equal(other Output) bool
}

// Operation is a primitive sequence operation with one or more backends.
type Operation interface {
	Name() string
	Category() Category
	Backends() []Backend
	Run(ctx context.Context, records []seq.Record, cfg ExecConfig) (Output, error)
}

// supports reports whether backend appears in the list.
func supports(backends []Backend, backend Backend) bool {
	for _, b := range backends {
		if b == backend {
			return true
		}
	}

	return false
}

func unsupported(op Operation, backend Backend) error {
	return errors.Wrapf(ErrBackendUnsupported, "%s/%s", op.Name(), backend)
}

const floatTolerance = 1e-9

// floatEq compares derived floats with a relative-or-absolute tolerance.
func floatEq(a, b float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	if diff <= floatTolerance {
		return true
	}

	return diff <= floatTolerance*math.Max(math.Abs(a), math.Abs(b))
}

// mapReduce splits records into one chunk per worker, maps chunks
// concurrently and reduces the partial results in chunk order, keeping
// the reduction deterministic for a given worker count.
func mapReduce[T any](
	ctx context.Context,
	records []seq.Record,
	workers int,
	mapFn func(chunk []seq.Record) T,
	reduceFn func(acc, part T) T,
) (T, error) {
	workers = tuning.Workers(workers, len(records))
	parts := make([]T, workers)

	grp, dCtx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)

	chunk := (len(records) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(records) {
			hi = len(records)
		}
		if lo >= hi {
			break
		}
		w := w
		grp.Go(func() error {
			select {
			case <-dCtx.Done():
				return dCtx.Err()
			default:
			}
			parts[w] = mapFn(records[lo:hi])

			return nil
		})
	}

	var acc T
	if err := grp.Wait(); err != nil {
		return acc, errors.Wrap(err, "parallel map failed")
	}

	acc = parts[0]
	for _, part := range parts[1:] {
		acc = reduceFn(acc, part)
	}

	return acc, nil
}

// forEachIndex runs fn for every index in [0, n) across bounded
// goroutines. fn must only touch state owned by its index.
func forEachIndex(ctx context.Context, n, workers int, fn func(i int)) error {
	workers = tuning.Workers(workers, n)

	grp, dCtx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)

	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		lo, hi := lo, hi
		grp.Go(func() error {
			select {
			case <-dCtx.Done():
				return dCtx.Err()
			default:
			}
			for i := lo; i < hi; i++ {
				fn(i)
			}

			return nil
		})
	}

	return errors.Wrap(grp.Wait(), "parallel loop failed")
}

// mapRecords applies a per-record transform concurrently, preserving
// input order.
func mapRecords(
	ctx context.Context,
	records []seq.Record,
	workers int,
	fn func(seq.Record) seq.Record,
) ([]seq.Record, error) {
	out := make([]seq.Record, len(records))
	err := forEachIndex(ctx, len(records), workers, func(i int) {
		out[i] = fn(records[i])
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
