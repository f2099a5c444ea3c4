package ops

import (
	"sort"

	"github.com/pkg/errors"
)

var (
	ErrOpNotFound   = errors.New("operation not found in registry")
	ErrOpDuplicate  = errors.New("operation already registered")
	ErrOpNilEntry   = errors.New("operation must not be nil")
	ErrOpNamelessEn = errors.New("operation must have a name")
)

// Metadata describes an operation for plan generation and analysis.
type Metadata struct {
	Name     string
	Category Category
	// Complexity in [0,1] predicts how much simple vectorization helps:
	// low scores gain the most.
	Complexity  float64
	Backends    []Backend
	Description string
}

// VectorFriendly predicts whether table/packed kernels pay off.
// Operations scoring 0.45 or above tend to be bound by control flow
// rather than byte throughput.
func (m Metadata) VectorFriendly() bool { return m.Complexity < 0.45 }

// HasBackend reports whether the operation supports a backend.
func (m Metadata) HasBackend(backend Backend) bool {
	return supports(m.Backends, backend)
}

// Registry is the central catalog of operations.
type Registry struct {
	operations map[string]Operation
	metadata   map[string]Metadata
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		operations: make(map[string]Operation),
		metadata:   make(map[string]Metadata),
	}
}

// Register adds an operation with its metadata.
func (r *Registry) Register(op Operation, meta Metadata) error {
	if op == nil {
		return ErrOpNilEntry
	}
	if meta.Name == "" {
		meta.Name = op.Name()
	}
	if meta.Name == "" {
		return ErrOpNamelessEn
	}
	if _, ok := r.operations[meta.Name]; ok {
		return errors.Wrap(ErrOpDuplicate, meta.Name)
	}
	if meta.Backends == nil {
		meta.Backends = op.Backends()
	}

	r.operations[meta.Name] = op
	r.metadata[meta.Name] = meta

	return nil
}

// Get returns an operation by name.
func (r *Registry) Get(name string) (Operation, error) {
	op, ok := r.operations[name]
	if !ok {
		return nil, errors.Wrap(ErrOpNotFound, name)
	}

	return op, nil
}

// MetadataFor returns the metadata registered for name.
func (r *Registry) MetadataFor(name string) (Metadata, error) {
	meta, ok := r.metadata[name]
	if !ok {
		return Metadata{}, errors.Wrap(ErrOpNotFound, name)
	}

	return meta, nil
}

// Names lists registered operations in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.operations))
	for name := range r.operations {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// ByCategory lists operations in one category, sorted.
func (r *Registry) ByCategory(category Category) []string {
	var names []string
	for name, meta := range r.metadata {
		if meta.Category == category {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names
}

// WithBackend lists operations supporting a backend, sorted.
func (r *Registry) WithBackend(backend Backend) []string {
	var names []string
	for name, meta := range r.metadata {
		if meta.HasBackend(backend) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names
}

// Supports reports whether the named operation can run with cfg.
func (r *Registry) Supports(name string, cfg ExecConfig) (bool, error) {
	meta, err := r.MetadataFor(name)
	if err != nil {
		return false, err
	}

	return meta.HasBackend(cfg.Backend), nil
}

// Params carries per-operation tuning knobs used when building the
// default registry.
type Params struct {
	K              int
	Canonical      bool
	MinLength      int
	MinMeanQuality float64
	MaxPairs       int
	Frame          int
	MinPeptide     int
	MaskQuality    int
}

// DefaultParams are sensible sweep defaults for short-read data.
func DefaultParams() Params {
	return Params{
		K:              21,
		Canonical:      true,
		MinLength:      50,
		MinMeanQuality: 20,
		MaxPairs:       DefaultMaxPairs,
		Frame:          0,
		MinPeptide:     1,
		MaskQuality:    20,
	}
}

// DefaultRegistry builds the full catalog with the given parameters.
func DefaultRegistry(params Params) *Registry {
	registry := NewRegistry()

	entries := []struct {
		op   Operation
		meta Metadata
	}{
		{BaseCounting{}, Metadata{Category: CategoryElementWise, Complexity: 0.40, Description: "count A, C, G, T, N bases"}},
		{GCContent{}, Metadata{Category: CategoryElementWise, Complexity: 0.25, Description: "fraction of G+C bases"}},
		{ATContent{}, Metadata{Category: CategoryElementWise, Complexity: 0.25, Description: "fraction of A+T bases"}},
		{NContent{}, Metadata{Category: CategoryElementWise, Complexity: 0.22, Description: "fraction of ambiguous bases"}},
		{SequenceLength{}, Metadata{Category: CategoryAggregation, Complexity: 0.20, Description: "read length distribution"}},
		{ReverseComplement{}, Metadata{Category: CategoryElementWise, Complexity: 0.30, Description: "reverse complement every read"}},
		{ComplexityScore{}, Metadata{Category: CategoryElementWise, Complexity: 0.35, Description: "per-read alphabet diversity"}},
		{LengthFilter{MinLength: params.MinLength}, Metadata{Category: CategoryFilter, Complexity: 0.45, Description: "drop reads below a minimum length"}},
		{QualityFilter{MinMeanQuality: params.MinMeanQuality}, Metadata{Category: CategoryFilter, Complexity: 0.50, Description: "drop reads below a mean quality"}},
		{QualityStatistics{}, Metadata{Category: CategoryAggregation, Complexity: 0.61, Description: "per-position quality distribution"}},
		{MaskLowQuality{MinQuality: params.MaskQuality}, Metadata{Category: CategoryElementWise, Complexity: 0.30, Description: "mask low-quality bases with N"}},
		{Translate{Frame: params.Frame, MinPeptide: params.MinPeptide}, Metadata{Category: CategoryElementWise, Complexity: 0.40, Description: "translate reads to peptides"}},
		{HammingDistance{}, Metadata{Category: CategoryPairwise, Complexity: 0.42, Description: "all-pairs mismatch counts"}},
		{EditDistance{MaxSequences: params.MaxPairs}, Metadata{Category: CategoryPairwise, Complexity: 0.70, Description: "all-pairs Levenshtein distances"}},
		{KmerCounting{K: params.K, Canonical: params.Canonical}, Metadata{Category: CategorySearch, Complexity: 0.55, Description: "k-mer occurrence counts"}},
	}

	for _, e := range entries {
		// Names are unique by construction, Register cannot fail here.
		if err := registry.Register(e.op, e.meta); err != nil {
			panic(err)
		}
	}

	return registry
}
