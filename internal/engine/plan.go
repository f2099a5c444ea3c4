package engine

import (
	"fmt"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/seqbench/seqbench/internal/config"
	"github.com/seqbench/seqbench/internal/store"
	"github.com/seqbench/seqbench/pkg/ops"
)

// Experiment is one planned operation/backend/scale measurement.
type Experiment struct {
	ID        string
	Operation string
	Backend   ops.Backend
	ScaleName string
	Sequences int
	Params    ops.Params
}

func (e Experiment) label() string {
	return fmt.Sprintf("%s/%s/%s", e.Operation, e.Backend, e.ScaleName)
}

// Plan is the full sweep as a dependency graph. Each non-scalar
// experiment depends on the scalar baseline of the same operation and
// scale, so speedups always have a reference to compare against.
type Plan struct {
	Experiments []Experiment
	Graph       graph.Graph[string, Experiment]
	Store       store.PlanStore[Experiment]

	// baselines maps operation/scale to the scalar experiment id.
	baselines map[string]string
}

func experimentHash(e Experiment) string { return e.ID }

// BuildPlan expands the configuration into the cartesian product of
// operations, their backends and the dataset scales.
func BuildPlan(cfg config.Config, registry *ops.Registry) (*Plan, error) {
	planStore := store.New[Experiment]()
	plan := &Plan{
		Graph:     graph.NewWithStore[string, Experiment](experimentHash, planStore, graph.Directed(), graph.PreventCycles()),
		Store:     planStore,
		baselines: make(map[string]string),
	}

	next := 1
	for _, opCfg := range cfg.Operations {
		meta, err := registry.MetadataFor(opCfg.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "plan operation %q", opCfg.Name)
		}

		backends := opCfg.Backends
		if len(backends) == 0 {
			backends = meta.Backends
		}
		for _, backend := range backends {
			if !meta.HasBackend(backend) {
				return nil, errors.Wrapf(ops.ErrBackendUnsupported, "plan %s on %s", opCfg.Name, backend)
			}
		}

		for _, scale := range cfg.Datasets.Scales {
			// The scalar baseline runs even when not asked for, every
			// other backend is verified and scored against it.
			planned := backends
			if !hasBackend(planned, ops.BackendScalar) {
				planned = append([]ops.Backend{ops.BackendScalar}, planned...)
			}

			for _, backend := range planned {
				exp := Experiment{
					ID:        fmt.Sprintf("exp_%06d", next),
					Operation: opCfg.Name,
					Backend:   backend,
					ScaleName: scale.Name,
					Sequences: scale.Sequences,
					Params:    opCfg.OpParams(),
				}
				next++

				if err := plan.Graph.AddVertex(exp,
					graph.VertexAttribute(store.AttrStatus, store.StatusPending),
					graph.VertexAttribute(store.AttrBackend, string(backend)),
				); err != nil {
					return nil, errors.Wrapf(err, "plan vertex %s", exp.label())
				}
				plan.Experiments = append(plan.Experiments, exp)

				if backend == ops.BackendScalar {
					plan.baselines[exp.Operation+"/"+exp.ScaleName] = exp.ID
				}
			}
		}
	}

	for _, exp := range plan.Experiments {
		if exp.Backend == ops.BackendScalar {
			continue
		}
		baseline, ok := plan.baselines[exp.Operation+"/"+exp.ScaleName]
		if !ok {
			continue
		}
		if err := plan.Graph.AddEdge(baseline, exp.ID); err != nil {
			return nil, errors.Wrapf(err, "plan edge %s -> %s", baseline, exp.ID)
		}
	}

	return plan, nil
}

// BaselineID returns the scalar experiment covering the same
// operation and scale.
func (p *Plan) BaselineID(e Experiment) (string, bool) {
	id, ok := p.baselines[e.Operation+"/"+e.ScaleName]

	return id, ok
}

// SetStatus records execution progress on the plan graph.
func (p *Plan) SetStatus(id, status string) {
	p.Store.UpdateVertex(id, store.WithAttribute(store.AttrStatus, status))
}

// SetSpeedup annotates a finished vertex with its speedup.
func (p *Plan) SetSpeedup(id string, speedup float64) {
	p.Store.UpdateVertex(id, store.WithAttribute(store.AttrSpeedup, fmt.Sprintf("%.2f", speedup)))
}

func hasBackend(backends []ops.Backend, backend ops.Backend) bool {
	for _, b := range backends {
		if b == backend {
			return true
		}
	}

	return false
}
