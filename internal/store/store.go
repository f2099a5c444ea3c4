// Package store backs the experiment plan graph with an in-memory
// graph.Store keyed by experiment id. On top of the plain store it
// supports mutating vertex attributes in place, which the engine uses
// to track experiment status without rebuilding the graph.
package store

import (
	"fmt"
	"sync"

	"github.com/dominikbraun/graph"
)

// Attribute keys tracked on plan vertices.
const (
	AttrStatus  = "status"
	AttrBackend = "backend"
	AttrSpeedup = "speedup"
)

// Statuses a plan vertex moves through.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// PlanStore is a graph.Store over experiment ids whose vertex
// properties can be updated after insertion.
type PlanStore[T any] interface {
	graph.Store[string, T]
	UpdateVertex(id string, options ...func(*graph.VertexProperties))
	Attribute(id, key string) (string, bool)
	CreatesCycle(source, target string) (bool, error)
}

type memoryStore[T any] struct {
	lock       sync.RWMutex
	vertices   map[string]T
	properties map[string]*graph.VertexProperties

	// outEdges and inEdges index every edge from both endpoints so
	// lookups stay O(1) in either direction.
	outEdges map[string]map[string]graph.Edge[string]
	inEdges  map[string]map[string]graph.Edge[string]
}

// New creates an empty plan store.
func New[T any]() PlanStore[T] {
	return &memoryStore[T]{
		vertices:   make(map[string]T),
		properties: make(map[string]*graph.VertexProperties),
		outEdges:   make(map[string]map[string]graph.Edge[string]),
		inEdges:    make(map[string]map[string]graph.Edge[string]),
	}
}

// WithAttribute sets one attribute on a vertex, for use with
// UpdateVertex.
func WithAttribute(key, value string) func(*graph.VertexProperties) {
	return func(p *graph.VertexProperties) {
		if p.Attributes == nil {
			p.Attributes = make(map[string]string)
		}
		p.Attributes[key] = value
	}
}

func (s *memoryStore[T]) AddVertex(id string, value T, p graph.VertexProperties) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[id]; ok {
		return graph.ErrVertexAlreadyExists
	}

	s.vertices[id] = value
	s.properties[id] = &p

	return nil
}

func (s *memoryStore[T]) ListVertices() ([]string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	ids := make([]string, 0, len(s.vertices))
	for id := range s.vertices {
		ids = append(ids, id)
	}

	return ids, nil
}

func (s *memoryStore[T]) VertexCount() (int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.vertices), nil
}

func (s *memoryStore[T]) Vertex(id string) (T, graph.VertexProperties, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.vertices[id]
	if !ok {
		return v, graph.VertexProperties{}, graph.ErrVertexNotFound
	}

	return v, *s.properties[id], nil
}

func (s *memoryStore[T]) RemoveVertex(id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[id]; !ok {
		return graph.ErrVertexNotFound
	}

	if len(s.inEdges[id]) > 0 || len(s.outEdges[id]) > 0 {
		return graph.ErrVertexHasEdges
	}

	delete(s.inEdges, id)
	delete(s.outEdges, id)
	delete(s.vertices, id)
	delete(s.properties, id)

	return nil
}

func (s *memoryStore[T]) AddEdge(source, target string, edge graph.Edge[string]) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.outEdges[source]; !ok {
		s.outEdges[source] = make(map[string]graph.Edge[string])
	}
	s.outEdges[source][target] = edge

	if _, ok := s.inEdges[target]; !ok {
		s.inEdges[target] = make(map[string]graph.Edge[string])
	}
	s.inEdges[target][source] = edge

	return nil
}

// UpdateVertex mutates vertex properties in place. Unknown ids are
// ignored.
func (s *memoryStore[T]) UpdateVertex(id string, options ...func(*graph.VertexProperties)) {
	s.lock.Lock()
	defer s.lock.Unlock()

	p, ok := s.properties[id]
	if !ok {
		return
	}
	for _, opt := range options {
		opt(p)
	}
}

// Attribute reads one vertex attribute.
func (s *memoryStore[T]) Attribute(id, key string) (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	p, ok := s.properties[id]
	if !ok || p.Attributes == nil {
		return "", false
	}
	value, ok := p.Attributes[key]

	return value, ok
}

func (s *memoryStore[T]) UpdateEdge(source, target string, edge graph.Edge[string]) error {
	if _, err := s.Edge(source, target); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.outEdges[source][target] = edge
	s.inEdges[target][source] = edge

	return nil
}

func (s *memoryStore[T]) RemoveEdge(source, target string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.inEdges[target], source)
	delete(s.outEdges[source], target)

	return nil
}

func (s *memoryStore[T]) Edge(source, target string) (graph.Edge[string], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	sourceEdges, ok := s.outEdges[source]
	if !ok {
		return graph.Edge[string]{}, graph.ErrEdgeNotFound
	}

	edge, ok := sourceEdges[target]
	if !ok {
		return graph.Edge[string]{}, graph.ErrEdgeNotFound
	}

	return edge, nil
}

func (s *memoryStore[T]) ListEdges() ([]graph.Edge[string], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	res := make([]graph.Edge[string], 0)
	for _, edges := range s.outEdges {
		for _, edge := range edges {
			res = append(res, edge)
		}
	}

	return res, nil
}

// CreatesCycle walks inEdges directly instead of materializing a
// predecessor map, which keeps plan construction allocation-free.
func (s *memoryStore[T]) CreatesCycle(source, target string) (bool, error) {
	if _, _, err := s.Vertex(source); err != nil {
		return false, fmt.Errorf("could not get vertex with hash %v: %w", source, err)
	}
	if _, _, err := s.Vertex(target); err != nil {
		return false, fmt.Errorf("could not get vertex with hash %v: %w", target, err)
	}
	if source == target {
		return true, nil
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	stack := []string{source}
	visited := make(map[string]struct{})

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := visited[current]; ok {
			continue
		}
		// Reaching the target through an in-edge means target is an
		// ancestor of source, so the new edge would close a cycle.
		if current == target {
			return true, nil
		}
		visited[current] = struct{}{}

		for adjacent := range s.inEdges[current] {
			stack = append(stack, adjacent)
		}
	}

	return false, nil
}
