package store_test

import (
	"testing"

	"github.com/dominikbraun/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqbench/seqbench/internal/store"
)

func TestPlanStoreVertices(t *testing.T) {
	t.Parallel()

	s := store.New[string]()
	require.NoError(t, s.AddVertex("exp_000001", "gc_content", graph.VertexProperties{}))
	assert.ErrorIs(t, s.AddVertex("exp_000001", "gc_content", graph.VertexProperties{}), graph.ErrVertexAlreadyExists)

	value, _, err := s.Vertex("exp_000001")
	require.NoError(t, err)
	assert.Equal(t, "gc_content", value)

	_, _, err = s.Vertex("exp_999999")
	assert.ErrorIs(t, err, graph.ErrVertexNotFound)

	count, err := s.VertexCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPlanStoreUpdateVertexAttributes(t *testing.T) {
	t.Parallel()

	s := store.New[string]()
	require.NoError(t, s.AddVertex("exp_000001", "gc_content", graph.VertexProperties{}))

	s.UpdateVertex("exp_000001",
		store.WithAttribute(store.AttrStatus, store.StatusCompleted),
		store.WithAttribute(store.AttrSpeedup, "3.1"),
	)

	status, ok := s.Attribute("exp_000001", store.AttrStatus)
	require.True(t, ok)
	assert.Equal(t, store.StatusCompleted, status)

	speedup, ok := s.Attribute("exp_000001", store.AttrSpeedup)
	require.True(t, ok)
	assert.Equal(t, "3.1", speedup)

	_, ok = s.Attribute("exp_000001", "missing")
	assert.False(t, ok)
	_, ok = s.Attribute("exp_999999", store.AttrStatus)
	assert.False(t, ok)
}

func TestPlanStoreEdges(t *testing.T) {
	t.Parallel()

	s := store.New[string]()
	require.NoError(t, s.AddVertex("a", "a", graph.VertexProperties{}))
	require.NoError(t, s.AddVertex("b", "b", graph.VertexProperties{}))
	require.NoError(t, s.AddEdge("a", "b", graph.Edge[string]{Source: "a", Target: "b"}))

	edge, err := s.Edge("a", "b")
	require.NoError(t, err)
	assert.Equal(t, "b", edge.Target)

	_, err = s.Edge("b", "a")
	assert.ErrorIs(t, err, graph.ErrEdgeNotFound)

	edges, err := s.ListEdges()
	require.NoError(t, err)
	assert.Len(t, edges, 1)

	assert.ErrorIs(t, s.RemoveVertex("a"), graph.ErrVertexHasEdges)
	require.NoError(t, s.RemoveEdge("a", "b"))
	require.NoError(t, s.RemoveVertex("a"))
}

func TestPlanStoreCreatesCycle(t *testing.T) {
	t.Parallel()

	s := store.New[string]()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.AddVertex(id, id, graph.VertexProperties{}))
	}
	require.NoError(t, s.AddEdge("a", "b", graph.Edge[string]{Source: "a", Target: "b"}))
	require.NoError(t, s.AddEdge("b", "c", graph.Edge[string]{Source: "b", Target: "c"}))

	// Closing c back onto a makes a->b->c->a a loop.
	cycle, err := s.CreatesCycle("c", "a")
	require.NoError(t, err)
	assert.True(t, cycle)

	cycle, err = s.CreatesCycle("a", "c")
	require.NoError(t, err)
	assert.False(t, cycle)

	cycle, err = s.CreatesCycle("a", "a")
	require.NoError(t, err)
	assert.True(t, cycle)
}
