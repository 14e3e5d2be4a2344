package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/wayfinder-go/internal/hashtable"
)

func newTestGraph(t *testing.T, nodes []string, edges []Edge[string]) *Graph[string] {
	t.Helper()

	g := New[string]()
	for _, n := range nodes {
		_, err := g.InsertNode(n)
		require.NoError(t, err)
	}
	for _, e := range edges {
		require.NoError(t, g.InsertEdge(e.From, e.To, e.Weight))
	}
	return g
}

func collectEdges(g *Graph[string], id string) map[string]float64 {
	out := make(map[string]float64)
	for to, w := range g.OutgoingEdges(id) {
		out[to] = w
	}
	return out
}

func TestNew(t *testing.T) {
	t.Parallel()

	g := New[string]()

	assert.NotNil(t, g)
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
	assert.Empty(t, g.NodeIDs())
}

func TestGraph_InsertNode(t *testing.T) {
	t.Parallel()

	t.Run("AddSingle", func(t *testing.T) {
		t.Parallel()
		g := New[string]()

		added, err := g.InsertNode("Library")

		require.NoError(t, err)
		assert.True(t, added)
		assert.True(t, g.ContainsNode("Library"))
		assert.Equal(t, 1, g.NodeCount())
	})

	t.Run("AddExisting", func(t *testing.T) {
		t.Parallel()
		g := newTestGraph(t, []string{"Library"}, nil)

		added, err := g.InsertNode("Library")

		require.NoError(t, err)
		assert.False(t, added)
		assert.Equal(t, 1, g.NodeCount())
	})

	t.Run("ZeroIdentity", func(t *testing.T) {
		t.Parallel()
		g := New[string]()

		_, err := g.InsertNode("")

		assert.ErrorIs(t, err, hashtable.ErrInvalidArgument)
		assert.Equal(t, 0, g.NodeCount())
	})

	t.Run("ManyNodes", func(t *testing.T) {
		t.Parallel()
		g := New[int]()
		for i := 1; i <= 500; i++ {
			_, err := g.InsertNode(i)
			require.NoError(t, err)
		}

		assert.Equal(t, 500, g.NodeCount())
		assert.Len(t, g.NodeIDs(), 500)
	})
}

func TestGraph_InsertEdge(t *testing.T) {
	t.Parallel()

	t.Run("Basic", func(t *testing.T) {
		t.Parallel()
		g := newTestGraph(t, []string{"A", "B"}, nil)

		require.NoError(t, g.InsertEdge("A", "B", 2.5))

		assert.True(t, g.ContainsEdge("A", "B"))
		assert.False(t, g.ContainsEdge("B", "A"))
		assert.Equal(t, 1, g.EdgeCount())
		w, err := g.EdgeWeight("A", "B")
		require.NoError(t, err)
		assert.InDelta(t, 2.5, w, 1e-9)
	})

	t.Run("ReplaceWeight", func(t *testing.T) {
		t.Parallel()
		g := newTestGraph(t, []string{"A", "B"}, []Edge[string]{{From: "A", To: "B", Weight: 2}})

		require.NoError(t, g.InsertEdge("A", "B", 7))

		assert.Equal(t, 1, g.EdgeCount())
		assert.Equal(t, map[string]float64{"B": 7}, collectEdges(g, "A"))
	})

	t.Run("UnknownEndpoint", func(t *testing.T) {
		t.Parallel()
		g := newTestGraph(t, []string{"A"}, nil)

		assert.ErrorIs(t, g.InsertEdge("A", "Z", 1), ErrNodeNotFound)
		assert.ErrorIs(t, g.InsertEdge("Z", "A", 1), ErrNodeNotFound)
		assert.Equal(t, 0, g.EdgeCount())
	})

	t.Run("NegativeOrNaN", func(t *testing.T) {
		t.Parallel()
		g := newTestGraph(t, []string{"A", "B"}, nil)

		assert.ErrorIs(t, g.InsertEdge("A", "B", -1), ErrNegativeWeight)
		assert.ErrorIs(t, g.InsertEdge("A", "B", math.NaN()), ErrNegativeWeight)
		assert.False(t, g.ContainsEdge("A", "B"))
	})

	t.Run("ZeroWeight", func(t *testing.T) {
		t.Parallel()
		g := newTestGraph(t, []string{"A", "B"}, nil)

		assert.NoError(t, g.InsertEdge("A", "B", 0))
	})
}

func TestGraph_OutgoingEdges(t *testing.T) {
	t.Parallel()

	t.Run("InsertionOrder", func(t *testing.T) {
		t.Parallel()
		g := newTestGraph(t, []string{"A", "B", "C", "D"}, []Edge[string]{
			{From: "A", To: "C", Weight: 3},
			{From: "A", To: "B", Weight: 1},
			{From: "A", To: "D", Weight: 2},
		})

		var order []string
		for to := range g.OutgoingEdges("A") {
			order = append(order, to)
		}

		assert.Equal(t, []string{"C", "B", "D"}, order)
	})

	t.Run("UnknownNode", func(t *testing.T) {
		t.Parallel()
		g := New[string]()

		assert.Empty(t, collectEdges(g, "missing"))
	})

	t.Run("MutationDuringIteration", func(t *testing.T) {
		t.Parallel()
		g := newTestGraph(t, []string{"A", "B", "C"}, []Edge[string]{
			{From: "A", To: "B", Weight: 1},
			{From: "A", To: "C", Weight: 1},
		})

		count := 0
		for to := range g.OutgoingEdges("A") {
			g.RemoveEdge("A", to)
			count++
		}

		assert.Equal(t, 2, count)
		assert.Equal(t, 0, g.EdgeCount())
	})
}

func TestGraph_RemoveNode(t *testing.T) {
	t.Parallel()

	t.Run("CascadesEdges", func(t *testing.T) {
		t.Parallel()
		g := newTestGraph(t, []string{"A", "B", "C"}, []Edge[string]{
			{From: "A", To: "B", Weight: 1},
			{From: "B", To: "C", Weight: 1},
			{From: "C", To: "B", Weight: 1},
			{From: "A", To: "C", Weight: 1},
		})

		assert.True(t, g.RemoveNode("B"))

		assert.False(t, g.ContainsNode("B"))
		assert.Equal(t, 2, g.NodeCount())
		assert.Equal(t, 1, g.EdgeCount())
		assert.Equal(t, map[string]float64{"C": 1}, collectEdges(g, "A"))
		assert.Empty(t, collectEdges(g, "C"))
	})

	t.Run("SelfLoop", func(t *testing.T) {
		t.Parallel()
		g := newTestGraph(t, []string{"A"}, []Edge[string]{{From: "A", To: "A", Weight: 1}})

		assert.True(t, g.RemoveNode("A"))
		assert.Equal(t, 0, g.EdgeCount())
	})

	t.Run("Missing", func(t *testing.T) {
		t.Parallel()
		g := New[string]()

		assert.False(t, g.RemoveNode("nope"))
	})
}

func TestGraph_RemoveEdge(t *testing.T) {
	t.Parallel()

	g := newTestGraph(t, []string{"A", "B"}, []Edge[string]{{From: "A", To: "B", Weight: 1}})

	assert.True(t, g.RemoveEdge("A", "B"))
	assert.False(t, g.RemoveEdge("A", "B"))
	assert.False(t, g.RemoveEdge("X", "B"))
	assert.Equal(t, 0, g.EdgeCount())

	// B no longer lists A as a predecessor, so removing A leaves the count alone.
	assert.True(t, g.RemoveNode("A"))
	assert.Equal(t, 0, g.EdgeCount())
}

func TestGraph_EdgeWeight(t *testing.T) {
	t.Parallel()

	g := newTestGraph(t, []string{"A", "B"}, nil)

	_, err := g.EdgeWeight("A", "B")
	assert.ErrorIs(t, err, ErrEdgeNotFound)

	_, err = g.EdgeWeight("Q", "B")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestGraph_EdgesAndClear(t *testing.T) {
	t.Parallel()

	edges := []Edge[string]{
		{From: "A", To: "B", Weight: 1},
		{From: "B", To: "A", Weight: 2},
	}
	g := newTestGraph(t, []string{"A", "B"}, edges)

	assert.ElementsMatch(t, edges, g.Edges())

	g.Clear()

	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
	assert.Empty(t, g.Edges())
}
