package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/wayfinder-go/internal/graph"
)

func testGraph(t *testing.T) *graph.Graph[string] {
	t.Helper()

	g := graph.New[string]()
	for _, n := range []string{"ComputerSciences", "Library", "Computer Lab", "Union South"} {
		_, err := g.InsertNode(n)
		require.NoError(t, err)
	}
	require.NoError(t, g.InsertEdge("Library", "Union South", 120))
	require.NoError(t, g.InsertEdge("Library", "Computer Lab", 45.5))
	require.NoError(t, g.InsertEdge("Computer Lab", "ComputerSciences", 10))
	return g
}

func TestMemoryBackend_Initialize(t *testing.T) {
	t.Parallel()

	t.Run("Success", func(t *testing.T) {
		t.Parallel()
		backend := NewMemoryBackend()
		err := backend.Initialize("/tmp/test", false)

		assert.NoError(t, err)
		assert.True(t, backend.IsIndexed())
	})

	t.Run("ReadOnly", func(t *testing.T) {
		t.Parallel()
		backend := NewMemoryBackend()
		err := backend.Initialize("/tmp/test", true)

		assert.NoError(t, err)
		assert.True(t, backend.IsIndexed())
	})
}

func TestMemoryBackend_Close(t *testing.T) {
	t.Parallel()

	backend := NewMemoryBackend()
	_ = backend.Initialize("/tmp/test", false)
	require.NoError(t, backend.BulkLoad(context.Background(), testGraph(t)))

	err := backend.Close()

	assert.NoError(t, err)
	assert.Zero(t, backend.NodeCount())
	assert.False(t, backend.IsIndexed())
}

func TestMemoryBackend_BulkLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewMemoryBackend()

	err := backend.BulkLoad(ctx, testGraph(t))

	assert.NoError(t, err)
	assert.Equal(t, 4, backend.NodeCount())
	assert.Equal(t, 3, backend.EdgeCount())
	assert.True(t, backend.IsIndexed())

	t.Run("ReplacesPreviousGraph", func(t *testing.T) {
		g := graph.New[string]()
		_, err := g.InsertNode("Only")
		require.NoError(t, err)

		require.NoError(t, backend.BulkLoad(ctx, g))

		assert.Equal(t, 1, backend.NodeCount())
		assert.Zero(t, backend.EdgeCount())
		routes, err := backend.RoutesFrom(ctx, "Library")
		require.NoError(t, err)
		assert.Empty(t, routes)
	})
}

func TestMemoryBackend_BulkLoadCancelled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, backend.BulkLoad(ctx, testGraph(t)))

	next := graph.New[string]()
	_, err := next.InsertNode("Elsewhere")
	require.NoError(t, err)
	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	err = backend.BulkLoad(cancelled, next)

	assert.ErrorIs(t, err, context.Canceled)
	g, err := backend.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, 3, g.EdgeCount())
	results, err := backend.SearchLocations(ctx, "elsewhere", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryBackend_LoadGraph(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("NotLoaded", func(t *testing.T) {
		t.Parallel()
		_, err := NewMemoryBackend().LoadGraph(ctx)

		assert.ErrorIs(t, err, ErrNotInitialized)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		t.Parallel()
		backend := NewMemoryBackend()
		require.NoError(t, backend.BulkLoad(ctx, testGraph(t)))

		g, err := backend.LoadGraph(ctx)

		require.NoError(t, err)
		assert.Equal(t, 4, g.NodeCount())
		assert.Equal(t, 3, g.EdgeCount())
		w, err := g.EdgeWeight("Library", "Computer Lab")
		require.NoError(t, err)
		assert.InDelta(t, 45.5, w, 1e-9)
	})
}

func TestMemoryBackend_RoutesFrom(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, backend.BulkLoad(ctx, testGraph(t)))

	routes, err := backend.RoutesFrom(ctx, "Library")

	require.NoError(t, err)
	assert.Equal(t, []RouteRecord{
		{From: "Library", To: "Computer Lab", Seconds: 45.5},
		{From: "Library", To: "Union South", Seconds: 120},
	}, routes)

	routes, err = backend.RoutesFrom(ctx, "Nowhere")
	require.NoError(t, err)
	assert.Empty(t, routes)
}

func TestSearchLocations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, backend.BulkLoad(ctx, testGraph(t)))

	names := func(results []SearchResult) []string {
		out := make([]string, 0, len(results))
		for _, r := range results {
			out = append(out, r.Name)
		}
		return out
	}

	t.Run("CamelCaseToken", func(t *testing.T) {
		t.Parallel()
		results, err := backend.SearchLocations(ctx, "computer", 10)

		require.NoError(t, err)
		assert.Equal(t, []string{"Computer Lab", "ComputerSciences"}, names(results))
	})

	t.Run("SeparatedToken", func(t *testing.T) {
		t.Parallel()
		results, err := backend.SearchLocations(ctx, "LAB", 10)

		require.NoError(t, err)
		assert.Equal(t, []string{"Computer Lab"}, names(results))
	})

	t.Run("FullNameRanksFirst", func(t *testing.T) {
		t.Parallel()
		results, err := backend.SearchLocations(ctx, "Computer Lab", 10)

		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "Computer Lab", results[0].Name)
		assert.Greater(t, results[0].Score, results[len(results)-1].Score)
	})

	t.Run("SubstringFallback", func(t *testing.T) {
		t.Parallel()
		results, err := backend.SearchLocations(ctx, "brar", 10)

		require.NoError(t, err)
		assert.Equal(t, []string{"Library"}, names(results))
	})

	t.Run("Limit", func(t *testing.T) {
		t.Parallel()
		results, err := backend.SearchLocations(ctx, "computer", 1)

		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("NoMatch", func(t *testing.T) {
		t.Parallel()
		results, err := backend.SearchLocations(ctx, "stadium", 10)

		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("BlankQuery", func(t *testing.T) {
		t.Parallel()
		results, err := backend.SearchLocations(ctx, "   ", 10)

		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"computersciences", "computer", "sciences"}, tokenize("ComputerSciences"))
	assert.Equal(t, []string{"union south", "union", "south"}, tokenize("Union South"))
	assert.Equal(t, []string{"hall_a", "hall", "a"}, tokenize("hall_a"))
	assert.Empty(t, tokenize(""))
}
