package present

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/wayfinder-go/internal/graph"
	"github.com/Benny93/wayfinder-go/internal/navigation"
	"github.com/Benny93/wayfinder-go/internal/pathfinding"
)

func testNavigator(t *testing.T) *navigation.Navigator {
	t.Helper()

	g := graph.New[string]()
	for _, n := range []string{"Union", "Library", "Hall", "Island"} {
		_, err := g.InsertNode(n)
		require.NoError(t, err)
	}
	require.NoError(t, g.InsertEdge("Union", "Library", 120))
	require.NoError(t, g.InsertEdge("Library", "Hall", 30.5))
	require.NoError(t, g.InsertEdge("Hall", "Union", 60))
	return navigation.New(g)
}

func TestPrompts(t *testing.T) {
	t.Parallel()

	path := string(ShortestPathPrompt())
	assert.Contains(t, path, `id="start"`)
	assert.Contains(t, path, `id="end"`)
	assert.Contains(t, path, `type="submit"`)

	closest := string(ClosestPrompt())
	assert.Contains(t, closest, `id="from"`)
	assert.Contains(t, closest, "comma separated")
}

func TestShortestPathResponse(t *testing.T) {
	t.Parallel()

	nav := testNavigator(t)

	t.Run("Found", func(t *testing.T) {
		t.Parallel()
		out, err := ShortestPathResponse(nav, "Union", "Hall")

		require.NoError(t, err)
		assert.Equal(t, `<p>Start location is "Union" and end location is "Hall".</p>
<ol>
  <li>Union</li>
  <li>Library</li>
  <li>Hall</li>
</ol>
<p>Total travel time: 150.5.</p>
`, string(out))
	})

	t.Run("SameLocation", func(t *testing.T) {
		t.Parallel()
		out, err := ShortestPathResponse(nav, " Hall ", "Hall")

		require.NoError(t, err)
		assert.Contains(t, string(out), "<li>Hall</li>")
		assert.Contains(t, string(out), "Total travel time: 0.0.")
	})

	t.Run("NoPath", func(t *testing.T) {
		t.Parallel()
		out, err := ShortestPathResponse(nav, "Union", "Island")

		require.NoError(t, err)
		assert.Contains(t, string(out), "<ol>\n</ol>")
		assert.Contains(t, string(out), "<p>"+MsgNoPath+"</p>")
		assert.NotContains(t, string(out), "Total travel time")
	})

	t.Run("UnknownLocation", func(t *testing.T) {
		t.Parallel()
		out, err := ShortestPathResponse(nav, "Union", "Mars")

		require.NoError(t, err)
		assert.Contains(t, string(out), MsgUnknownLocation)
		assert.NotContains(t, string(out), "pathfinding")
	})

	t.Run("EscapesInput", func(t *testing.T) {
		t.Parallel()
		out, err := ShortestPathResponse(nav, "<b>x</b>", "Hall")

		require.NoError(t, err)
		assert.NotContains(t, string(out), "<b>")
		assert.Contains(t, string(out), "&lt;b&gt;")
	})
}

func TestClosestResponse(t *testing.T) {
	t.Parallel()

	nav := testNavigator(t)

	t.Run("Found", func(t *testing.T) {
		t.Parallel()
		out, err := ClosestResponse(nav, "Union, Library")

		require.NoError(t, err)
		assert.Equal(t, `<ul>
  <li>Union</li>
  <li>Library</li>
</ul>
<p>The destination that is reached most quickly from all of those start locations (summing travel times): "Union".</p>
<p>The total/summed travel time that it takes to reach this destination from all specified start locations: 90.5.</p>
`, string(out))
	})

	t.Run("UnknownStart", func(t *testing.T) {
		t.Parallel()
		out, err := ClosestResponse(nav, "Union,Mars")

		require.NoError(t, err)
		assert.Contains(t, string(out), "<li>Mars</li>")
		assert.Contains(t, string(out), MsgNoDestination)
	})

	t.Run("Unreachable", func(t *testing.T) {
		t.Parallel()
		out, err := ClosestResponse(nav, "Union,Island")

		require.NoError(t, err)
		assert.Contains(t, string(out), MsgNoDestination)
	})

	t.Run("NoStarts", func(t *testing.T) {
		t.Parallel()
		out, err := ClosestResponse(nav, " , ")

		require.NoError(t, err)
		assert.Contains(t, string(out), MsgNoStarts)
	})

	t.Run("EmptyGraph", func(t *testing.T) {
		t.Parallel()
		out, err := ClosestResponse(navigation.New(graph.New[string]()), "Union")

		require.NoError(t, err)
		assert.Contains(t, string(out), MsgEmptyGraph)
		assert.NotContains(t, string(out), MsgNoDestination)
	})
}

func TestClosestMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, MsgNoDestination, ClosestMessage(fmt.Errorf("start: %w", pathfinding.ErrNodeNotFound)))
	assert.Equal(t, MsgNoDestination, ClosestMessage(pathfinding.ErrNoPathExists))
	assert.Equal(t, MsgNoStarts, ClosestMessage(navigation.ErrNoStartLocations))
	assert.Equal(t, MsgEmptyGraph, ClosestMessage(navigation.ErrEmptyGraph))
}

func TestPage(t *testing.T) {
	t.Parallel()

	result, err := ShortestPathResponse(testNavigator(t), "Union", "Hall")
	require.NoError(t, err)

	out, err := Page(PageData{Locations: 4, Routes: 3, Result: result})

	require.NoError(t, err)
	page := string(out)
	assert.Contains(t, page, "<title>Wayfinder</title>")
	assert.Contains(t, page, "4 locations, 3 routes loaded.")
	assert.Contains(t, page, `id="start"`)
	assert.Contains(t, page, `id="from"`)
	assert.Contains(t, page, "<li>Library</li>")
}

func TestMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("wrapped: %w", pathfinding.ErrNodeNotFound), MsgUnknownLocation},
		{pathfinding.ErrNoPathExists, MsgNoPath},
		{navigation.ErrNoStartLocations, MsgNoStarts},
		{navigation.ErrEmptyGraph, MsgEmptyGraph},
		{fmt.Errorf("disk on fire"), MsgFailed},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Message(tc.err))
	}
}

func TestFormatSeconds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "13.0", FormatSeconds(13))
	assert.Equal(t, "0.0", FormatSeconds(0))
	assert.Equal(t, "150.5", FormatSeconds(150.5))
}

func TestSplitStarts(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"A", "B C"}, SplitStarts(" A ,B C,, "))
	assert.Empty(t, SplitStarts(""))
}
