package ingestion

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/wayfinder-go/internal/graph"
)

const campusDOT = `digraph campus {
    "Computer Sciences" -> "Union South" [seconds=112.0];
    "Union South" -> "Memorial Union" [seconds=1200.5];
    // "Ignored" -> "Comment" [seconds=1];
    "Memorial Union" -> "Computer Sciences" [seconds=601];
    Library -> "Memorial Union" [seconds = 300]
    "Library";
}
`

func TestParseDOT(t *testing.T) {
	t.Parallel()

	t.Run("ParsesRoutes", func(t *testing.T) {
		t.Parallel()
		routes, stats, err := ParseDOT(strings.NewReader(campusDOT))

		require.NoError(t, err)
		require.Len(t, routes, 4)
		assert.Equal(t, Route{From: "Computer Sciences", To: "Union South", Seconds: 112, Line: 2}, routes[0])
		assert.Equal(t, Route{From: "Union South", To: "Memorial Union", Seconds: 1200.5, Line: 3}, routes[1])
		assert.Equal(t, Route{From: "Library", To: "Memorial Union", Seconds: 300, Line: 6}, routes[3])

		assert.Equal(t, &ParseStats{Lines: 8, Routes: 4, Skipped: 4}, stats)
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		routes, stats, err := ParseDOT(strings.NewReader(""))

		require.NoError(t, err)
		assert.Empty(t, routes)
		assert.Zero(t, stats.Lines)
	})

	t.Run("ZeroSeconds", func(t *testing.T) {
		t.Parallel()
		routes, _, err := ParseDOT(strings.NewReader(`"A" -> "B" [seconds=0];`))

		require.NoError(t, err)
		require.Len(t, routes, 1)
		assert.Zero(t, routes[0].Seconds)
	})

	t.Run("LabelMentionsRoute", func(t *testing.T) {
		t.Parallel()
		input := "digraph {\n  A [label=\"90 seconds -> gym\"];\n  A -> B [seconds=5];\n}"

		routes, stats, err := ParseDOT(strings.NewReader(input))

		require.NoError(t, err)
		assert.Equal(t, []Route{{From: "A", To: "B", Seconds: 5, Line: 3}}, routes)
		assert.Equal(t, 3, stats.Skipped)
	})

	errorCases := []struct {
		name  string
		input string
		want  error
		line  string
	}{
		{"MalformedWeight", "digraph {\n\"A\" -> \"B\" [seconds=abc];\n}", ErrMalformedRoute, "line 2"},
		{"NaNWeight", `"A" -> "B" [seconds=NaN];`, ErrMalformedRoute, "line 1"},
		{"MissingBracket", `"A" -> "B" [seconds=4;`, ErrMalformedRoute, "line 1"},
		{"EmptyLocation", `"" -> "B" [seconds=4];`, ErrMalformedRoute, "line 1"},
		{"NegativeWeight", "\n\n\"A\" -> \"B\" [seconds=-3];", ErrNegativeSeconds, "line 3"},
	}

	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := ParseDOT(strings.NewReader(tc.input))

			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Contains(t, err.Error(), tc.line)
		})
	}
}

func TestMergeInto(t *testing.T) {
	t.Parallel()

	t.Run("KeepsExistingLocations", func(t *testing.T) {
		t.Parallel()
		g := graph.New[string]()
		_, err := g.InsertNode("Stale")
		require.NoError(t, err)

		routes, _, err := ParseDOT(strings.NewReader(campusDOT))
		require.NoError(t, err)

		require.NoError(t, mergeInto(g, routes))

		assert.True(t, g.ContainsNode("Stale"))
		assert.Equal(t, 5, g.NodeCount())
		assert.Equal(t, 4, g.EdgeCount())
		w, err := g.EdgeWeight("Memorial Union", "Computer Sciences")
		require.NoError(t, err)
		assert.InDelta(t, 601.0, w, 1e-9)
	})

	t.Run("RepeatedRouteKeepsLastTime", func(t *testing.T) {
		t.Parallel()
		g := graph.New[string]()

		require.NoError(t, mergeInto(g, []Route{
			{From: "A", To: "B", Seconds: 5},
			{From: "A", To: "B", Seconds: 2},
		}))

		assert.Equal(t, 1, g.EdgeCount())
		w, err := g.EdgeWeight("A", "B")
		require.NoError(t, err)
		assert.InDelta(t, 2.0, w, 1e-9)
	})
}
