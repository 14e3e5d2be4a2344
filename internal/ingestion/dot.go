// Package ingestion loads location graphs from DOT files into storage.
//
// Files are discovered with a gitignore-aware walker, parsed line by line,
// merged into one graph and bulk-loaded into a storage backend. A watcher
// re-runs the pipeline when graph files change.
package ingestion

import (
	"bufio"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Benny93/wayfinder-go/internal/graph"
)

var (
	// ErrMalformedRoute is returned for a route line that cannot be parsed.
	ErrMalformedRoute = errors.New("malformed route")

	// ErrNegativeSeconds is returned for a route with a negative travel time.
	ErrNegativeSeconds = errors.New("negative travel time")
)

// edgePattern matches `"src" -> "dst" [seconds=N];` with optional quotes.
var edgePattern = regexp.MustCompile(`^\s*(.+?)\s*->\s*(.+?)\s*\[\s*seconds\s*=\s*([^\]]*)\]\s*;?\s*$`)

// secondsAttr marks a line as a route statement.
var secondsAttr = regexp.MustCompile(`\[\s*seconds\s*=`)

// Route is a parsed directed route.
type Route struct {
	From    string
	To      string
	Seconds float64

	// Line is the 1-based line number the route was read from.
	Line int
}

// ParseStats counts what the parser saw.
type ParseStats struct {
	Lines   int
	Routes  int
	Skipped int
}

// ParseDOT reads routes from a DOT document. Lines that are not route
// statements (graph header, braces, node statements, comments) are skipped.
func ParseDOT(r io.Reader) ([]Route, *ParseStats, error) {
	stats := &ParseStats{}
	var routes []Route

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		stats.Lines++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") ||
			!strings.Contains(line, "->") || !secondsAttr.MatchString(line) {
			stats.Skipped++
			continue
		}

		route, err := parseRouteLine(line)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "line %d", stats.Lines)
		}
		route.Line = stats.Lines
		routes = append(routes, route)
		stats.Routes++
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "reading graph")
	}

	return routes, stats, nil
}

func parseRouteLine(line string) (Route, error) {
	m := edgePattern.FindStringSubmatch(line)
	if m == nil {
		return Route{}, errors.Wrapf(ErrMalformedRoute, "%q", strings.TrimSpace(line))
	}

	from := unquote(m[1])
	to := unquote(m[2])
	if from == "" || to == "" {
		return Route{}, errors.Wrapf(ErrMalformedRoute, "empty location in %q", strings.TrimSpace(line))
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(m[3]), 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return Route{}, errors.Wrapf(ErrMalformedRoute, "travel time %q", strings.TrimSpace(m[3]))
	}
	if seconds < 0 {
		return Route{}, errors.Wrapf(ErrNegativeSeconds, "%s -> %s: %v", from, to, seconds)
	}

	return Route{From: from, To: to, Seconds: seconds}, nil
}

func unquote(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

// mergeInto adds the routes to g. Endpoints are inserted as needed; a
// repeated route keeps the last travel time.
func mergeInto(g *graph.Graph[string], routes []Route) error {
	for _, r := range routes {
		for _, name := range []string{r.From, r.To} {
			if _, err := g.InsertNode(name); err != nil {
				return errors.Wrapf(err, "inserting location %q", name)
			}
		}
		if err := g.InsertEdge(r.From, r.To, r.Seconds); err != nil {
			return errors.Wrapf(err, "inserting route %s -> %s (line %d)", r.From, r.To, r.Line)
		}
	}
	return nil
}
