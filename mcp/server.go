// Package mcp provides the MCP (Model Context Protocol) server for Wayfinder.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/wayfinder-go/internal/navigation"
	"github.com/Benny93/wayfinder-go/internal/present"
	"github.com/Benny93/wayfinder-go/internal/storage"
)

const (
	serverName = "wayfinder"

	overviewURI  = "wayfinder://overview"
	locationsURI = "wayfinder://locations"

	defaultLocationLimit = 50
)

// Server represents the MCP server.
type Server struct {
	nav     *navigation.Navigator
	storage StorageBackend
	version string
	server  *mcp.Server
}

// StorageBackend is the part of the storage layer the server reads.
type StorageBackend interface {
	RoutesFrom(ctx context.Context, location string) ([]storage.RouteRecord, error)
	SearchLocations(ctx context.Context, query string, limit int) ([]storage.SearchResult, error)
	NodeCount() int
	EdgeCount() int
}

type shortestPathArgs struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type closestArgs struct {
	Starts []string `json:"starts"`
}

type locationsArgs struct {
	Query string `json:"query,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type routesFromArgs struct {
	Location string `json:"location"`
}

// NewServer creates a new MCP server answering from nav and storage.
func NewServer(nav *navigation.Navigator, storage StorageBackend, version string) *Server {
	s := &Server{
		nav:     nav,
		storage: storage,
		version: version,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version,
	}, nil)
	s.registerTools()
	s.registerResources()

	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "wayfinder_shortest_path",
		Description: "Find the quickest route between two locations. Returns every stop and the travel time of each leg in seconds.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"start": {Type: "string", Description: "Start location name"},
				"end":   {Type: "string", Description: "Destination location name"},
			},
			Required: []string{"start", "end"},
		},
	}, s.shortestPathTool)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "wayfinder_closest_destination",
		Description: "Find the location reached most quickly from all start locations, summing travel times.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"starts": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Start location names",
				},
			},
			Required: []string{"starts"},
		},
	}, s.closestTool)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "wayfinder_locations",
		Description: "List known locations, optionally filtered by a search query.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {Type: "string", Description: "Search text; empty lists every location"},
				"limit": {Type: "integer", Description: "Maximum number of results"},
			},
		},
	}, s.locationsTool)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "wayfinder_routes_from",
		Description: "List the direct routes leaving a location with their travel times.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"location": {Type: "string", Description: "Location name"},
			},
			Required: []string{"location"},
		},
	}, s.routesFromTool)
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         overviewURI,
		Name:        "Graph Overview",
		Description: "Location and route counts of the loaded graph",
		MIMEType:    "text/markdown",
	}, s.readResource)

	s.server.AddResource(&mcp.Resource{
		URI:         locationsURI,
		Name:        "Locations",
		Description: "Every known location name",
		MIMEType:    "text/markdown",
	}, s.readResource)
}

// Run serves MCP over newline-delimited JSON on stdin and stdout until
// stdin is exhausted or ctx is cancelled.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	err := s.server.Run(ctx, &mcp.IOTransport{
		Reader: io.NopCloser(stdin),
		Writer: nopWriteCloser{stdout},
	})
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// nopWriteCloser keeps the caller's writer open when the session ends.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func (s *Server) shortestPathTool(_ context.Context, _ *mcp.CallToolRequest, args shortestPathArgs) (*mcp.CallToolResult, any, error) {
	start, end := strings.TrimSpace(args.Start), strings.TrimSpace(args.End)
	if start == "" || end == "" {
		return nil, nil, fmt.Errorf("start and end are required")
	}
	return textResult(s.handleShortestPath(start, end)), nil, nil
}

func (s *Server) closestTool(_ context.Context, _ *mcp.CallToolRequest, args closestArgs) (*mcp.CallToolResult, any, error) {
	return textResult(s.handleClosest(trimmedList(args.Starts))), nil, nil
}

func (s *Server) locationsTool(ctx context.Context, _ *mcp.CallToolRequest, args locationsArgs) (*mcp.CallToolResult, any, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = defaultLocationLimit
	}
	text, err := s.handleLocations(ctx, args.Query, limit)
	if err != nil {
		return nil, nil, err
	}
	return textResult(text), nil, nil
}

func (s *Server) routesFromTool(ctx context.Context, _ *mcp.CallToolRequest, args routesFromArgs) (*mcp.CallToolResult, any, error) {
	location := strings.TrimSpace(args.Location)
	if location == "" {
		return nil, nil, fmt.Errorf("location is required")
	}
	text, err := s.handleRoutesFrom(ctx, location)
	if err != nil {
		return nil, nil, err
	}
	return textResult(text), nil, nil
}

func (s *Server) readResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI

	var text string
	switch uri {
	case overviewURI:
		text = s.getOverview()
	case locationsURI:
		text = s.getLocationList()
	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     text,
		}},
	}, nil
}

// Tool Handlers

func (s *Server) handleShortestPath(start, end string) string {
	route, err := s.nav.Route(start, end)
	if err != nil {
		return present.Message(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Shortest path: %s → %s\n\n", start, end)
	for i, loc := range route.Locations {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, loc)
	}
	if len(route.Times) > 0 {
		sb.WriteString("\n| From | To | Seconds |\n|---|---|---|\n")
		for i, t := range route.Times {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", route.Locations[i], route.Locations[i+1], present.FormatSeconds(t))
		}
	}
	fmt.Fprintf(&sb, "\nTotal travel time: %s seconds.\n", present.FormatSeconds(route.Total))
	return sb.String()
}

func (s *Server) handleClosest(starts []string) string {
	dest, err := s.nav.ClosestDestinationFromAll(starts)
	if err != nil {
		return present.ClosestMessage(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Closest destination: %s\n\n", dest.Name)
	sb.WriteString("| Start | Seconds |\n|---|---|\n")
	for i, start := range dest.Starts {
		fmt.Fprintf(&sb, "| %s | %s |\n", start, present.FormatSeconds(dest.Times[i]))
	}
	fmt.Fprintf(&sb, "\nSummed travel time: %s seconds.\n", present.FormatSeconds(dest.Total))
	return sb.String()
}

func (s *Server) handleLocations(ctx context.Context, query string, limit int) (string, error) {
	query = strings.TrimSpace(query)

	var names []string
	if query == "" {
		names = s.nav.Locations()
		if len(names) > limit {
			names = names[:limit]
		}
	} else {
		results, err := s.storage.SearchLocations(ctx, query, limit)
		if err != nil {
			return "", err
		}
		for _, r := range results {
			names = append(names, r.Name)
		}
	}

	if len(names) == 0 {
		return "No locations found", nil
	}

	var sb strings.Builder
	if query == "" {
		fmt.Fprintf(&sb, "## Locations (%d)\n\n", len(names))
	} else {
		fmt.Fprintf(&sb, "## Locations matching %q (%d)\n\n", query, len(names))
	}
	for _, name := range names {
		fmt.Fprintf(&sb, "- %s\n", name)
	}
	return sb.String(), nil
}

func (s *Server) handleRoutesFrom(ctx context.Context, location string) (string, error) {
	routes, err := s.storage.RoutesFrom(ctx, location)
	if err != nil {
		return "", err
	}
	if len(routes) == 0 {
		return fmt.Sprintf("No routes leave %s", location), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Routes from %s\n\n", location)
	sb.WriteString("| To | Seconds |\n|---|---|\n")
	for _, r := range routes {
		fmt.Fprintf(&sb, "| %s | %s |\n", r.To, present.FormatSeconds(r.Seconds))
	}
	return sb.String(), nil
}

// Resource Handlers

func (s *Server) getOverview() string {
	stats := s.nav.Stats()

	var sb strings.Builder
	sb.WriteString("# Wayfinder Graph Overview\n\n")
	fmt.Fprintf(&sb, "- Locations: %d\n", stats.Locations)
	fmt.Fprintf(&sb, "- Routes: %d\n", stats.Routes)
	if s.storage != nil {
		fmt.Fprintf(&sb, "- Stored locations: %d\n", s.storage.NodeCount())
		fmt.Fprintf(&sb, "- Stored routes: %d\n", s.storage.EdgeCount())
	}
	return sb.String()
}

func (s *Server) getLocationList() string {
	names := s.nav.Locations()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Locations (%d)\n\n", len(names))
	for _, name := range names {
		fmt.Fprintf(&sb, "- %s\n", name)
	}
	return sb.String()
}

// Helper functions

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func trimmedList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
