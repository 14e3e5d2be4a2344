// Package cmd provides CLI command implementations for Wayfinder.
package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"

	"github.com/Benny93/wayfinder-go/internal/console"
	"github.com/Benny93/wayfinder-go/internal/graph"
	"github.com/Benny93/wayfinder-go/internal/ingestion"
	"github.com/Benny93/wayfinder-go/internal/navigation"
	"github.com/Benny93/wayfinder-go/internal/present"
	"github.com/Benny93/wayfinder-go/internal/server"
	"github.com/Benny93/wayfinder-go/internal/storage"
	"github.com/Benny93/wayfinder-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

const (
	badgerDirName = "badger"
	metaFileName  = "meta.json"
)

// Globals holds the flags shared by every command and the process I/O.
type Globals struct {
	Config  kong.ConfigFlag `help:"Load configuration from a JSON or JSONC file"`
	Verbose bool            `short:"v" help:"Enable verbose output"`
	Quiet   bool            `short:"q" help:"Suppress non-essential output"`
	Dir     string          `default:".wayfinder" type:"path" help:"Index directory"`

	ctx    context.Context
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	fs     afero.Fs
	ui     *console.Printer
}

func (g *Globals) printer() *console.Printer {
	if g.ui == nil {
		g.ui = console.NewWithWriters(g.stdout(), g.stderr(), g.Verbose, g.Quiet)
	}
	return g.ui
}

func (g *Globals) baseContext() context.Context {
	if g.ctx == nil {
		return context.Background()
	}
	return g.ctx
}

func (g *Globals) stdin() io.Reader {
	if g.in == nil {
		return os.Stdin
	}
	return g.in
}

func (g *Globals) stdout() io.Writer {
	if g.out == nil {
		return os.Stdout
	}
	return g.out
}

func (g *Globals) stderr() io.Writer {
	if g.errOut == nil {
		return os.Stderr
	}
	return g.errOut
}

func (g *Globals) filesystem() afero.Fs {
	if g.fs == nil {
		g.fs = afero.NewOsFs()
	}
	return g.fs
}

func (g *Globals) dbPath() string {
	return filepath.Join(g.Dir, badgerDirName)
}

func (g *Globals) metaPath() string {
	return filepath.Join(g.Dir, metaFileName)
}

// Meta describes the loaded index. It is stored as meta.json next to the
// Badger directory.
type Meta struct {
	Version  string                    `json:"version"`
	Source   string                    `json:"source"`
	Stats    *ingestion.PipelineResult `json:"stats"`
	LoadedAt string                    `json:"loaded_at"`
}

// queryFailure carries a failed navigation query. Its message is the
// sentence shown to users.
type queryFailure struct {
	err error
}

func (e *queryFailure) Error() string { return present.Message(e.err) }

func (e *queryFailure) Unwrap() error { return e.err }

// LoadCmd loads a graph file or directory into the index.
type LoadCmd struct {
	Path string `arg:"" type:"path" help:"Graph file (.dot/.gv) or directory of graph files"`
}

// Run executes the load command.
func (c *LoadCmd) Run(g *Globals) error {
	ctx, cancel := signalContext(g.baseContext())
	defer cancel()

	ui := g.printer()
	fs := g.filesystem()

	if _, err := fs.Stat(c.Path); err != nil {
		return fmt.Errorf("accessing %s: %w", c.Path, err)
	}
	if err := fs.MkdirAll(g.Dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(g.dbPath(), false); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	ui.Info("Loading %s", c.Path)
	_, result, err := ingestion.RunPipeline(ctx, fs, c.Path, store, ui.Progress)
	ui.EndProgress()
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	if err := writeMeta(g, c.Path, result); err != nil {
		return err
	}

	ui.Success("✓ Load complete")
	ui.Info("  Files:      %d", result.Files)
	ui.Info("  Locations:  %d", result.Locations)
	ui.Info("  Routes:     %d", result.Routes)
	if result.Skipped > 0 {
		ui.Warn("  Skipped %d lines that are not routes", result.Skipped)
	}
	ui.Debug("  Duration:   %.2fs", result.DurationSecs)
	return nil
}

// LocationsCmd lists or searches locations.
type LocationsCmd struct {
	Query string `arg:"" optional:"" help:"Search query"`
	Limit int    `short:"n" default:"20" help:"Maximum search results"`
}

// Run executes the locations command.
func (c *LocationsCmd) Run(g *Globals) error {
	ctx := g.baseContext()
	store, err := loadStorage(g, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	out := g.stdout()
	if c.Query == "" {
		gr, err := store.LoadGraph(ctx)
		if err != nil {
			return fmt.Errorf("loading graph: %w", err)
		}
		names := navigation.New(gr).Locations()
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		g.printer().Debug("%d locations", len(names))
		return nil
	}

	results, err := store.SearchLocations(ctx, c.Query, c.Limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}
	if len(results) == 0 {
		g.printer().Warn("No locations match %q", c.Query)
		return nil
	}
	for _, r := range results {
		fmt.Fprintln(out, r.Name)
		g.printer().Debug("  score %.3f", r.Score)
	}
	return nil
}

// RoutesCmd lists the routes leaving a location.
type RoutesCmd struct {
	Location string `arg:"" help:"Location name"`
}

// Run executes the routes command.
func (c *RoutesCmd) Run(g *Globals) error {
	ctx := g.baseContext()
	store, err := loadStorage(g, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	loc, err := store.GetLocation(ctx, c.Location)
	if err != nil {
		return fmt.Errorf("reading location: %w", err)
	}
	if loc == nil {
		return fmt.Errorf("unknown location %q", c.Location)
	}

	routes, err := store.RoutesFrom(ctx, c.Location)
	if err != nil {
		return fmt.Errorf("reading routes: %w", err)
	}
	if len(routes) == 0 {
		g.printer().Info("No routes leave %s", c.Location)
		return nil
	}
	for _, r := range routes {
		fmt.Fprintf(g.stdout(), "%s -> %s  %s\n", r.From, r.To, present.FormatSeconds(r.Seconds))
	}
	return nil
}

// PathCmd prints the shortest route between two locations.
type PathCmd struct {
	Start  string `arg:"" help:"Start location"`
	End    string `arg:"" help:"End location"`
	Format string `short:"f" enum:"text,html,json" default:"text" help:"Output format (text, html, json)"`
}

// Run executes the path command.
func (c *PathCmd) Run(g *Globals) error {
	nav, err := loadNavigator(g)
	if err != nil {
		return err
	}
	out := g.stdout()

	switch c.Format {
	case "html":
		fragment, err := present.ShortestPathResponse(nav, c.Start, c.End)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, fragment)
		return nil
	case "json":
		route, err := nav.Route(c.Start, c.End)
		if err != nil {
			return &queryFailure{err: err}
		}
		return writeJSON(out, route)
	}

	route, err := nav.Route(c.Start, c.End)
	if err != nil {
		return &queryFailure{err: err}
	}
	fmt.Fprintf(out, "Start location is %q and end location is %q.\n", route.Start, route.End)
	for i, loc := range route.Locations {
		fmt.Fprintf(out, "%d. %s\n", i+1, loc)
	}
	fmt.Fprintf(out, "Total travel time: %s.\n", present.FormatSeconds(route.Total))
	return nil
}

// ClosestCmd finds the destination with the least summed travel time from
// every start.
type ClosestCmd struct {
	Starts []string `arg:"" help:"Start locations; a single argument may be a comma separated list"`
	Format string   `short:"f" enum:"text,html,json" default:"text" help:"Output format (text, html, json)"`
}

// Run executes the closest command.
func (c *ClosestCmd) Run(g *Globals) error {
	nav, err := loadNavigator(g)
	if err != nil {
		return err
	}
	out := g.stdout()
	starts := present.SplitStarts(strings.Join(c.Starts, ","))

	if c.Format == "html" {
		fragment, err := present.ClosestResponse(nav, strings.Join(starts, ","))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, fragment)
		return nil
	}

	dest, err := nav.ClosestDestinationFromAll(starts)
	if err != nil {
		return &queryFailure{err: err}
	}
	if c.Format == "json" {
		return writeJSON(out, dest)
	}

	fmt.Fprintf(out, "Start locations: %s\n", strings.Join(dest.Starts, ", "))
	fmt.Fprintf(out, "Closest destination: %s\n", dest.Name)
	for i, start := range dest.Starts {
		fmt.Fprintf(out, "  from %s: %s\n", start, present.FormatSeconds(dest.Times[i]))
	}
	fmt.Fprintf(out, "Summed travel time: %s.\n", present.FormatSeconds(dest.Total))
	return nil
}

// WatchCmd keeps the index in sync with a graph file or directory.
type WatchCmd struct {
	Path     string        `arg:"" optional:"" type:"path" help:"Graph file or directory (defaults to the last loaded source)"`
	Debounce time.Duration `default:"2s" help:"Quiet period before reloading"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(g *Globals) error {
	ctx, cancel := signalContext(g.baseContext())
	defer cancel()

	ui := g.printer()
	source, err := resolveSource(g, c.Path)
	if err != nil {
		return err
	}
	if err := g.filesystem().MkdirAll(g.Dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(g.dbPath(), false); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	_, result, err := ingestion.RunPipeline(ctx, g.filesystem(), source, store, nil)
	if err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	if err := writeMeta(g, source, result); err != nil {
		return err
	}
	ui.Success("Watching %s (%d locations, %d routes). Press Ctrl+C to stop.", source, result.Locations, result.Routes)

	err = ingestion.WatchGraph(ctx, source, store, ingestion.WatchOptions{
		Debounce: c.Debounce,
		OnReload: func(_ *graph.Graph[string], result *ingestion.PipelineResult) {
			if err := writeMeta(g, source, result); err != nil {
				ui.Error("%v", err)
			}
			ui.Success("Reloaded %d locations, %d routes", result.Locations, result.Routes)
		},
		OnError: func(err error) { ui.Error("Watch error: %v", err) },
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	ui.Info("Stopped watching")
	return nil
}

// ServeCmd serves the HTML and JSON interface over HTTP.
type ServeCmd struct {
	Addr  string `default:"127.0.0.1:8080" help:"Listen address"`
	Watch bool   `short:"w" help:"Reload the graph when its source changes"`
}

// Run executes the serve command.
func (c *ServeCmd) Run(g *Globals) error {
	ctx, cancel := signalContext(g.baseContext())
	defer cancel()

	ui := g.printer()
	store, err := loadStorage(g, !c.Watch)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	gr, err := store.LoadGraph(ctx)
	if err != nil {
		return fmt.Errorf("loading graph: %w", err)
	}
	nav := navigation.New(gr)

	if c.Watch {
		if err := startWatch(ctx, g, store, nav); err != nil {
			return err
		}
	}

	ui.Success("Serving %d locations on http://%s", gr.NodeCount(), c.Addr)
	err = server.ListenAndServe(ctx, c.Addr, server.NewRouter(server.NewHandler(nav, store)))
	if err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	ui.Info("Server stopped")
	return nil
}

// MCPCmd starts the MCP server on stdio.
type MCPCmd struct {
	Watch bool `short:"w" help:"Reload the graph when its source changes"`
}

// Run executes the mcp command.
func (c *MCPCmd) Run(g *Globals) error {
	ctx, cancel := signalContext(g.baseContext())
	defer cancel()

	store, err := loadStorage(g, !c.Watch)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	gr, err := store.LoadGraph(ctx)
	if err != nil {
		return fmt.Errorf("loading graph: %w", err)
	}
	nav := navigation.New(gr)

	// stdout carries JSON-RPC only; everything else goes to stderr.
	if c.Watch {
		if err := startWatch(ctx, g, store, nav); err != nil {
			return err
		}
	}

	return mcp.NewServer(nav, store, Version).Run(ctx, g.stdin(), g.stdout())
}

// StatusCmd shows the state of the index.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run(g *Globals) error {
	meta, err := readMeta(g)
	if err != nil {
		return err
	}

	out := g.stdout()
	fmt.Fprintf(out, "Index status for %s\n", g.Dir)
	fmt.Fprintf(out, "  Version:      %s\n", meta.Version)
	fmt.Fprintf(out, "  Source:       %s\n", meta.Source)
	fmt.Fprintf(out, "  Last loaded:  %s\n", meta.LoadedAt)
	if meta.Stats != nil {
		fmt.Fprintf(out, "  Files:        %d\n", meta.Stats.Files)
		fmt.Fprintf(out, "  Locations:    %d\n", meta.Stats.Locations)
		fmt.Fprintf(out, "  Routes:       %d\n", meta.Stats.Routes)
		fmt.Fprintf(out, "  Skipped:      %d\n", meta.Stats.Skipped)
	}
	return nil
}

// CleanCmd deletes the index.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(g *Globals) error {
	fs := g.filesystem()
	exists, err := afero.DirExists(fs, g.Dir)
	if err != nil {
		return fmt.Errorf("checking %s: %w", g.Dir, err)
	}
	if !exists {
		return fmt.Errorf("no index found at %s. Nothing to clean", g.Dir)
	}

	if !c.Force {
		fmt.Fprintf(g.stdout(), "Delete index at %s? [y/N] ", g.Dir)
		response, _ := bufio.NewReader(g.stdin()).ReadString('\n')
		response = strings.TrimSpace(response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(g.stdout(), "Aborted")
			return nil
		}
	}

	if err := fs.RemoveAll(g.Dir); err != nil {
		return fmt.Errorf("deleting index: %w", err)
	}

	g.printer().Success("Deleted %s", g.Dir)
	return nil
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := osSignalChannel()
	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func loadStorage(g *Globals, readOnly bool) (*storage.BadgerBackend, error) {
	dbPath := g.dbPath()
	exists, err := afero.DirExists(g.filesystem(), dbPath)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", dbPath, err)
	}
	if !exists {
		return nil, fmt.Errorf("no index found at %s. Run 'wayfinder load <path>' first", g.Dir)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, readOnly); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	g.printer().Debug("Opened %s (%d locations, %d routes)", dbPath, store.NodeCount(), store.EdgeCount())
	return store, nil
}

// loadNavigator reads the whole graph and closes the store.
func loadNavigator(g *Globals) (*navigation.Navigator, error) {
	store, err := loadStorage(g, true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	gr, err := store.LoadGraph(g.baseContext())
	if err != nil {
		return nil, fmt.Errorf("loading graph: %w", err)
	}
	return navigation.New(gr), nil
}

// startWatch reloads nav from the recorded source whenever it changes.
func startWatch(ctx context.Context, g *Globals, store storage.StorageBackend, nav *navigation.Navigator) error {
	ui := g.printer()
	source, err := resolveSource(g, "")
	if err != nil {
		return err
	}

	go func() {
		err := ingestion.WatchGraph(ctx, source, store, ingestion.WatchOptions{
			OnReload: func(gr *graph.Graph[string], result *ingestion.PipelineResult) {
				nav.Replace(gr)
				if err := writeMeta(g, source, result); err != nil {
					ui.Error("%v", err)
				}
				ui.Debug("Reloaded %d locations, %d routes", result.Locations, result.Routes)
			},
			OnError: func(err error) { ui.Error("Watch error: %v", err) },
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			ui.Error("Watch error: %v", err)
		}
	}()

	fmt.Fprintf(g.stderr(), "File watching enabled for %s\n", source)
	return nil
}

// resolveSource returns path, or the source recorded by the last load.
func resolveSource(g *Globals, path string) (string, error) {
	if path != "" {
		return path, nil
	}
	meta, err := readMeta(g)
	if err != nil {
		return "", err
	}
	if meta.Source == "" {
		return "", fmt.Errorf("%s records no source; pass a path", g.metaPath())
	}
	return meta.Source, nil
}

func writeMeta(g *Globals, source string, result *ingestion.PipelineResult) error {
	meta := Meta{
		Version:  Version,
		Source:   source,
		Stats:    result,
		LoadedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding meta.json: %w", err)
	}
	if err := afero.WriteFile(g.filesystem(), g.metaPath(), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing meta.json: %w", err)
	}
	return nil
}

func readMeta(g *Globals) (*Meta, error) {
	data, err := afero.ReadFile(g.filesystem(), g.metaPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no index found at %s. Run 'wayfinder load <path>' first", g.Dir)
		}
		return nil, fmt.Errorf("reading meta.json: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing meta.json: %w", err)
	}
	return &meta, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// jsoncLoader reads kong configuration files that may carry comments and
// trailing commas.
func jsoncLoader(r io.Reader) (kong.Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return kong.JSON(bytes.NewReader(jsonc.ToJSON(data)))
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`

	// Commands
	Load      LoadCmd      `cmd:"" help:"Load a graph file or directory into the index"`
	Locations LocationsCmd `cmd:"" help:"List or search locations"`
	Routes    RoutesCmd    `cmd:"" help:"List the routes leaving a location"`
	Path      PathCmd      `cmd:"" help:"Show the shortest route between two locations"`
	Closest   ClosestCmd   `cmd:"" help:"Find the closest destination from several starts"`
	Watch     WatchCmd     `cmd:"" help:"Watch mode with live reloading"`
	Serve     ServeCmd     `cmd:"" help:"Start the HTTP server"`
	MCP       MCPCmd       `cmd:"" help:"Start MCP server (stdio transport)"`
	Setup     SetupCmd     `cmd:"" help:"Configure MCP for Claude Code / Cursor / Qwen"`
	Status    StatusCmd    `cmd:"" help:"Show index status"`
	Clean     CleanCmd     `cmd:"" help:"Delete the index"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("wayfinder"),
		kong.Description("Shortest routes and meeting points over weighted location graphs"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Configuration(jsoncLoader, ".wayfinder.json", "~/.config/wayfinder/config.json"),
		kong.Writers(c.stdout(), c.stderr()),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	return kongCtx.Run(&c.Globals)
}
