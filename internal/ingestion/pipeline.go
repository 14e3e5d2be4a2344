package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/Benny93/wayfinder-go/internal/graph"
	"github.com/Benny93/wayfinder-go/internal/storage"
)

// ErrNoGraphFiles is returned when a directory holds no graph files.
var ErrNoGraphFiles = errors.New("no graph files found")

// PipelineResult summarizes a pipeline run.
type PipelineResult struct {
	Files        int     `json:"files"`
	Locations    int     `json:"locations"`
	Routes       int     `json:"routes"`
	Skipped      int     `json:"skipped"`
	DurationSecs float64 `json:"duration_secs"`
}

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// RunPipeline loads path (a graph file or a directory of graph files) into
// one graph and bulk-loads it into store. A nil store only builds the graph.
func RunPipeline(
	ctx context.Context,
	fs afero.Fs,
	path string,
	store storage.StorageBackend,
	progress ProgressCallback,
) (*graph.Graph[string], *PipelineResult, error) {
	start := time.Now()
	result := &PipelineResult{}
	report := func(phase string, p float64) {
		if progress != nil {
			progress(phase, p)
		}
	}

	// Phase 1: discover files
	report("Finding graph files", 0.0)
	files, err := collectFiles(fs, path)
	if err != nil {
		return nil, nil, err
	}
	result.Files = len(files)
	report("Finding graph files", 1.0)

	// Phase 2: parse and merge
	g := graph.New[string]()
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		routes, stats, err := ParseDOT(bytes.NewReader(f.Content))
		if err != nil {
			return nil, nil, errors.Wrap(err, f.RelPath)
		}
		if err := mergeInto(g, routes); err != nil {
			return nil, nil, errors.Wrap(err, f.RelPath)
		}
		result.Skipped += stats.Skipped
		report("Parsing routes", float64(i+1)/float64(len(files)))
	}
	result.Locations = g.NodeCount()
	result.Routes = g.EdgeCount()

	// Phase 3: store
	if store != nil {
		report("Storing graph", 0.0)
		if err := store.BulkLoad(ctx, g); err != nil {
			return nil, nil, fmt.Errorf("storing graph: %w", err)
		}
		report("Storing graph", 1.0)
	}

	result.DurationSecs = time.Since(start).Seconds()
	return g, result, nil
}

func collectFiles(fs afero.Fs, path string) ([]GraphFile, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if !info.IsDir() {
		gf, err := readGraphFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return []GraphFile{gf}, nil
	}

	files, err := WalkGraphFiles(fs, path)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, errors.Wrap(ErrNoGraphFiles, path)
	}
	return files, nil
}
