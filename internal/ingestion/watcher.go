package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/spf13/afero"

	"github.com/Benny93/wayfinder-go/internal/graph"
	"github.com/Benny93/wayfinder-go/internal/storage"
)

// DefaultDebounce is how long the watcher waits for a burst of changes to settle.
const DefaultDebounce = 2 * time.Second

// WatchOptions configures WatchGraph.
type WatchOptions struct {
	// Debounce is the quiet period before reloading. Zero means DefaultDebounce.
	Debounce time.Duration

	// OnReload receives each newly loaded graph.
	OnReload func(g *graph.Graph[string], result *PipelineResult)

	// OnError receives reload and watch errors. Nil prints them to stderr.
	OnError func(err error)

	// Ready, if set, is closed once the watches are in place.
	Ready chan<- struct{}
}

// WatchGraph monitors a graph file or directory and reloads it into store
// whenever graph files change. Blocks until the context is cancelled.
func WatchGraph(ctx context.Context, path string, store storage.StorageBackend, opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.OnError == nil {
		opts.OnError = func(err error) {
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	root := path
	var matches func(name string) bool
	if info.IsDir() {
		matcher, err := loadMatcher(root)
		if err != nil {
			return fmt.Errorf("reading .gitignore: %w", err)
		}
		if err := addWatches(watcher, root, matcher); err != nil {
			return fmt.Errorf("setting up watcher: %w", err)
		}
		matches = func(name string) bool { return shouldWatchFile(name, root, matcher) }
	} else {
		// Editors often replace files on save, so watch the parent directory.
		root = filepath.Dir(path)
		if err := watcher.Add(root); err != nil {
			return fmt.Errorf("setting up watcher: %w", err)
		}
		target := filepath.Clean(path)
		matches = func(name string) bool { return filepath.Clean(name) == target }
	}

	batchTimer := time.NewTimer(opts.Debounce)
	batchTimer.Stop() // Don't start yet
	defer batchTimer.Stop()
	pending := false

	if opts.Ready != nil {
		close(opts.Ready)
	}

	fs := afero.NewOsFs()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) && info.IsDir() {
				if st, err := os.Stat(event.Name); err == nil && st.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if !matches(event.Name) {
				continue
			}

			pending = true
			batchTimer.Reset(opts.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			opts.OnError(err)

		case <-batchTimer.C:
			if !pending {
				continue
			}
			pending = false

			g, result, err := RunPipeline(ctx, fs, path, store, nil)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				opts.OnError(fmt.Errorf("reloading %s: %w", path, err))
				continue
			}
			if opts.OnReload != nil {
				opts.OnReload(g, result)
			}
		}
	}
}

// addWatches watches root and every non-ignored directory below it.
func addWatches(watcher *fsnotify.Watcher, root string, matcher gitignore.Matcher) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, _ := filepath.Rel(root, path); rel != "." && matcher.Match(splitPath(rel), true) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// shouldWatchFile checks if a changed file should trigger a reload.
func shouldWatchFile(path, root string, matcher gitignore.Matcher) bool {
	if !IsGraphFile(path) {
		return false
	}
	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return !matcher.Match(splitPath(relPath), false)
}

func loadMatcher(root string) (gitignore.Matcher, error) {
	patterns, err := loadGitignore(afero.NewOsFs(), root)
	if err != nil {
		return nil, err
	}
	return newMatcher(patterns), nil
}
