package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/spf13/afero"
)

// GraphFile represents a graph file to be loaded.
type GraphFile struct {
	// Path is the file path as seen by the filesystem.
	Path string

	// RelPath is the path relative to the walk root.
	RelPath string

	// Content is the file content.
	Content []byte

	// SHA256 is the hash of the file content.
	SHA256 string
}

// Supported graph file extensions.
var graphExtensions = map[string]bool{
	".dot": true,
	".gv":  true,
}

// Default patterns to ignore (in addition to .gitignore).
var defaultIgnorePatterns = []string{
	".git/",
	".wayfinder/",
	"node_modules/",
	"vendor/",
	".DS_Store",
	"*.tmp",
	"*~",
}

// WalkGraphFiles walks root and returns every graph file, sorted by path.
func WalkGraphFiles(fs afero.Fs, root string) ([]GraphFile, error) {
	patterns, err := loadGitignore(fs, root)
	if err != nil {
		return nil, err
	}
	matcher := newMatcher(patterns)

	var files []GraphFile
	err = afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if relPath != "." && matcher.Match(splitPath(relPath), true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsGraphFile(info.Name()) || matcher.Match(splitPath(relPath), false) {
			return nil
		}

		gf, err := readGraphFile(fs, path)
		if err != nil {
			return err
		}
		gf.RelPath = relPath
		files = append(files, gf)
		return nil
	})

	return files, err
}

// IsGraphFile reports whether a file name has a graph file extension.
func IsGraphFile(name string) bool {
	return graphExtensions[strings.ToLower(filepath.Ext(name))]
}

func readGraphFile(fs afero.Fs, path string) (GraphFile, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return GraphFile{}, err
	}
	hash := sha256.Sum256(content)
	return GraphFile{
		Path:    path,
		RelPath: filepath.Base(path),
		Content: content,
		SHA256:  hex.EncodeToString(hash[:]),
	}, nil
}

// loadGitignore loads .gitignore patterns from the walk root.
func loadGitignore(fs afero.Fs, root string) ([]gitignore.Pattern, error) {
	content, err := afero.ReadFile(fs, filepath.Join(root, ".gitignore"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns, nil
}

// newMatcher combines the default patterns with loaded ones.
func newMatcher(patterns []gitignore.Pattern) gitignore.Matcher {
	all := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns)+len(patterns))
	for _, p := range defaultIgnorePatterns {
		all = append(all, gitignore.ParsePattern(p, nil))
	}
	all = append(all, patterns...)
	return gitignore.NewMatcher(all)
}

// splitPath splits a path into its components.
func splitPath(path string) []string {
	return strings.Split(filepath.ToSlash(path), "/")
}
