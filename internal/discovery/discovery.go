// Package discovery walks root directories to find git working trees that can
// be registered.
package discovery

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Result represents a discovered working tree.
type Result struct {
	Path string // absolute path to the working tree root
	Name string // suggested registry name (the directory base name)
	// GitDir is the repository directory a ".git" file points to, empty when
	// .git is a directory.
	GitDir string
}

// Options configures the discovery scan.
type Options struct {
	Roots          []string
	Exclude        []string // glob patterns to skip
	FollowSymlinks bool
	// MaxDepth limits how many directory levels below each root are walked.
	// Zero or less means unlimited.
	MaxDepth int
}

// Scan walks all roots and returns discovered working trees in walk order.
// It skips directories matching exclude patterns and does not descend into a
// working tree once found.
func Scan(ctx context.Context, opts Options) ([]Result, error) {
	visited := make(map[string]struct{})
	var results []Result

	for _, root := range opts.Roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		if err := walkRoot(ctx, absRoot, opts, visited, &results); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// MatchesExclude checks whether a path matches any of the given exclude
// glob patterns.
func MatchesExclude(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	slashPath := filepath.ToSlash(path)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		match, err := doublestar.Match(pattern, slashPath)
		if err != nil {
			continue
		}
		if match {
			return true
		}
	}
	return false
}

func walkRoot(ctx context.Context, root string, opts Options, visited map[string]struct{}, results *[]Result) error {
	realRoot := root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		realRoot = resolved
	}
	if _, ok := visited[realRoot]; ok {
		return nil
	}
	visited[realRoot] = struct{}{}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subdirectories are skipped, not fatal.
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		isSymlink := d.Type()&os.ModeSymlink != 0
		if !d.IsDir() && !isSymlink {
			return nil
		}
		if isSymlink {
			if !opts.FollowSymlinks {
				return nil
			}
			target, err := filepath.EvalSymlinks(path)
			if err != nil {
				return nil
			}
			info, err := os.Stat(target)
			if err != nil || !info.IsDir() {
				return nil
			}
			return walkRoot(ctx, target, opts, visited, results)
		}

		if d.Name() == ".git" {
			return fs.SkipDir
		}
		if path != root && MatchesExclude(path, opts.Exclude) {
			return fs.SkipDir
		}

		if found, gitdir := detectWorktree(path); found {
			*results = append(*results, Result{Path: path, Name: filepath.Base(path), GitDir: gitdir})
			return fs.SkipDir
		}

		if opts.MaxDepth > 0 && depth(root, path) >= opts.MaxDepth {
			return fs.SkipDir
		}
		return nil
	})
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

// detectWorktree reports whether dir is the root of a working tree, either
// with a .git directory or with a .git file pointing elsewhere.
func detectWorktree(dir string) (bool, string) {
	gitPath := filepath.Join(dir, ".git")
	info, err := os.Stat(gitPath)
	if err != nil {
		return false, ""
	}
	if info.IsDir() {
		if _, err := os.Stat(filepath.Join(gitPath, "HEAD")); err == nil {
			return true, ""
		}
		return false, ""
	}
	if info.Mode().IsRegular() {
		if gitdir, ok := gitdirFromFile(gitPath); ok {
			return true, gitdir
		}
	}
	return false, ""
}

func gitdirFromFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	content := strings.TrimSpace(string(data))
	if !strings.HasPrefix(content, "gitdir:") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(content, "gitdir:"))
	if raw == "" {
		return "", false
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw), true
	}
	return filepath.Clean(filepath.Join(filepath.Dir(path), raw)), true
}
