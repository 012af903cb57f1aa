// SPDX-License-Identifier: MIT
// Package pathutil normalizes user-supplied repository paths into canonical
// absolute paths used for registry uniqueness checks.
package pathutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	// ErrUnresolvable marks paths that cannot be turned into a canonical path.
	ErrUnresolvable = errors.New("path cannot be resolved")
	// ErrNotDirectory marks canonical paths that exist but are not directories.
	ErrNotDirectory = errors.New("path is not a directory")
)

// Resolver turns raw paths into canonical ones. The zero value is not usable;
// construct with NewResolver.
type Resolver struct {
	home *HomeExpander
}

// NewResolver returns a Resolver that expands "~" using home. A nil home
// falls back to os.UserHomeDir.
func NewResolver(home *HomeExpander) *Resolver {
	if home == nil {
		home = NewHomeExpander()
	}
	return &Resolver{home: home}
}

// Resolve expands "~", makes raw absolute, cleans "." and ".." segments, and
// follows symlinks for the portion of the path that exists. Missing trailing
// segments are kept as-is. It reports false on any OS-level failure.
func (r *Resolver) Resolve(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	expanded, err := r.home.Expand(raw)
	if err != nil {
		return "", false
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", false
	}
	resolved, err := evalExisting(abs)
	if err != nil {
		return "", false
	}
	return resolved, true
}

// ResolveDir resolves raw and requires the result to be an existing directory.
func (r *Resolver) ResolveDir(raw string) (string, error) {
	resolved, ok := r.Resolve(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnresolvable, raw)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, resolved)
	}
	return resolved, nil
}

// evalExisting resolves symlinks on the longest existing prefix of abs and
// appends the remaining segments unchanged.
func evalExisting(abs string) (string, error) {
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	parent := filepath.Dir(abs)
	if parent == abs {
		return abs, nil
	}
	base, err := evalExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, filepath.Base(abs)), nil
}

// Portable converts a native path to the forward-slash form stored on disk.
func Portable(path string) string {
	return filepath.ToSlash(path)
}

// Native converts a stored forward-slash path to the platform form.
func Native(path string) string {
	return filepath.Clean(filepath.FromSlash(path))
}

// Same reports whether two canonical paths name the same location. Windows and
// macOS file systems are case-insensitive by default.
func Same(a, b string) bool {
	a = filepath.Clean(a)
	b = filepath.Clean(b)
	switch runtime.GOOS {
	case "windows", "darwin":
		return strings.EqualFold(a, b)
	default:
		return a == b
	}
}
