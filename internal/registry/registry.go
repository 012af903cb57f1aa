// SPDX-License-Identifier: MIT
// Package registry owns the set of tracked repositories: their names, canonical
// paths, and metadata. Every mutation is validated against the uniqueness
// rules and persisted as a whole-file snapshot before it takes effect.
//
// A Registry is not safe for concurrent use; callers serialize mutations.
package registry

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/skaphos/grm/internal/names"
	"github.com/skaphos/grm/internal/pathutil"
)

// Entry is a single tracked repository.
type Entry struct {
	Name    string   `json:"name" yaml:"name"`
	Path    string   `json:"path" yaml:"path"`
	Plugins []string `json:"plugins" yaml:"plugins"`
	Enabled bool     `json:"enabled" yaml:"enabled"`
}

func (e Entry) clone() Entry {
	e.Plugins = slices.Clone(e.Plugins)
	return e
}

// Options configures Load and New.
type Options struct {
	// Resolver canonicalizes paths. Defaults to a resolver using the real home directory.
	Resolver *pathutil.Resolver
	// Logger receives load and persistence diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Registry is the in-memory view of the snapshot file at Path.
type Registry struct {
	path     string
	resolver *pathutil.Resolver
	logger   *zap.Logger
	current  state
}

type state struct {
	entries        []Entry
	defaultPlugins []string
}

func (s state) clone() state {
	out := state{
		entries:        make([]Entry, len(s.entries)),
		defaultPlugins: slices.Clone(s.defaultPlugins),
	}
	for i, e := range s.entries {
		out.entries[i] = e.clone()
	}
	return out
}

func (s state) indexByName(name string, skip int) int {
	for i := range s.entries {
		if i != skip && names.Equal(s.entries[i].Name, name) {
			return i
		}
	}
	return -1
}

func (s state) indexByPath(path string, skip int) int {
	for i := range s.entries {
		if i != skip && pathutil.Same(s.entries[i].Path, path) {
			return i
		}
	}
	return -1
}

// errUnchanged aborts a mutation without writing or reporting an error.
var errUnchanged = errors.New("unchanged")

// New returns an empty registry that persists to path.
func New(path string, opts Options) *Registry {
	r := &Registry{path: path, resolver: opts.Resolver, logger: opts.Logger}
	if r.resolver == nil {
		r.resolver = pathutil.NewResolver(nil)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Load reads the snapshot at path. A missing, unreadable, or unparsable
// snapshot yields an empty registry; it is never an error.
func Load(path string, opts Options) *Registry {
	r := New(path, opts)
	if st, ok := r.readDisk(); ok {
		r.current = st
	}
	return r
}

// readDisk returns the on-disk state and whether it was read and parsed.
func (r *Registry) readDisk() (state, bool) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("registry snapshot unreadable; treating as empty", zap.String("path", r.path), zap.Error(err))
		}
		return state{}, false
	}
	st, err := decodeSnapshot(data, r.resolver, r.logger)
	if err != nil {
		r.logger.Warn("registry snapshot corrupt; treating as empty", zap.String("path", r.path), zap.Error(err))
		return state{}, false
	}
	return st, true
}

// Path returns the snapshot file location.
func (r *Registry) Path() string { return r.path }

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.current.entries) }

// All returns copies of every entry in display order.
func (r *Registry) All() []Entry {
	return r.current.clone().entries
}

// Enabled returns copies of the enabled entries in display order.
func (r *Registry) Enabled() []Entry {
	var out []Entry
	for _, e := range r.current.entries {
		if e.Enabled {
			out = append(out, e.clone())
		}
	}
	return out
}

// Find looks an entry up by case-insensitive name.
func (r *Registry) Find(name string) (Entry, bool) {
	idx := r.current.indexByName(strings.TrimSpace(name), -1)
	if idx < 0 {
		return Entry{}, false
	}
	return r.current.entries[idx].clone(), true
}

// DefaultPlugins returns the plugin tags applied to newly added entries.
func (r *Registry) DefaultPlugins() []string {
	return slices.Clone(r.current.defaultPlugins)
}

// Select resolves selectors to entries in display order without duplicates.
// Each selector is an exact case-insensitive name or a doublestar glob over
// names. A selector matching nothing is an ErrNotFound error.
func (r *Registry) Select(selectors []string) ([]Entry, error) {
	picked := make([]bool, len(r.current.entries))
	for _, raw := range selectors {
		sel := strings.TrimSpace(raw)
		if sel == "" {
			continue
		}
		if idx := r.current.indexByName(sel, -1); idx >= 0 {
			picked[idx] = true
			continue
		}
		pattern := names.Fold(sel)
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: invalid selector %q", ErrNotFound, raw)
		}
		matched := false
		for i, e := range r.current.entries {
			ok, err := doublestar.Match(pattern, names.Fold(e.Name))
			if err != nil {
				return nil, fmt.Errorf("%w: invalid selector %q: %v", ErrNotFound, raw, err)
			}
			if ok {
				picked[i] = true
				matched = true
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, raw)
		}
	}
	var out []Entry
	for i, ok := range picked {
		if ok {
			out = append(out, r.current.entries[i].clone())
		}
	}
	return out, nil
}

// Add registers rawPath under name. Plugins default to the registry's default
// plugins when none are given. A path already registered is reported ahead of
// a name collision.
func (r *Registry) Add(name, rawPath string, plugins ...string) error {
	name = strings.TrimSpace(name)
	if err := names.Validate(name); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidName, name, err)
	}
	resolved, err := r.resolveDir(rawPath)
	if err != nil {
		return err
	}
	return r.mutate(func(st *state) error {
		if idx := st.indexByPath(resolved, -1); idx >= 0 {
			return fmt.Errorf("%w: %s (registered as %q)", ErrDuplicatePath, resolved, st.entries[idx].Name)
		}
		if idx := st.indexByName(name, -1); idx >= 0 {
			return fmt.Errorf("%w: %q (existing %q)", ErrDuplicateName, name, st.entries[idx].Name)
		}
		tags := cleanPlugins(plugins)
		if len(plugins) == 0 {
			tags = cleanPlugins(st.defaultPlugins)
		}
		st.entries = append(st.entries, Entry{Name: name, Path: resolved, Plugins: tags, Enabled: true})
		return nil
	})
}

// Rename changes an entry's name and, when newPath is non-empty, its path.
// Duplicate checks ignore the entry being renamed, so renaming an entry to
// itself succeeds. The entry keeps its display position.
func (r *Registry) Rename(oldName, newName, newPath string) error {
	newName = strings.TrimSpace(newName)
	if err := names.Validate(newName); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidName, newName, err)
	}
	return r.Edit(oldName, Change{Name: newName, Path: newPath})
}

// Change describes an edit applied by Edit. Zero fields keep the current
// value; a non-nil empty Plugins clears the tags.
type Change struct {
	Name    string
	Path    string
	Plugins []string
	Enabled *bool
}

// Edit applies every field of c to the entry matching name in a single
// snapshot write, so either all of the change is persisted or none of it.
func (r *Registry) Edit(name string, c Change) error {
	name = strings.TrimSpace(name)
	newName := strings.TrimSpace(c.Name)
	if newName != "" {
		if err := names.Validate(newName); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidName, newName, err)
		}
	}
	resolved := ""
	if strings.TrimSpace(c.Path) != "" {
		var err error
		if resolved, err = r.resolveDir(c.Path); err != nil {
			return err
		}
	}
	var tags []string
	if c.Plugins != nil {
		tags = cleanPlugins(c.Plugins)
	}
	return r.mutate(func(st *state) error {
		idx := st.indexByName(name, -1)
		if idx < 0 {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		entry := &st.entries[idx]
		if newName != "" {
			if other := st.indexByName(newName, idx); other >= 0 {
				return fmt.Errorf("%w: %q (existing %q)", ErrDuplicateName, newName, st.entries[other].Name)
			}
			entry.Name = newName
		}
		if resolved != "" {
			if other := st.indexByPath(resolved, idx); other >= 0 {
				return fmt.Errorf("%w: %s (registered as %q)", ErrDuplicatePath, resolved, st.entries[other].Name)
			}
			entry.Path = resolved
		}
		if c.Plugins != nil {
			entry.Plugins = tags
		}
		if c.Enabled != nil {
			entry.Enabled = *c.Enabled
		}
		return nil
	})
}

// Remove deletes the entry matching name case-insensitively. It reports
// whether an entry was removed; nothing is written when none matched.
func (r *Registry) Remove(name string) (bool, error) {
	name = strings.TrimSpace(name)
	err := r.mutate(func(st *state) error {
		idx := st.indexByName(name, -1)
		if idx < 0 {
			return errUnchanged
		}
		st.entries = slices.Delete(st.entries, idx, idx+1)
		return nil
	})
	switch {
	case errors.Is(err, errUnchanged):
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

// SetEnabled toggles whether name takes part in default sync and status runs.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	return r.update(name, func(e *Entry) { e.Enabled = enabled })
}

// SetPlugins replaces the plugin tags of name.
func (r *Registry) SetPlugins(name string, plugins []string) error {
	tags := cleanPlugins(plugins)
	return r.update(name, func(e *Entry) { e.Plugins = tags })
}

// SetDefaultPlugins replaces the plugin tags applied to new entries.
func (r *Registry) SetDefaultPlugins(plugins []string) error {
	tags := cleanPlugins(plugins)
	return r.mutate(func(st *state) error {
		st.defaultPlugins = tags
		return nil
	})
}

// Save writes the current state to disk unconditionally.
func (r *Registry) Save() error {
	if err := r.persist(r.current); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (r *Registry) update(name string, fn func(*Entry)) error {
	name = strings.TrimSpace(name)
	return r.mutate(func(st *state) error {
		idx := st.indexByName(name, -1)
		if idx < 0 {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		fn(&st.entries[idx])
		return nil
	})
}

// mutate runs one load-modify-persist cycle. fn edits a copy of the freshest
// state; the copy becomes current only after it is written to disk.
func (r *Registry) mutate(fn func(*state) error) error {
	base := r.current
	if disk, ok := r.readDisk(); ok {
		base = disk
	}
	next := base.clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := r.persist(next); err != nil {
		r.logger.Warn("registry snapshot write failed; keeping previous state", zap.String("path", r.path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	r.current = next
	return nil
}

func (r *Registry) persist(st state) error {
	data, err := encodeSnapshot(st)
	if err != nil {
		return err
	}
	if err := writeAtomic(r.path, data); err != nil {
		return err
	}
	r.logger.Debug("registry snapshot written", zap.String("path", r.path), zap.Int("entries", len(st.entries)))
	return nil
}

func (r *Registry) resolveDir(raw string) (string, error) {
	resolved, err := r.resolver.ResolveDir(raw)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidPath, raw, err)
	}
	return resolved, nil
}
