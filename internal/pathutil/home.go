// SPDX-License-Identifier: MIT
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// HomeDirFunc resolves the current user's home directory.
type HomeDirFunc func() (string, error)

// HomeExpander rewrites a leading "~" to the user's home directory. The home
// directory is looked up once and cached.
type HomeExpander struct {
	lookup HomeDirFunc
	once   sync.Once
	home   string
	err    error
}

// NewHomeExpander returns an expander backed by os.UserHomeDir.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithLookup(os.UserHomeDir)
}

// NewHomeExpanderWithLookup returns an expander using lookup for the home directory.
func NewHomeExpanderWithLookup(lookup HomeDirFunc) *HomeExpander {
	if lookup == nil {
		lookup = os.UserHomeDir
	}
	return &HomeExpander{lookup: lookup}
}

// Expand returns raw with a leading "~" or "~/" replaced by the home
// directory. "~user" forms are returned unchanged.
func (h *HomeExpander) Expand(raw string) (string, error) {
	if h == nil || !strings.HasPrefix(raw, "~") {
		return raw, nil
	}
	rest := raw[1:]
	if rest != "" && rest[0] != '/' && rest[0] != filepath.Separator {
		return raw, nil
	}
	h.once.Do(func() {
		h.home, h.err = h.lookup()
	})
	if h.err != nil {
		return "", h.err
	}
	if rest == "" {
		return h.home, nil
	}
	return filepath.Join(h.home, rest[1:]), nil
}
