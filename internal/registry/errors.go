// SPDX-License-Identifier: MIT
package registry

import "errors"

var (
	// ErrInvalidName marks names rejected by the naming policy.
	ErrInvalidName = errors.New("invalid repository name")
	// ErrInvalidPath marks paths that do not resolve to an existing directory.
	ErrInvalidPath = errors.New("invalid repository path")
	// ErrDuplicateName marks a name that collides case-insensitively.
	ErrDuplicateName = errors.New("repository name already registered")
	// ErrDuplicatePath marks a canonical path that is already registered.
	ErrDuplicatePath = errors.New("repository path already registered")
	// ErrNotFound marks a name or selector that matches no entry.
	ErrNotFound = errors.New("repository not found")
	// ErrPersistence marks a failed snapshot write. The registry keeps its
	// previous state when this is returned.
	ErrPersistence = errors.New("registry snapshot not written")
)
