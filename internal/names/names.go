// SPDX-License-Identifier: MIT
// Package names enforces the naming policy for tracked repositories.
package names

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxLength is the longest accepted repository name, counted in runes.
const MaxLength = 100

// disallowed lists characters that would break paths, globs, or shell quoting.
const disallowed = `\/:*?"<>|`

var (
	errEmpty   = errors.New("name is empty")
	errBlank   = errors.New("name must contain a non-whitespace character")
	errTooLong = fmt.Errorf("name exceeds %d characters", MaxLength)
)

// Validate reports why name is not an acceptable repository name, or nil.
func Validate(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return errEmpty
	}
	if n > MaxLength {
		return errTooLong
	}
	if i := strings.IndexAny(name, disallowed); i >= 0 {
		r, _ := utf8.DecodeRuneInString(name[i:])
		return fmt.Errorf("name contains disallowed character %q", r)
	}
	if strings.TrimSpace(name) == "" {
		return errBlank
	}
	return nil
}

// IsValid reports whether name satisfies the naming policy.
func IsValid(name string) bool {
	return Validate(name) == nil
}

// Fold returns the comparison key used for case-insensitive name matching.
func Fold(name string) string {
	return strings.ToLower(name)
}

// Equal reports whether two names collide under case folding.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}
