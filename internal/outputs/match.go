// Package outputs matches and resolves the path patterns a task declares as
// its outputs.
package outputs

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// HasMeta reports whether pattern uses glob syntax.
func HasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// Normalize converts p to a slash path without a leading "./".
func Normalize(p string) string {
	p = filepath.ToSlash(p)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

// RelPath expresses the event's file path relative to root. Relative inputs
// are taken as already relative to root.
func RelPath(root, filePath string) string {
	abs := filePath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, abs)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return Normalize(filePath)
	}
	return Normalize(rel)
}

// Matches reports whether a written file satisfies pattern. rel is the
// root-relative path, raw the path exactly as the tool reported it.
//
// Glob patterns use doublestar semantics: "**" crosses directories, "*" and
// "?" stay within one segment, dotfiles are not special and matching is case
// sensitive.
func Matches(rel, raw, pattern string) bool {
	np := Normalize(pattern)
	nr := Normalize(rel)
	if HasMeta(pattern) {
		ok, err := doublestar.Match(np, nr)
		return err == nil && ok
	}
	return np == nr || pattern == raw
}

// MatchesAny reports whether rel satisfies at least one pattern.
func MatchesAny(rel, raw string, patterns []string) bool {
	for _, p := range patterns {
		if Matches(rel, raw, p) {
			return true
		}
	}
	return false
}

// splitPattern returns the directory part and the final segment.
func splitPattern(pattern string) (dir, base string) {
	dir, base = path.Split(pattern)
	return strings.TrimSuffix(dir, "/"), base
}
