package outputs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultSkipDirs are never descended into when resolving recursive patterns.
var DefaultSkipDirs = []string{".git", "node_modules"}

// Resolver turns output patterns into the existing files they name.
type Resolver struct {
	Root     string
	SkipDirs []string
}

// NewResolver creates a resolver rooted at the project directory.
func NewResolver(root string) *Resolver {
	return &Resolver{Root: root, SkipDirs: DefaultSkipDirs}
}

// Resolution is the outcome for one pattern.
type Resolution struct {
	Pattern string
	Files   []string // absolute paths
}

// Exists reports whether at least one file matched.
func (r Resolution) Exists() bool {
	return len(r.Files) > 0
}

// Report summarises a completeness check over every declared pattern.
type Report struct {
	Results   []Resolution
	Satisfied int
	Total     int
	Missing   []string
}

// Complete reports whether every pattern resolved to at least one file.
func (r Report) Complete() bool {
	return r.Satisfied == r.Total
}

// Check resolves every pattern from scratch. Nothing is cached between calls.
func (r *Resolver) Check(patterns []string) Report {
	rep := Report{Total: len(patterns)}
	for _, p := range patterns {
		res := r.Resolve(p)
		rep.Results = append(rep.Results, res)
		if res.Exists() {
			rep.Satisfied++
		} else {
			rep.Missing = append(rep.Missing, p)
		}
	}
	return rep
}

// Resolve finds the files pattern names.
//
// A literal path is a plain existence check. A pattern whose wildcards are all
// in the final segment lists that one directory. Anything with "**" or a
// wildcard in a directory segment walks the tree below the pattern's literal
// prefix and matches root-relative paths against the whole pattern.
func (r *Resolver) Resolve(pattern string) Resolution {
	res := Resolution{Pattern: pattern}
	np := Normalize(pattern)

	if !HasMeta(np) {
		full := filepath.Join(r.Root, filepath.FromSlash(np))
		if _, err := os.Stat(full); err == nil {
			res.Files = []string{full}
		}
		return res
	}

	dir, base := splitPattern(np)
	if !strings.Contains(np, "**") && !HasMeta(dir) {
		res.Files = r.listDir(dir, base)
		return res
	}
	res.Files = r.walk(np)
	return res
}

func (r *Resolver) listDir(dir, base string) []string {
	full := filepath.Join(r.Root, filepath.FromSlash(dir))
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if ok, err := doublestar.Match(base, e.Name()); err == nil && ok {
			files = append(files, filepath.Join(full, e.Name()))
		}
	}
	return files
}

func (r *Resolver) walk(pattern string) []string {
	prefix, _ := doublestar.SplitPattern(pattern)
	start := r.Root
	if prefix != "." && prefix != "" {
		start = filepath.Join(r.Root, filepath.FromSlash(prefix))
	}

	var files []string
	_ = filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && p != start {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != start && r.skip(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(r.Root, p)
		if err != nil {
			return nil
		}
		if ok, err := doublestar.Match(pattern, filepath.ToSlash(rel)); err == nil && ok {
			files = append(files, p)
		}
		return nil
	})
	return files
}

func (r *Resolver) skip(name string) bool {
	for _, s := range r.SkipDirs {
		if name == s {
			return true
		}
	}
	return false
}
