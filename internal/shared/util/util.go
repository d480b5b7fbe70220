package util

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// NormalizePatternPath cleans and normalizes paths for matcher/pattern usage.
func NormalizePatternPath(s string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	clean := path.Clean(trimmed)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// EnsureParentDir creates the directory that will hold file.
func EnsureParentDir(file string) error {
	dir := filepath.Dir(file)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// PathFilter decides which source files and directories take part in an
// index run. Directory and file globs are matched against base names.
type PathFilter struct {
	extensions   map[string]bool
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
}

func NewPathFilter(extensions, excludeDirs, excludeFiles []string) (*PathFilter, error) {
	f := &PathFilter{extensions: make(map[string]bool, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		f.extensions[ext] = true
	}

	var err error
	if f.excludeDirs, err = compileGlobs(excludeDirs); err != nil {
		return nil, err
	}
	if f.excludeFiles, err = compileGlobs(excludeFiles); err != nil {
		return nil, err
	}
	return f, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = NormalizePatternPath(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// SkipDir reports whether the directory at p is excluded.
func (f *PathFilter) SkipDir(p string) bool {
	base := filepath.Base(p)
	for _, g := range f.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// AcceptFile reports whether the file at p should be parsed. An empty
// extension set accepts every extension.
func (f *PathFilter) AcceptFile(p string) bool {
	base := filepath.Base(p)
	if len(f.extensions) > 0 && !f.extensions[strings.ToLower(filepath.Ext(base))] {
		return false
	}
	for _, g := range f.excludeFiles {
		if g.Match(base) {
			return false
		}
	}
	return true
}

// InExcludedDir reports whether any directory between root and p is
// excluded. Used for event paths that did not come from a directory walk.
func (f *PathFilter) InExcludedDir(root, p string) bool {
	rel, err := filepath.Rel(root, filepath.Dir(p))
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == ".." {
			return false
		}
		for _, g := range f.excludeDirs {
			if g.Match(part) {
				return true
			}
		}
	}
	return false
}
