package indexer

import (
	"path/filepath"

	gitignore "github.com/crackcomm/go-gitignore"
)

// Exclude is the Walk phase's rule set: glob accept/reject patterns plus
// an optional built-in .gitignore parser for the .gitignore file at the
// walk root; .gitignore files in subdirectories are not read. Reject wins
// over accept. With no accept patterns an unmatched path is kept; with
// accept patterns, a path matching none of them is excluded.
type Exclude struct {
	accept []string
	reject []string
	ignore *gitignore.GitIgnore
	root   string
}

// NewExclude builds an Exclude from glob patterns matched against a
// path's base name. If useGitignore is true and root contains a
// .gitignore file, its patterns are parsed and applied as additional
// reject rules.
func NewExclude(accept, reject []string, root string, useGitignore bool) *Exclude {
	e := &Exclude{accept: accept, reject: reject, root: root}
	if useGitignore {
		if gi, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			e.ignore = gi
		}
	}
	return e
}

// Matches reports whether path should be excluded from the walk.
func (e *Exclude) Matches(path string, isDir bool) bool {
	if e == nil {
		return false
	}
	base := filepath.Base(path)

	for _, pattern := range e.reject {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	if e.ignore != nil {
		rel, err := filepath.Rel(e.root, path)
		if err == nil && e.ignore.MatchesPath(rel) {
			return true
		}
	}
	if len(e.accept) == 0 {
		return false
	}
	for _, pattern := range e.accept {
		if matched, _ := filepath.Match(pattern, base); matched {
			return false
		}
	}
	return true
}
