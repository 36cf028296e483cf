package lpk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
	"github.com/sikenali/DTOLPK/internal/model"
)

// IgnoreFile holds extra exclusion patterns in .dockerignore syntax.
const IgnoreFile = ".lpkignore"

// DefaultPatterns are always left out of content.tar.
var DefaultPatterns = []string{
	".git", "**/.git",
	".hg", "**/.hg",
	".svn", "**/.svn",
	"node_modules", "**/node_modules",
	"bower_components", "**/bower_components",
	"*.lpk", "**/*.lpk",
	"content.tar", "**/content.tar",
}

// excluder decides which paths under the content directory are packaged.
type excluder struct {
	pm    *patternmatcher.PatternMatcher
	exact map[string]bool // slash-separated paths relative to the content dir
}

// newExcluder combines the default patterns, extra patterns, the optional
// ignore file and exact files such as the consumed compose files.
func newExcluder(dir string, patterns []string, files []string) (*excluder, error) {
	all := append(append([]string{}, DefaultPatterns...), patterns...)

	f, err := os.Open(filepath.Join(dir, IgnoreFile))
	switch {
	case err == nil:
		lines, rerr := ignorefile.ReadAll(f)
		f.Close()
		if rerr != nil {
			return nil, &model.IOError{Op: "read", Path: filepath.Join(dir, IgnoreFile), Err: rerr}
		}
		all = append(all, lines...)
	case !errors.Is(err, os.ErrNotExist):
		return nil, &model.IOError{Op: "open", Path: filepath.Join(dir, IgnoreFile), Err: err}
	}

	pm, err := patternmatcher.New(all)
	if err != nil {
		return nil, &model.ValidationError{Field: IgnoreFile, Message: fmt.Sprintf("invalid pattern: %v", err)}
	}

	ex := &excluder{pm: pm, exact: map[string]bool{}}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, &model.IOError{Op: "resolve", Path: dir, Err: err}
	}
	for _, file := range files {
		if file == "" {
			continue
		}
		abs, err := filepath.Abs(file)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absDir, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		ex.exact[filepath.ToSlash(rel)] = true
	}
	return ex, nil
}

// excluded reports whether rel, a slash-separated path relative to the
// content dir, is left out.
func (e *excluder) excluded(rel string) (bool, error) {
	if e.exact[rel] {
		return true, nil
	}
	return e.pm.MatchesOrParentMatches(filepath.FromSlash(rel))
}

// prunable reports whether a matched directory can be skipped whole. With
// negated patterns a child may still be included.
func (e *excluder) prunable() bool {
	return !e.pm.Exclusions()
}
