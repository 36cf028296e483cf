package model

import (
	"path"
	"strings"
)

// Layout describes the sandboxed filesystem and network namespace an app
// package runs in.
type Layout struct {
	Root        string // every bind source must live under it
	VarRoot     string // per-service persistent directories
	DataRoot    string // empty directories for anonymous and named volumes
	ContentRoot string // where content.tar is unpacked
	HomeRoot    string // the user's documents
	Domain      string // service hostname suffix
}

// DefaultLayout returns the platform's standard layout.
func DefaultLayout() Layout {
	return Layout{
		Root:        "/lzcapp",
		VarRoot:     "/lzcapp/var",
		DataRoot:    "/lzcapp/var",
		ContentRoot: "/lzcapp/pkg/content",
		HomeRoot:    "/lzcapp/run/mnt/home",
		Domain:      "lzcapp",
	}
}

// InSandbox reports whether p lies under the sandbox root.
func (l Layout) InSandbox(p string) bool {
	return under(l.Root, p)
}

// InContent reports whether p lies under the content root.
func (l Layout) InContent(p string) bool {
	return under(l.ContentRoot, p)
}

// ContentPath maps a slash-separated path relative to the content
// directory into the content root.
func (l Layout) ContentPath(rel string) string {
	return path.Join(l.ContentRoot, rel)
}

func under(root, p string) bool {
	if !strings.HasPrefix(p, "/") {
		return false
	}
	clean := path.Clean(p)
	return clean == root || strings.HasPrefix(clean, root+"/")
}
