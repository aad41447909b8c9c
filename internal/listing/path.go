package listing

import (
	"path"
	"strings"
)

// Root is the top of the remote tree.
const Root = "/"

// NormalizePath returns an absolute slash path with no trailing slash
// (except root). Backslashes are kept; they are legal in remote names.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return Root
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// JoinPath appends one entry name to a directory path.
func JoinPath(dir, name string) string {
	dir = NormalizePath(dir)
	if dir == Root {
		return Root + name
	}
	return dir + "/" + name
}

// ParentPath returns the parent directory; the parent of root is root.
func ParentPath(p string) string {
	p = NormalizePath(p)
	if p == Root {
		return Root
	}
	return path.Dir(p)
}

// Crumb is one breadcrumb element.
type Crumb struct {
	Name string
	Path string
}

// Segments splits a path into breadcrumbs, starting with root.
func Segments(p string) []Crumb {
	p = NormalizePath(p)
	crumbs := []Crumb{{Name: Root, Path: Root}}
	if p == Root {
		return crumbs
	}

	current := Root
	for _, part := range strings.Split(strings.TrimPrefix(p, "/"), "/") {
		current = JoinPath(current, part)
		crumbs = append(crumbs, Crumb{Name: part, Path: current})
	}
	return crumbs
}
