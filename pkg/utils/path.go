package utils

import (
	gopath "path"
	"strings"
)

// Path helpers for the workspace mirror.
//
// All paths handled here are POSIX-style (forward slashes, absolute inside
// the runtime). Windows separators are normalized on entry so local and
// remote runtimes address the same key space.

// NormalizePath cleans a path into canonical POSIX form with no trailing
// separator. An empty input stays empty.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = gopath.Clean(p)
	if p != "/" {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// RelativeTo returns p relative to root, or "" when p does not resolve
// under root or resolves to root itself. Callers treat "" as an invalid
// path.
func RelativeTo(root, p string) string {
	root = NormalizePath(root)
	p = NormalizePath(p)
	if root == "" || p == "" || p == root {
		return ""
	}
	prefix := root + "/"
	if root == "/" {
		prefix = "/"
	}
	if !strings.HasPrefix(p, prefix) {
		return ""
	}
	rel := strings.TrimPrefix(p, prefix)
	if rel == "" || strings.HasPrefix(rel, "../") || rel == ".." {
		return ""
	}
	return rel
}

// IsWithin reports whether p equals root or is nested under it.
func IsWithin(root, p string) bool {
	root = NormalizePath(root)
	p = NormalizePath(p)
	if root == "" || p == "" {
		return false
	}
	return p == root || strings.HasPrefix(p, root+"/")
}

// BaseName returns the last path segment of a POSIX path.
func BaseName(p string) string {
	p = NormalizePath(p)
	if p == "" || p == "/" {
		return ""
	}
	return gopath.Base(p)
}
