// Package pathutil confines file access to allowed directory trees.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Redact reduces a full path to .../<parent>/<basename> for error messages
// shown to remote clients.
func Redact(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// Resolve returns the absolute, symlink-free form of path if it lies inside
// one of roots. A relative path is taken relative to the first root. The
// path need not exist yet.
func Resolve(path string, roots ...string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}
	if len(roots) == 0 {
		return "", fmt.Errorf("no allowed directories configured")
	}
	if strings.ContainsRune(path, '\x00') {
		return "", fmt.Errorf("path contains null byte")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(roots[0], path)
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("cannot resolve absolute path: %w", err)
	}
	resolved, err := resolveExisting(abs)
	if err != nil {
		return "", err
	}

	for _, root := range roots {
		rootAbs, err := filepath.Abs(filepath.Clean(root))
		if err != nil {
			continue
		}
		rootResolved, err := resolveExisting(rootAbs)
		if err != nil {
			continue
		}
		if within(resolved, rootResolved) {
			return resolved, nil
		}
	}

	return "", fmt.Errorf("%q is outside the allowed directories", Redact(abs))
}

// resolveExisting resolves symlinks on the deepest existing ancestor of p
// and re-appends the part that does not exist yet.
func resolveExisting(p string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved, nil
	}

	parent := filepath.Dir(p)
	if parent == p {
		return "", fmt.Errorf("cannot resolve path: %s", Redact(p))
	}
	resolvedParent, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(p)), nil
}

// within reports whether p is base or lies below it.
func within(p, base string) bool {
	if p == base {
		return true
	}
	return strings.HasPrefix(p, strings.TrimSuffix(base, string(os.PathSeparator))+string(os.PathSeparator))
}
