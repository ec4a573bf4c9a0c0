package controller

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolvePath re-applies path confinement at execution time against the
// live filesystem (spec.md §4.2, "defense in depth"): it resolves symlinks
// on whatever prefix of the target already exists and requires the result
// to land strictly inside workspaceRoot. The Gate already rejected this
// lexically; this catches a symlink planted between gate evaluation and
// execution, or one the Gate's pure, filesystem-free check could not see.
func resolvePath(workspaceRoot, rel string) (string, error) {
	root, err := filepath.EvalSymlinks(workspaceRoot)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}

	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("path escapes workspace: %s", rel)
	}

	joined := filepath.Join(root, clean)

	resolvedDir, err := nearestExistingDir(joined)
	if err != nil {
		return "", fmt.Errorf("resolve target directory: %w", err)
	}
	relToRoot, err := filepath.Rel(root, resolvedDir)
	if err != nil || relToRoot == ".." || strings.HasPrefix(relToRoot, "../") {
		return "", fmt.Errorf("path escapes workspace via symlink: %s", rel)
	}

	return joined, nil
}

// nearestExistingDir walks up from path until it finds a directory that
// exists, then returns its resolved (symlink-free) form. This lets
// resolvePath confine a WRITE_FILE target whose parent directories don't
// exist yet (spec.md §9 Open Question (b): APPLY_PATCH/WRITE_FILE may
// create files in previously nonexistent directories provided every
// intermediate segment passes confinement).
func nearestExistingDir(path string) (string, error) {
	dir := filepath.Dir(path)
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return resolved, nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no existing ancestor for %s", path)
		}
		dir = parent
	}
}
