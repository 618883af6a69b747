package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolvePathFromWorkflow resolves a path from a workflow file.
// If the provided path is already absolute, it's returned as is.
// If it's relative, it's joined with the workflowDir to create an absolute path.
func ResolvePathFromWorkflow(workflowDir, pathFromYAML string) (string, error) {
	if pathFromYAML == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(pathFromYAML) {
		return pathFromYAML, nil
	}
	if workflowDir == "" {
		return filepath.Abs(pathFromYAML)
	}
	return filepath.Join(workflowDir, pathFromYAML), nil
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}
	return nil
}

// SafeName maps s to something usable inside a file name.
func SafeName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}
