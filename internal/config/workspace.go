package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WorkspaceRoot returns the absolute workspace path.
func (c *Config) WorkspaceRoot() (string, error) {
	ws := strings.TrimSpace(c.Paths.Workspace)
	if ws == "" {
		ws = "."
	}
	return filepath.Abs(ws)
}

// OutputDir returns the absolute report directory. Relative paths resolve
// against the workspace.
func (c *Config) OutputDir() (string, error) {
	out := strings.TrimSpace(c.Paths.OutputDir)
	if out == "" {
		out = "outputs"
	}
	if filepath.IsAbs(out) {
		return filepath.Clean(out), nil
	}
	root, err := c.WorkspaceRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, out), nil
}

// EnsureWorkspace creates the workspace and its output directory.
func EnsureWorkspace(c *Config) (string, error) {
	root, err := c.WorkspaceRoot()
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", err
	}
	out, err := c.OutputDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return "", err
	}
	return root, nil
}
