package tools

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/KafClaw/tribunal/internal/sink"
	"github.com/KafClaw/tribunal/internal/state"
)

// ReasonOutsideWorkspace is reported when a write targets a directory outside
// the workspace root.
const ReasonOutsideWorkspace = "outside_workspace"

// WriteFileTool saves the final report through the output sink.
type WriteFileTool struct {
	workspace  func() string
	defaultDir string
}

// NewWriteFileTool creates a WriteFileTool. Relative directories resolve
// against the workspace; defaultDir is used when the caller names none and
// may point outside the workspace.
func NewWriteFileTool(workspaceGetter func() string, defaultDir string) *WriteFileTool {
	if workspaceGetter == nil {
		workspaceGetter = func() string { return "" }
	}
	if defaultDir == "" {
		defaultDir = "outputs"
	}
	return &WriteFileTool{
		workspace:  func() string { return normalizeRoot(workspaceGetter()) },
		defaultDir: defaultDir,
	}
}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Description() string {
	return "Write the final report to <directory>/<filename>.txt. Omit directory to use the configured output directory. The filename is sanitized and an explicit directory must be inside the workspace."
}

func (t *WriteFileTool) Parameters() map[string]any {
	return objectSchema([]string{"filename", "content"}, map[string]any{
		"directory": stringParam("Output directory, default \"" + t.defaultDir + "\""),
		"filename":  stringParam("File name, usually the topic"),
		"content":   stringParam("Full report text"),
	})
}

type writeResult struct {
	Status state.Status `json:"status"`
	Path   string       `json:"path,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

func (t *WriteFileTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	v, err := viewFrom(ctx)
	if err != nil {
		return "", err
	}
	dir := strings.TrimSpace(GetString(params, "directory", ""))
	requested := dir != ""
	if !requested {
		dir = t.defaultDir
	}
	filename := GetString(params, "filename", "")
	if strings.TrimSpace(filename) == "" {
		filename = v.Snapshot().Topic
	}
	content := GetString(params, "content", "")

	root := t.workspace()
	dir = resolveDir(root, dir)
	// The configured default is trusted; model-chosen directories stay inside
	// the workspace.
	if requested && !isWithin(root, dir) {
		slog.Warn("Write outside workspace rejected", "directory", dir, "workspace", root)
		return jsonResult(writeResult{Status: state.StatusIgnored, Reason: ReasonOutsideWorkspace})
	}

	path, err := sink.WriteFile(dir, filename, content)
	if err != nil {
		return "", err
	}
	v.SetOutputPath(path)
	slog.Info("Saved", "path", path, "bytes", len(content))
	return jsonResult(writeResult{Status: state.StatusSuccess, Path: path})
}

func resolveDir(root, dir string) string {
	if strings.HasPrefix(dir, "~") {
		return expandPath(dir)
	}
	if !filepath.IsAbs(dir) && root != "" {
		return filepath.Join(root, dir)
	}
	return expandPath(dir)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path
}

func normalizeRoot(root string) string {
	if root == "" {
		return ""
	}
	return expandPath(root)
}

func isWithin(root, path string) bool {
	if root == "" {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != ".."
}
