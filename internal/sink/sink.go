// Package sink persists the final report of a topic run.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Extension is appended to every report file name that lacks it.
const Extension = ".txt"

// OutputIOError reports a failed directory creation or file write. It is
// fatal for the enclosing node and never retried.
type OutputIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *OutputIOError) Error() string {
	return fmt.Sprintf("output %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OutputIOError) Unwrap() error { return e.Err }

// SafeName maps name onto a conservative file name: whitespace and every
// character outside letters, digits, underscore, hyphen and period become
// underscores, and Extension is appended when absent.
func SafeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	safe := b.String()
	if safe == "" || strings.Trim(safe, ".") == "" {
		safe = "output" + safe
	}
	if !strings.HasSuffix(safe, Extension) {
		safe += Extension
	}
	return safe
}

// WriteFile creates dir when needed and writes content verbatim to
// dir/SafeName(name). It returns the written path.
func WriteFile(dir, name, content string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &OutputIOError{Op: "mkdir", Path: dir, Err: err}
	}
	path := filepath.Join(dir, SafeName(name))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", &OutputIOError{Op: "write", Path: path, Err: err}
	}
	return path, nil
}
