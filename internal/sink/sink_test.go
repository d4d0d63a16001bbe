package sink

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"Abraham Lincoln":      "Abraham_Lincoln.txt",
		"report.txt":           "report.txt",
		"a/../../etc/passwd":   "a_.._.._etc_passwd.txt",
		`..\..\windows`:        ".._.._windows.txt",
		"Napoléon Bonaparte":   "Napol_on_Bonaparte.txt",
		"":                     "output.txt",
		"..":                   "output...txt",
		"  tabs\tand\nlines  ": "tabs_and_lines.txt",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeName(in), "input %q", in)
	}
}

func TestWriteFileCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")

	path, err := WriteFile(dir, "Abraham Lincoln", "report body")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Abraham_Lincoln.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "report body", string(data))

	// Reusing an existing directory is fine.
	_, err = WriteFile(dir, "second", "x")
	require.NoError(t, err)
}

func TestWriteFileStaysInsideDirectory(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "outputs")

	path, err := WriteFile(dir, "a/../../etc/passwd", "nope")
	require.NoError(t, err)

	rel, err := filepath.Rel(dir, path)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(rel, ".."), "path %s escaped %s", path, dir)
	assert.Equal(t, dir, filepath.Dir(path))
}

func TestWriteFileReportsIOError(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := WriteFile(filepath.Join(blocker, "sub"), "name", "content")
	require.Error(t, err)

	var ioErr *OutputIOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "mkdir", ioErr.Op)
}
