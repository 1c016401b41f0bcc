package discovery

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o600))
	}
}

func TestFind_WalksSubdirectoriesOnly(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"top.onnx",
		"vision/a.onnx",
		"vision/nested/b.onnx",
		"vision/readme.md",
		"text/c.onnx",
	)

	models, err := Find(Options{Root: root})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "text", "c.onnx"),
		filepath.Join(root, "vision", "a.onnx"),
		filepath.Join(root, "vision", "nested", "b.onnx"),
	}, models)
}

func TestFind_TestDirFilter(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "vision/a.onnx", "text/c.onnx")

	models, err := Find(Options{Root: root, TestDir: "text"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "text", "c.onnx")}, models)
}

func TestFind_TestDirWithoutModels(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "empty/readme.md")

	models, err := Find(Options{Root: root, TestDir: "empty"})
	require.NoError(t, err)
	assert.Empty(t, models)
}

func TestFind_MissingTestDir(t *testing.T) {
	root := t.TempDir()

	_, err := Find(Options{Root: root, TestDir: "nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTestDirNotFound))
}

func TestFind_TestDirIsFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "model.onnx")

	_, err := Find(Options{Root: root, TestDir: "model.onnx"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTestDirNotFound))
}

func TestFind_ExtensionIsCaseSensitive(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "m/upper.ONNX", "m/lower.onnx", "m/lower.onnx.bak")

	models, err := Find(Options{Root: root})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "m", "lower.onnx")}, models)
}

func TestFind_ExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, ".git/lfs/objects/x.onnx", "models/a.onnx", "models/.git/y.onnx")

	models, err := Find(Options{Root: root, ExcludeDirs: []string{".git"}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "models", "a.onnx")}, models)
}

func TestFind_OnFoundCalledInOrder(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a/1.onnx", "b/2.onnx")

	var seen []string
	models, err := Find(Options{Root: root, OnFound: func(p string) { seen = append(seen, p) }})
	require.NoError(t, err)
	assert.Equal(t, models, seen)
}

func TestFind_CustomExtension(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a/model.ort", "a/model.onnx")

	models, err := Find(Options{Root: root, Extension: ".ort"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a", "model.ort")}, models)
}

func TestFind_FollowsSymlinkedDirectories(t *testing.T) {
	shared := t.TempDir()
	writeFiles(t, shared, "m.onnx")
	root := t.TempDir()
	require.NoError(t, os.Symlink(shared, filepath.Join(root, "audio")))

	want := []string{filepath.Join(root, "audio", "m.onnx")}

	models, err := Find(Options{Root: root})
	require.NoError(t, err)
	assert.Equal(t, want, models)

	models, err = Find(Options{Root: root, TestDir: "audio"})
	require.NoError(t, err)
	assert.Equal(t, want, models)
}

func TestFind_SkipsUnreadableDirectories(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := t.TempDir()
	writeFiles(t, root, "a/ok.onnx", "a/locked/hidden.onnx", "b/c.onnx")
	locked := filepath.Join(root, "a", "locked")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o750) })

	var buf bytes.Buffer
	models, err := Find(Options{Root: root, Logger: slog.New(slog.NewTextHandler(&buf, nil))})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a", "ok.onnx"),
		filepath.Join(root, "b", "c.onnx"),
	}, models)
	assert.Contains(t, buf.String(), "skipping unreadable directory")
}
