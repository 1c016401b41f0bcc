// Package discovery finds model files under a working tree.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultExtension is the model file suffix searched for.
const DefaultExtension = ".onnx"

// ErrTestDirNotFound is returned when the requested test directory does not
// exist or is not a directory.
var ErrTestDirNotFound = errors.New("test directory not found")

// Options selects what Find walks.
type Options struct {
	// Root is the directory whose subdirectories are walked. Defaults to ".".
	Root string
	// TestDir restricts the walk to Root/TestDir.
	TestDir string
	// Extension is matched case-sensitively against file names.
	Extension string
	// ExcludeDirs names directories that are never entered.
	ExcludeDirs []string
	// OnFound is called with each match as it is found.
	OnFound func(path string)
	// Logger receives directories that could not be read. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Find returns matching model paths in traversal order. Without a TestDir
// only directories directly under Root are walked; files in Root itself are
// ignored.
func Find(opts Options) ([]string, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	ext := opts.Extension
	if ext == "" {
		ext = DefaultExtension
	}

	var dirs []string
	if opts.TestDir != "" {
		dir := filepath.Join(root, opts.TestDir)
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTestDirNotFound, dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrTestDirNotFound, dir)
		}
		dirs = append(dirs, dir)
	} else {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("cannot list %s: %w", root, err)
		}
		for _, e := range entries {
			if isDir(root, e) && !slices.Contains(opts.ExcludeDirs, e.Name()) {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var models []string
	for _, dir := range dirs {
		// WalkDir does not follow a symlinked root. Walk the target and
		// report paths under dir.
		target, err := filepath.EvalSymlinks(dir)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", dir, err)
		}
		err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() {
					logger.Warn("skipping unreadable directory", "path", display(dir, target, path), "error", err)
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() {
				if path != target && slices.Contains(opts.ExcludeDirs, d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(d.Name(), ext) {
				p := display(dir, target, path)
				models = append(models, p)
				if opts.OnFound != nil {
					opts.OnFound(p)
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", dir, err)
		}
	}
	return models, nil
}

// isDir follows symlinks the way a directory listing check does.
func isDir(root string, e fs.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(root, e.Name()))
	return err == nil && info.IsDir()
}

// display maps path under the resolved directory target back under dir.
func display(dir, target, path string) string {
	rel, err := filepath.Rel(target, path)
	if err != nil {
		return path
	}
	return filepath.Join(dir, rel)
}
