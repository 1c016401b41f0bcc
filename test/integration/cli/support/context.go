package support

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastOutput   string
	LastLog      string
	LastError    error
	LastExitCode int
	LastDuration time.Duration

	// Test environment
	TempDir string
	RootDir string

	// Environment variables to restore after the scenario.
	savedEnv map[string]*string
}

// NewTestContext creates a new test context with an empty model repository.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "modelcheck-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	root := filepath.Join(tempDir, "repo")
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create repository directory: %w", err)
	}
	return &TestContext{
		TempDir:  tempDir,
		RootDir:  root,
		savedEnv: map[string]*string{},
	}, nil
}

// Cleanup restores the environment and removes the temp directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	for name, value := range testCtx.savedEnv {
		var err error
		if value == nil {
			err = os.Unsetenv(name)
		} else {
			err = os.Setenv(name, *value)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to restore %s: %w", name, err))
		}
	}
	testCtx.savedEnv = map[string]*string{}

	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// SetEnv sets an environment variable for the rest of the scenario.
func (testCtx *TestContext) SetEnv(name, value string) error {
	if _, saved := testCtx.savedEnv[name]; !saved {
		if old, ok := os.LookupEnv(name); ok {
			testCtx.savedEnv[name] = &old
		} else {
			testCtx.savedEnv[name] = nil
		}
	}
	return os.Setenv(name, value)
}

// Path resolves a path relative to the model repository.
func (testCtx *TestContext) Path(rel string) string {
	return filepath.Join(testCtx.RootDir, filepath.FromSlash(rel))
}
