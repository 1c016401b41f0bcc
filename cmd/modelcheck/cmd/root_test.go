package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/modelcheck/internal/runner"
	"github.com/MeKo-Tech/modelcheck/internal/testutil"
	"github.com/MeKo-Tech/modelcheck/internal/version"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs a fresh command tree from an empty working directory and
// returns what it printed on stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	testutil.Chdir(t, t.TempDir())
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cmd := NewRootCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, rootCmd, GetRootCommand())
	assert.Equal(t, "modelcheck", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommandHelp(t *testing.T) {
	output, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, output, "Available Commands:")
	assert.Contains(t, output, "--test_dir")
	assert.Contains(t, output, "--keep-passed")
}

func TestRootCommandVersion(t *testing.T) {
	output, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, output, version.String())
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"inspect", "config", "runtime", "version"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, err := execute(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommandRejectsArgs(t *testing.T) {
	_, err := execute(t, "models")
	require.Error(t, err)
}

func TestNormalizeFlagName(t *testing.T) {
	fs := pflag.NewFlagSet("t", pflag.ContinueOnError)
	assert.Equal(t, pflag.NormalizedName("test_dir"), normalizeFlagName(fs, "test-dir"))
	assert.Equal(t, pflag.NormalizedName("keep-passed"), normalizeFlagName(fs, "keep-passed"))
}

func TestRun_AllPass(t *testing.T) {
	root := testutil.CreateTempDir(t)
	a := testutil.WriteModel(t, root, "vision/a.onnx", testutil.ValidModel())
	b := testutil.WriteModel(t, root, "text/b.onnx", testutil.ValidModel())

	output, err := execute(t, "--root", root, "--backend", "none")
	require.NoError(t, err)
	assert.Contains(t, output, "=== Running ONNX Checker on 2 models ===")
	assert.Contains(t, output, "2 models have been checked.")
	assert.False(t, testutil.FileExists(a))
	assert.False(t, testutil.FileExists(b))
}

func TestRun_FailuresExitNonZero(t *testing.T) {
	root := testutil.CreateTempDir(t)
	good := testutil.WriteModel(t, root, "zoo/a.onnx", testutil.ValidModel())
	bad := testutil.WriteModel(t, root, "zoo/b.onnx", testutil.ConflictingShapeModel())

	output, err := execute(t, "--root", root, "--backend", "none")
	require.Error(t, err)
	assert.True(t, errors.Is(err, runner.ErrModelsFailed))
	assert.Contains(t, output, "In all 2 models, 1 models failed.")
	assert.False(t, testutil.FileExists(good))
	assert.True(t, testutil.FileExists(bad))
}

func TestRun_TestDirAlias(t *testing.T) {
	root := testutil.CreateTempDir(t)
	inside := testutil.WriteModel(t, root, "vision/a.onnx", testutil.ValidModel())
	outside := testutil.WriteModel(t, root, "text/b.onnx", testutil.ValidModel())

	output, err := execute(t, "--root", root, "--backend", "none", "--test-dir", "vision", "--keep-passed")
	require.NoError(t, err)
	assert.Contains(t, output, "1 models have been checked.")
	assert.True(t, testutil.FileExists(inside))
	assert.True(t, testutil.FileExists(outside))
}

func TestRun_MissingTestDir(t *testing.T) {
	root := testutil.CreateTempDir(t)
	_, err := execute(t, "--root", root, "--backend", "none", "--test_dir", "nope")
	require.Error(t, err)
	assert.False(t, errors.Is(err, runner.ErrModelsFailed))
}

func TestRun_InvalidBackend(t *testing.T) {
	_, err := execute(t, "--backend", "ftp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid fetch backend")
}

func TestRun_S3BackendRequiresEndpoint(t *testing.T) {
	_, err := execute(t, "--backend", "s3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch.s3.endpoint is required")
}

func TestInspect(t *testing.T) {
	root := testutil.CreateTempDir(t)
	path := testutil.WriteModel(t, root, "a.onnx", testutil.ValidModel())

	output, err := execute(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, output, "ir_version")
	assert.Contains(t, output, "[PASS]")
	assert.True(t, testutil.FileExists(path), "inspect never deletes")
}

func TestInspect_Failure(t *testing.T) {
	root := testutil.CreateTempDir(t)
	pointer := testutil.WriteLFSPointer(t, root, "p.onnx")

	output, err := execute(t, "inspect", pointer, filepath.Join(root, "missing.onnx"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, runner.ErrModelsFailed))
	assert.Contains(t, output, "Git LFS pointer")
	assert.Contains(t, output, "In all 2 models, 2 models failed.")
}

func TestInspect_RequiresArgs(t *testing.T) {
	_, err := execute(t, "inspect")
	require.Error(t, err)
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("MODELCHECK_FETCH_BACKEND", "none")
	t.Setenv("MODELCHECK_FETCH_S3_SECRET_KEY", "hunter2")

	output, err := execute(t, "config", "--log-level", "warn")
	require.NoError(t, err)
	assert.Contains(t, output, "backend: none")
	assert.Contains(t, output, "log_level: warn")
	assert.NotContains(t, output, "hunter2")
}

func TestVersionCommand(t *testing.T) {
	output, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "modelcheck version "+version.Version)
	assert.Contains(t, output, "Commit: ")
}

func TestRuntimeCommand_MissingLibrary(t *testing.T) {
	output, err := execute(t, "runtime", "--runtime-lib", filepath.Join(t.TempDir(), "libonnxruntime.so"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ONNX Runtime test failed")
	assert.Contains(t, output, "Testing ONNX Runtime setup...")
}
