package lfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
)

// CommandRunner runs a command in dir and returns its exit code. A non-zero
// exit is not an error; err is set only when the command could not run.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) (code int, output []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir, name string, args ...string) (int, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, out.Bytes(), nil
	case errors.As(err, &exitErr):
		return exitErr.ExitCode(), out.Bytes(), nil
	default:
		return -1, out.Bytes(), err
	}
}

// Client runs git lfs subcommands in a working directory.
type Client struct {
	dir    string
	git    string
	runner CommandRunner
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithGitBinary overrides the git executable.
func WithGitBinary(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.git = path
		}
	}
}

// WithRunner replaces the command runner.
func WithRunner(r CommandRunner) Option {
	return func(c *Client) { c.runner = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client running commands in dir.
func NewClient(dir string, opts ...Option) *Client {
	c := &Client{
		dir:    dir,
		git:    "git",
		runner: execRunner{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Install runs `git lfs install`.
func (c *Client) Install(ctx context.Context) (int, error) {
	return c.run(ctx, "lfs", "install")
}

// Pull materializes the content of exactly one path.
func (c *Client) Pull(ctx context.Context, path string) (int, error) {
	return c.run(ctx, "lfs", "pull", "--include", path, "--exclude", "")
}

func (c *Client) run(ctx context.Context, args ...string) (int, error) {
	code, out, err := c.runner.Run(ctx, c.dir, c.git, args...)
	if err != nil {
		c.logger.Warn("git command failed to start", "args", args, "error", err)
		return code, fmt.Errorf("git %s: %w", args[1], err)
	}
	c.logger.Debug("git command finished", "args", args, "code", code, "output", string(out))
	return code, nil
}
