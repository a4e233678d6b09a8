package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"
)

// DefaultEnv is the environment every tool runs with: a neutral locale so
// that output can be parsed, and pip isolated from user configuration.
var DefaultEnv = []string{
	"LC_ALL=C",
	"PYTHONNOUSERSITE=1",
	"PIP_CONFIG_FILE=/dev/null",
	"PIP_DISABLE_PIP_VERSION_CHECK=1",
}

// ExecRunner runs commands as local processes.
type ExecRunner struct {
	Env    []string // appended to os.Environ(); DefaultEnv when nil
	Logger *log.Logger
	Output io.Writer // destination of streamed output, os.Stderr when nil
}

// NewExecRunner creates a runner with [DefaultEnv].
func NewExecRunner(logger *log.Logger) *ExecRunner {
	return &ExecRunner{Env: DefaultEnv, Logger: logger}
}

// Run implements [Runner].
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	r.logStart(cmd)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(append(os.Environ(), r.env()...), cmd.Env...)
	c.Stdin = cmd.Stdin

	var stdout, stderr bytes.Buffer
	if cmd.Stream {
		out := r.Output
		if out == nil {
			out = os.Stderr
		}
		c.Stdout = io.MultiWriter(&stdout, out)
		c.Stderr = io.MultiWriter(&stderr, out)
	} else {
		c.Stdout, c.Stderr = &stdout, &stderr
	}

	err := c.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, &ExitError{Command: cmd.String(), ExitCode: res.ExitCode, Stderr: res.Stderr}
	case err != nil:
		return res, err
	}
	return res, nil
}

func (r *ExecRunner) env() []string {
	if r.Env == nil {
		return DefaultEnv
	}
	return r.Env
}

func (r *ExecRunner) logStart(cmd Command) {
	if r.Logger == nil {
		return
	}
	kv := []any{"cmd", cmd.String()}
	if cmd.Dir != "" {
		kv = append(kv, "dir", cmd.Dir)
	}
	if cmd.Verbose {
		r.Logger.Info("running", kv...)
	} else {
		r.Logger.Debug("running", kv...)
	}
}

var _ Runner = (*ExecRunner)(nil)
