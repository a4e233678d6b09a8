//go:generate mockgen -destination=./mocks/shell.go . Runner

// Package shell runs the external tools pypi2pkgbuild drives (pip, pacman,
// pkgfile, makepkg, namcap) with an explicit, parse-friendly environment.
package shell

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alessio/shellescape"
)

// Command describes one external process invocation.
type Command struct {
	Name  string
	Args  []string
	Dir   string    // working directory, empty for the current one
	Env   []string  // KEY=VALUE pairs added on top of the runner's environment
	Stdin io.Reader // optional

	// Verbose logs the invocation at info instead of debug level.
	Verbose bool

	// Stream copies the process output to the runner's output writer in
	// addition to capturing it.
	Stream bool
}

// Bash returns a command running script with bash -c.
func Bash(script string) Command {
	return Command{Name: "bash", Args: []string{"-c", script}}
}

// String renders the command as a shell-quoted line for logs.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, shellescape.Quote(c.Name))
	for _, a := range c.Args {
		parts = append(parts, shellescape.Quote(a))
	}
	return strings.Join(parts, " ")
}

// Result is the captured output of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Lines splits Stdout into non-empty, trimmed lines.
func (r Result) Lines() []string {
	var out []string
	for _, l := range strings.Split(r.Stdout, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Runner runs external commands. A non-zero exit status is reported as an
// *ExitError together with the captured Result.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExitError reports a process that ran but exited unsuccessfully.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLine(s)
	}
	return msg
}

func lastLine(s string) string {
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}
