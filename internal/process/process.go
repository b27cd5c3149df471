// Package process runs the external programs docflow stages delegate their work to.
package process

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

var ErrBinaryMustBeSet = errors.New("binary must be set")

const defaultGracePeriod = 5 * time.Second

// Command describes a program invocation.
type Command struct {
	Binary string
	Args   []string
	Dir    string
	// Env is added to the environment of the current process.
	Env []string
	// GracePeriod is how long a cancelled program gets between SIGTERM and SIGKILL.
	GracePeriod time.Duration
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Binary}, c.Args...), " ")
}

// Result is the outcome of a finished program.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Run executes cmd and waits for it. A non-zero exit status is an error whose message carries
// the end of stderr.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, ErrBinaryMustBeSet
	}

	gracePeriod := cmd.GracePeriod
	if gracePeriod == 0 {
		gracePeriod = defaultGracePeriod
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // running configured programs is the point
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	// own process group so the whole tree gets the signal
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = gracePeriod

	start := time.Now()
	err := c.Run()

	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctx.Err() != nil {
			return res, errors.Wrapf(ctx.Err(), "%s killed", cmd.Binary)
		}

		return res, errors.Wrapf(err, "%s failed: %s", cmd, tail(res.Stderr))
	}

	return res, nil
}

const tailSize = 256

func tail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > tailSize {
		s = "..." + s[len(s)-tailSize:]
	}

	return s
}

func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil
	}

	return append(os.Environ(), extra...)
}
