// Package command runs external programs with retry and privilege escalation.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/fatih/color"
	"github.com/jpillora/backoff"

	"github.com/2cd/getctr/internal/boundaries/out"
	"github.com/2cd/getctr/internal/domain"
)

// DefaultAttempts is the number of times a failing command is run.
const DefaultAttempts = 3

// exitCodeNotFound is reported when the program could not be started.
const exitCodeNotFound = 127

// Runner implements out.CommandRunner on top of os/exec.
type Runner struct {
	attempts int
	timeout  time.Duration
	helper   domain.EscalationHelper
	euid     func() int
	exit     func(code int)
	pause    backoff.Backoff
	stdout   io.Writer
	stderr   io.Writer
	log      zerowrap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithAttempts overrides the number of attempts. Values below 1 are ignored.
func WithAttempts(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithTimeout bounds every single attempt. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithExit replaces os.Exit for commands marked ExitOnFailure.
func WithExit(fn func(code int)) Option {
	return func(r *Runner) { r.exit = fn }
}

// WithEUID replaces os.Geteuid.
func WithEUID(fn func() int) Option {
	return func(r *Runner) { r.euid = fn }
}

// WithPause sets the pause between attempts.
func WithPause(min, max time.Duration) Option {
	return func(r *Runner) {
		r.pause = backoff.Backoff{Min: min, Max: max, Factor: 2}
	}
}

// WithOutput redirects the child's stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// NewRunner creates a runner. helper is the escalation tool detected at
// process start, see DetectEscalation.
func NewRunner(helper domain.EscalationHelper, log zerowrap.Logger, opts ...Option) *Runner {
	r := &Runner{
		attempts: DefaultAttempts,
		helper:   helper,
		euid:     os.Geteuid,
		exit:     os.Exit,
		pause:    backoff.Backoff{Min: 500 * time.Millisecond, Max: 2 * time.Second, Factor: 2},
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		log:      log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ out.CommandRunner = (*Runner)(nil)

// resolve returns the program and arguments actually executed for cmd.
func (r *Runner) resolve(cmd domain.Command) (string, []string, error) {
	if !cmd.Privileged || r.euid() == 0 {
		return cmd.Program, cmd.Args, nil
	}
	if !r.helper.Available() {
		return string(domain.EscalationNone), nil, domain.ErrNoEscalationHelper
	}
	args := make([]string, 0, len(cmd.Args)+1)
	args = append(args, cmd.Program)
	args = append(args, cmd.Args...)
	return string(r.helper), args, nil
}

// Run executes cmd, retrying failed attempts. Once every attempt has failed
// it either terminates the process (ExitOnFailure) or returns a
// *domain.CommandError.
func (r *Runner) Run(ctx context.Context, cmd domain.Command) error {
	program, args, err := r.resolve(cmd)
	if err != nil {
		r.log.Error().
			Str(zerowrap.FieldLayer, "adapter").
			Str(zerowrap.FieldAdapter, "command").
			Str("cmd", cmd.String()).
			Msg("neither doas nor sudo is installed")
		return r.fail(cmd, &domain.CommandError{
			Program: program,
			Args:    cmd.Args,
			Code:    exitCodeNotFound,
			Err:     err,
		})
	}

	pause := r.pause
	pause.Reset()

	var lastErr error
	attempt := 0
	for attempt < r.attempts {
		attempt++
		r.echo(program, args)
		lastErr = r.runOnce(ctx, program, args, cmd)
		if lastErr == nil {
			return nil
		}

		r.log.Warn().
			Err(lastErr).
			Str(zerowrap.FieldLayer, "adapter").
			Str(zerowrap.FieldAdapter, "command").
			Str("cmd", program).
			Int("attempt", attempt).
			Int("attempts", r.attempts).
			Msg("command failed")

		if attempt == r.attempts || ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(pause.Duration()):
		}
	}

	return r.fail(cmd, &domain.CommandError{
		Program:  program,
		Args:     args,
		Code:     exitCode(lastErr),
		Attempts: attempt,
		Err:      lastErr,
	})
}

func (r *Runner) fail(cmd domain.Command, cerr *domain.CommandError) error {
	if cmd.ExitOnFailure {
		r.log.Error().
			Err(cerr).
			Str(zerowrap.FieldAdapter, "command").
			Int(zerowrap.FieldStatus, cerr.Code).
			Msg("giving up")
		r.exit(cerr.Code)
	}
	return cerr
}

func (r *Runner) runOnce(ctx context.Context, program string, args []string, cmd domain.Command) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	c := r.build(ctx, program, args, cmd)
	c.Stdout = r.stdout
	c.Stderr = r.stderr
	return c.Run()
}

func (r *Runner) build(ctx context.Context, program string, args []string, cmd domain.Command) *exec.Cmd {
	c := exec.CommandContext(ctx, program, args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	return c
}

// Output executes cmd once and returns its stdout. Stderr is inherited.
func (r *Runner) Output(ctx context.Context, cmd domain.Command) ([]byte, error) {
	program, args, err := r.resolve(cmd)
	if err != nil {
		return nil, &domain.CommandError{Program: program, Args: cmd.Args, Code: exitCodeNotFound, Err: err}
	}
	r.echo(program, args)

	var stdout bytes.Buffer
	c := r.build(ctx, program, args, cmd)
	c.Stdout = &stdout
	c.Stderr = r.stderr
	if err := c.Run(); err != nil {
		return stdout.Bytes(), &domain.CommandError{
			Program:  program,
			Args:     args,
			Code:     exitCode(err),
			Attempts: 1,
			Err:      err,
		}
	}
	return stdout.Bytes(), nil
}

// Start spawns cmd and returns immediately.
func (r *Runner) Start(ctx context.Context, cmd domain.Command) (out.Process, error) {
	program, args, err := r.resolve(cmd)
	if err != nil {
		return nil, &domain.CommandError{Program: program, Args: cmd.Args, Code: exitCodeNotFound, Err: err}
	}
	r.echo(program, args)

	c := r.build(ctx, program, args, cmd)
	c.Stdout = r.stdout
	c.Stderr = r.stderr
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("failed to spawn %s: %w", program, err)
	}
	return newProcess(c), nil
}

func (r *Runner) echo(program string, args []string) {
	line := color.GreenString(program)
	for _, a := range args {
		line += " " + color.CyanString(a)
	}
	r.log.Info().Msg(line)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
		// killed by a signal
		return 1
	}
	return exitCodeNotFound
}
