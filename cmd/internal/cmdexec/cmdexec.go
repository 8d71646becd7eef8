// Package cmdexec runs external commands through the platform shell.
//
// Commands are plain strings so that callers can use shell features such as
// pipes, subshells and `cd dir && ...`. Dynamic values must be quoted by the
// caller; use Join or Quote to do so.
package cmdexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/genailabs/starterkit/cmd/internal/report"
	"github.com/kballard/go-shellquote"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const tracerName = "github.com/genailabs/starterkit/cmd/internal/cmdexec"

// Error is returned when a command exits with a non-zero code.
type Error struct {
	Command  string
	Dir      string
	ExitCode int
	Output   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("process exited with code %d: %s", e.ExitCode, e.Command)
}

// Runner executes shell command strings.
type Runner interface {
	// Run executes command with the terminal attached.
	Run(ctx context.Context, command string) error
	// Output executes command and returns its combined stdout and stderr.
	Output(ctx context.Context, command string) (string, error)
}

// Shell is the Runner backed by the operating system shell.
type Shell struct {
	Dir      string
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
	Reporter *report.Reporter
	Logger   *zap.Logger
}

var _ Runner = (*Shell)(nil)

// NewShell returns a Shell rooted at dir that uses the process's standard streams.
func NewShell(dir string, rep *report.Reporter, logger *zap.Logger) *Shell {
	return &Shell{
		Dir:      dir,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Reporter: rep,
		Logger:   logger,
	}
}

func (s *Shell) Run(ctx context.Context, command string) error {
	if s.Reporter != nil {
		s.Reporter.Command(command)
	}

	cmd := s.command(ctx, command)
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr

	_, err := s.exec(ctx, cmd, command, false, nil)
	return err
}

func (s *Shell) Output(ctx context.Context, command string) (string, error) {
	var buf bytes.Buffer
	cmd := s.command(ctx, command)
	// a single writer makes exec serialize writes from both streams
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	return s.exec(ctx, cmd, command, true, &buf)
}

func (s *Shell) exec(
	ctx context.Context, cmd *exec.Cmd, command string, captured bool, buf *bytes.Buffer,
) (string, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "cmdexec.exec")
	defer span.End()
	span.SetAttributes(
		attribute.String("command", command),
		attribute.Bool("captured", captured),
	)

	logger := s.logger().With(zap.String("command", command), zap.Bool("captured", captured))
	logger.Debug("running command")

	err := cmd.Run()

	var out string
	if buf != nil {
		out = buf.String()
	}

	if err != nil {
		wrapped := wrapErr(s.Dir, command, err, out)
		var exitErr *Error
		if errors.As(wrapped, &exitErr) {
			span.SetAttributes(attribute.Int("exit_code", exitErr.ExitCode))
			logger.Debug("command failed", zap.Int("exit_code", exitErr.ExitCode))
		} else {
			logger.Debug("command could not start", zap.Error(err))
		}
		span.SetStatus(codes.Error, wrapped.Error())
		return "", wrapped
	}

	logger.Debug("command finished", zap.Int("exit_code", 0))
	return out, nil
}

func (s *Shell) command(ctx context.Context, command string) *exec.Cmd {
	name, flag := "sh", "-c"
	if runtime.GOOS == "windows" {
		name, flag = "cmd", "/C"
	}
	cmd := exec.CommandContext(ctx, name, flag, command)
	cmd.Dir = s.Dir
	return cmd
}

func (s *Shell) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func wrapErr(dir, command string, err error, output string) error {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return errors.Wrapf(err, "starting %q", command)
	}
	return &Error{
		Command:  command,
		Dir:      dir,
		ExitCode: exitErr.ExitCode(),
		Output:   output,
	}
}

// ExitCode reports the exit code carried by err, if it is a command failure.
func ExitCode(err error) (int, bool) {
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode, true
	}
	return 0, false
}

// Join quotes each argument for a POSIX shell and joins them with spaces.
func Join(args ...string) string {
	return shellquote.Join(args...)
}

// Quote wraps each name in double quotes and joins them with spaces.
func Quote(names []string) string {
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		quoted = append(quoted, `"`+n+`"`)
	}
	return strings.Join(quoted, " ")
}
