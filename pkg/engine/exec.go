package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	aerrors "github.com/matzehuels/aidiagram/pkg/errors"
)

// Exec renders by running the layout engine as a subprocess.
// It holds no per-call state and is safe for concurrent use.
type Exec struct {
	Path       string        // Executable name or path
	Stylesheet string        // Passed as -Gstylesheet; omitted when empty
	Timeout    time.Duration // Kills the process after this long; zero disables
	Logger     *log.Logger
}

// Args returns the engine arguments for rendering path to format.
func (e *Exec) Args(path, format string) []string {
	args := []string{"-T" + format, "-Gbgcolor=transparent"}
	if e.Stylesheet != "" {
		args = append(args, "-Gstylesheet="+e.Stylesheet)
	}
	return append(args, path)
}

// Render runs the engine and returns its standard output.
//
// A process that exits non-zero yields an [aerrors.EngineError] with the exit
// code and standard error text. A process that cannot be started yields one
// with [aerrors.ExitUnavailable].
func (e *Exec) Render(ctx context.Context, path, format string) ([]byte, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := e.Args(path, format)
	cmdline := commandLine(e.Path, args)

	cmd := exec.CommandContext(ctx, e.Path, args...)
	cmd.Stdin = nil

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	e.logger().Debug("running engine", "cmd", cmdline)
	start := time.Now()

	if err := cmd.Start(); err != nil {
		return nil, &aerrors.EngineError{
			Command:  cmdline,
			ExitCode: aerrors.ExitUnavailable,
			Cause:    err,
		}
	}

	if err := cmd.Wait(); err != nil {
		engineErr := &aerrors.EngineError{
			Command:  cmdline,
			ExitCode: aerrors.ExitUnavailable,
			Stderr:   strings.TrimSpace(errBuf.String()),
			Cause:    err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			engineErr.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			engineErr.Cause = ctxErr
		}
		return nil, engineErr
	}

	e.logger().Debug("engine finished",
		"bytes", out.Len(),
		"duration", time.Since(start).Round(time.Millisecond))
	return out.Bytes(), nil
}

func (e *Exec) logger() *log.Logger {
	if e.Logger == nil {
		return log.New(io.Discard)
	}
	return e.Logger
}

// commandLine renders name and args as a shell-like string for diagnostics.
func commandLine(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{name}, args...) {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

var _ Renderer = (*Exec)(nil)
