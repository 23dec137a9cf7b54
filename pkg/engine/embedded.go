package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-graphviz"

	aerrors "github.com/matzehuels/aidiagram/pkg/errors"
)

// embeddedCommand names the in-process engine in error messages.
const embeddedCommand = "embedded-graphviz"

// Embedded renders with the Graphviz library compiled to WebAssembly.
// It needs no external executable. The stylesheet reference is not supported.
type Embedded struct {
	Logger *log.Logger
}

// embeddedFormats maps output formats to the library's renderer names.
var embeddedFormats = map[string]graphviz.Format{
	"svg": graphviz.SVG,
	"png": graphviz.PNG,
	"jpg": graphviz.JPG,
}

// Render parses the DOT file at path and renders it to format.
// Failures are reported as [aerrors.EngineError] so callers handle both
// engines the same way.
func (e *Embedded) Render(ctx context.Context, path, format string) ([]byte, error) {
	cmdline := fmt.Sprintf("%s -T%s %s", embeddedCommand, format, path)
	fail := func(code int, stderr string, cause error) error {
		return &aerrors.EngineError{Command: cmdline, ExitCode: code, Stderr: stderr, Cause: cause}
	}

	gvFormat, ok := embeddedFormats[format]
	if !ok {
		return nil, fail(1, fmt.Sprintf("unsupported format %q", format), nil)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fail(aerrors.ExitUnavailable, "", err)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fail(aerrors.ExitUnavailable, "", fmt.Errorf("init graphviz: %w", err))
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes(src)
	if err != nil {
		return nil, fail(1, err.Error(), err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat, &buf); err != nil {
		return nil, fail(1, err.Error(), err)
	}

	e.logger().Debug("embedded engine finished", "bytes", buf.Len(), "format", format)
	return buf.Bytes(), nil
}

func (e *Embedded) logger() *log.Logger {
	if e.Logger == nil {
		return log.New(io.Discard)
	}
	return e.Logger
}

var _ Renderer = (*Embedded)(nil)
