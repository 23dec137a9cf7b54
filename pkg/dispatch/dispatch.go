// Package dispatch chooses the render path for a generated diagram and builds
// the node that replaces the block.
//
// Two decisions are made. The processing mode picks the path:
//
//   - local-source: the DOT source goes through a scratch file to the layout
//     engine
//   - direct-markup: the SVG returned by the service is embedded as is
//
// On the local path the configured output format then picks the node: an
// inline <svg> for vector output, an <img> with a data URI otherwise.
package dispatch

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html"

	"github.com/matzehuels/aidiagram/pkg/config"
	"github.com/matzehuels/aidiagram/pkg/engine"
	aerrors "github.com/matzehuels/aidiagram/pkg/errors"
	"github.com/matzehuels/aidiagram/pkg/generate"
	"github.com/matzehuels/aidiagram/pkg/scratch"
	"github.com/matzehuels/aidiagram/pkg/view"
)

// Path identifies which strategy produced a [Result].
type Path string

const (
	PathLocal  Path = "local"
	PathDirect Path = "direct"
)

// Request is the input to the local render path.
type Request struct {
	Source string   // Diagram source
	Format string   // Engine output format
	Tokens []string // Style classes for the final node
}

// Result is the output of either render path. Local results carry image
// bytes and their MIME type; direct results carry markup.
type Result struct {
	Path   Path
	Data   []byte
	MIME   string
	Format string
	Markup string
}

// Dispatcher routes generation responses to a render path.
// It holds only read-only settings and is safe for concurrent use.
type Dispatcher struct {
	Format     string          // Engine output format for the local path
	Engine     engine.Renderer // Local path renderer
	ScratchDir string          // Scratch file directory; os.TempDir when empty
	Logger     *log.Logger
}

// New returns a Dispatcher for cfg rendering through r.
func New(cfg config.Config, r engine.Renderer, logger *log.Logger) *Dispatcher {
	return &Dispatcher{Format: cfg.Format, Engine: r, Logger: logger}
}

// Dispatch renders resp according to mode and returns the node to attach.
//
// When the response carries both code and an error message, the diagram is
// rendered and the message is set as the node's title attribute.
//
// An unknown mode fails with CONFIGURATION_ERROR. A response without code
// fails with GENERATION_FAILED carrying the service's message verbatim, or
// with MALFORMED_RESPONSE when there is no message either.
func (d *Dispatcher) Dispatch(ctx context.Context, mode config.Mode, resp *generate.Response, tokens []string) (*html.Node, error) {
	if !mode.Valid() {
		return nil, aerrors.New(aerrors.ErrCodeConfiguration, "invalid mode: %q", string(mode))
	}
	code, warning, err := d.code(mode, resp)
	if err != nil {
		return nil, err
	}

	var res *Result
	switch mode {
	case config.ModeLocalSource:
		res, err = d.RenderLocal(ctx, Request{Source: code, Format: d.Format, Tokens: tokens})
	case config.ModeDirectMarkup:
		res = &Result{Path: PathDirect, Markup: code}
	}
	if err != nil {
		return nil, err
	}
	n, err := Node(res, tokens)
	if err != nil {
		return nil, err
	}
	if warning != "" {
		view.SetAttr(n, "title", warning)
	}
	return n, nil
}

// RenderLocal writes req.Source to a scratch file and runs the engine on it.
// The scratch file is gone when RenderLocal returns.
func (d *Dispatcher) RenderLocal(ctx context.Context, req Request) (*Result, error) {
	if d.Engine == nil {
		return nil, aerrors.New(aerrors.ErrCodeConfiguration, "no render engine configured")
	}
	format := req.Format
	if format == "" {
		format = config.DefaultFormat
	}

	var data []byte
	err := scratch.With(d.ScratchDir, scratch.DefaultPattern, []byte(req.Source), func(path string) error {
		var rerr error
		data, rerr = d.Engine.Render(ctx, path, format)
		return rerr
	})
	if err != nil {
		return nil, err
	}
	d.logger().Debug("rendered locally", "format", format, "bytes", len(data))
	return &Result{Path: PathLocal, Data: data, MIME: config.MIMEType(format), Format: format}, nil
}

// Node builds the visual node for res.
func Node(res *Result, tokens []string) (*html.Node, error) {
	switch res.Path {
	case PathDirect:
		n, err := view.Direct(res.Markup, tokens)
		if err != nil {
			return nil, aerrors.Wrap(aerrors.ErrCodeMalformedResponse, err, "parse generated markup")
		}
		return n, nil
	case PathLocal:
		if !config.IsVector(res.Format) {
			return view.Image(res.Data, res.MIME, "diagram", tokens), nil
		}
		n, err := view.InlineSVG(string(res.Data), tokens)
		if err != nil {
			return nil, aerrors.Wrap(aerrors.ErrCodeRenderEngine, err, "read engine output")
		}
		return n, nil
	default:
		return nil, aerrors.New(aerrors.ErrCodeConfiguration, "unknown render path %q", string(res.Path))
	}
}

// code picks the diagram source out of resp. When both code and an error
// message are present the code wins and the message comes back as a warning
// for the node's title.
func (d *Dispatcher) code(mode config.Mode, resp *generate.Response) (code, warning string, err error) {
	if resp == nil {
		return "", "", aerrors.New(aerrors.ErrCodeMalformedResponse, "no code produced")
	}
	code, msg := resp.Code(mode), resp.Message()
	switch {
	case code != "" && msg != "":
		d.logger().Warn("service returned code and an error; rendering the code", "error", msg)
		return code, msg, nil
	case code != "":
		return code, "", nil
	case msg != "":
		return "", "", aerrors.New(aerrors.ErrCodeGeneration, "%s", msg)
	default:
		return "", "", aerrors.New(aerrors.ErrCodeMalformedResponse, "no code produced")
	}
}

func (d *Dispatcher) logger() *log.Logger {
	if d.Logger == nil {
		return log.New(io.Discard)
	}
	return d.Logger
}
