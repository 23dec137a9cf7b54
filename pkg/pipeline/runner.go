package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/matzehuels/aidiagram/pkg/config"
	aerrors "github.com/matzehuels/aidiagram/pkg/errors"
	"github.com/matzehuels/aidiagram/pkg/generate"
	"github.com/matzehuels/aidiagram/pkg/observability"
	"github.com/matzehuels/aidiagram/pkg/view"
)

// Generator produces diagram code for a description.
type Generator interface {
	Generate(ctx context.Context, description string, mode config.Mode) (*generate.Response, error)
}

// Dispatcher turns a generation response into a node.
type Dispatcher interface {
	Dispatch(ctx context.Context, mode config.Mode, resp *generate.Response, tokens []string) (*html.Node, error)
}

// Runner executes the pipeline for one block at a time.
//
// The Runner holds no per-block state. Multiple goroutines can share one
// Runner; each call owns its own request and scratch file.
type Runner struct {
	Mode       config.Mode
	Format     string // Reported in render metrics
	Generator  Generator
	Dispatcher Dispatcher
	Logger     *log.Logger
}

// NewRunner creates a runner for cfg. A nil logger discards output.
func NewRunner(cfg config.Config, gen Generator, disp Dispatcher, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		Mode:       cfg.Mode,
		Format:     cfg.Format,
		Generator:  gen,
		Dispatcher: disp,
		Logger:     logger,
	}
}

// Process renders source and appends the result to container: the diagram on
// success, otherwise a <pre> error block carrying the failure message.
// It has no other effect visible to the caller.
func (r *Runner) Process(ctx context.Context, source string, container *html.Node) {
	node, _ := r.Render(ctx, source)
	if container == nil {
		r.logger().Warn("diagram block has no container; result dropped")
		return
	}
	container.AppendChild(node)
}

// Render runs the pipeline and returns the node Process would attach. The
// node is never nil. The error, when set, is the failure the error node
// describes and is returned for callers that report status.
func (r *Runner) Render(ctx context.Context, source string) (node *html.Node, err error) {
	id := uuid.NewString()
	logger := r.logger().With("block", id[:8], "mode", string(r.Mode))
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("internal error: %v", p)
		}
		if err != nil {
			node = view.Error(aerrors.UserMessage(err))
			logger.Warn("diagram block failed", "code", aerrors.GetCode(err), "err", err)
		} else {
			logger.Debug("diagram block rendered", "duration", time.Since(start).Round(time.Millisecond))
		}
		observability.Pipeline().OnBlockComplete(ctx, string(r.Mode), time.Since(start), err)
	}()

	block := ParseBlock(source)
	logger.Debug("processing diagram block", "tokens", block.Tokens)

	resp, err := r.generate(ctx, block)
	if err != nil {
		return nil, err
	}
	return r.dispatch(ctx, block, resp)
}

func (r *Runner) generate(ctx context.Context, block Block) (*generate.Response, error) {
	if r.Generator == nil {
		return nil, aerrors.New(aerrors.ErrCodeConfiguration, "no generator configured")
	}
	hooks := observability.Pipeline()
	hooks.OnGenerateStart(ctx, string(r.Mode))
	start := time.Now()
	resp, err := r.Generator.Generate(ctx, block.Description, r.Mode)
	hooks.OnGenerateComplete(ctx, string(r.Mode), time.Since(start), err)
	return resp, err
}

func (r *Runner) dispatch(ctx context.Context, block Block, resp *generate.Response) (*html.Node, error) {
	if r.Dispatcher == nil {
		return nil, aerrors.New(aerrors.ErrCodeConfiguration, "no dispatcher configured")
	}
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, string(r.Mode), r.Format)
	start := time.Now()
	node, err := r.Dispatcher.Dispatch(ctx, r.Mode, resp, block.Tokens)
	if err == nil && node == nil {
		err = aerrors.New(aerrors.ErrCodeRenderEngine, "renderer produced no output")
	}
	hooks.OnRenderComplete(ctx, string(r.Mode), r.Format, time.Since(start), err)
	return node, err
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.New(io.Discard)
	}
	return r.Logger
}
