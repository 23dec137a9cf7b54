// Package document renders Markdown documents whose fenced code blocks
// describe diagrams.
//
// A block is a fenced code block whose info string is the configured
// language, "ai-diagram" by default:
//
//	```ai-diagram
//	flowchart {user logs in, token is issued, dashboard loads}
//	```
//
// Each block's text goes through the diagram pipeline and the resulting node
// replaces the block in the HTML output. Everything else is rendered by
// goldmark with GitHub Flavored Markdown enabled.
//
// Blocks are independent: they are rendered concurrently, up to
// [Processor.Concurrency] at a time, and a failed block becomes an error
// block without affecting its neighbours.
package document

import (
	"bytes"
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/aidiagram/pkg/config"
	"github.com/matzehuels/aidiagram/pkg/view"
)

// BlockProcessor renders one block's text into container.
// [pipeline.Runner] is the production implementation.
//
// [pipeline.Runner]: github.com/matzehuels/aidiagram/pkg/pipeline
type BlockProcessor interface {
	Process(ctx context.Context, source string, container *html.Node)
}

// Processor renders Markdown documents.
type Processor struct {
	Blocks      BlockProcessor
	Language    string // Info string marking a diagram block
	Concurrency int    // Blocks rendered at once; values below 1 mean 1
	Logger      *log.Logger
}

// Result is a rendered document.
type Result struct {
	HTML   []byte
	Blocks int // Diagram blocks found
	Failed int // Blocks rendered as errors
}

// New creates a Processor using the block language and concurrency of cfg.
func New(cfg config.Config, blocks BlockProcessor, logger *log.Logger) *Processor {
	return &Processor{
		Blocks:      blocks,
		Language:    cfg.BlockLanguage,
		Concurrency: cfg.Concurrency,
		Logger:      logger,
	}
}

// block is one diagram block found in the document.
type block struct {
	node   *ast.FencedCodeBlock
	source string
}

// Process renders src to HTML.
//
// An error is returned only when the document itself cannot be rendered;
// diagram failures are reported in the output and counted in Result.Failed.
func (p *Processor) Process(ctx context.Context, src []byte) (*Result, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))

	blocks := p.find(doc, src)
	p.logger().Debug("found diagram blocks", "count", len(blocks))

	rendered, failed, err := p.renderBlocks(ctx, blocks)
	if err != nil {
		return nil, err
	}

	byNode := make(map[ast.Node][]byte, len(blocks))
	for i, b := range blocks {
		byNode[b.node] = rendered[i]
	}
	md.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&blockRenderer{rendered: byNode}, 100),
	))

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, src, doc); err != nil {
		return nil, err
	}
	return &Result{HTML: buf.Bytes(), Blocks: len(blocks), Failed: failed}, nil
}

// Sources returns the text of every diagram block in src, in order.
func (p *Processor) Sources(src []byte) []string {
	doc := goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser().Parse(text.NewReader(src))
	blocks := p.find(doc, src)
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.source
	}
	return out
}

func (p *Processor) find(doc ast.Node, src []byte) []block {
	lang := p.Language
	if lang == "" {
		lang = config.DefaultBlockLanguage
	}
	var blocks []block
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok || string(fcb.Language(src)) != lang {
			return ast.WalkContinue, nil
		}
		var body bytes.Buffer
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			body.Write(seg.Value(src))
		}
		blocks = append(blocks, block{node: fcb, source: string(bytes.TrimRight(body.Bytes(), "\n"))})
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

// renderBlocks renders every block concurrently and returns the HTML of each
// in input order.
func (p *Processor) renderBlocks(ctx context.Context, blocks []block) ([][]byte, int, error) {
	out := make([][]byte, len(blocks))
	failed := make([]bool, len(blocks))

	limit := p.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, b := range blocks {
		g.Go(func() error {
			container := view.Container()
			p.Blocks.Process(gctx, b.source, container)
			if last := container.LastChild; last != nil && view.HasClass(last, view.ClassError) {
				failed[i] = true
			}
			s, err := view.Render(container)
			if err != nil {
				return err
			}
			out[i] = []byte(s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	n := 0
	for _, f := range failed {
		if f {
			n++
		}
	}
	return out, n, nil
}

func (p *Processor) logger() *log.Logger {
	if p.Logger == nil {
		return log.New(io.Discard)
	}
	return p.Logger
}

// blockRenderer writes pre-rendered diagram HTML in place of diagram blocks
// and falls back to a plain code block for any other fenced block.
type blockRenderer struct {
	rendered map[ast.Node][]byte
}

func (r *blockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *blockRenderer) renderFencedCodeBlock(w util.BufWriter, src []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	if out, ok := r.rendered[n]; ok {
		_, _ = w.Write(out)
		_ = w.WriteByte('\n')
		return ast.WalkSkipChildren, nil
	}

	fcb := n.(*ast.FencedCodeBlock)
	_, _ = w.WriteString("<pre><code")
	if lang := fcb.Language(src); lang != nil {
		_, _ = w.WriteString(` class="language-`)
		_, _ = w.Write(util.EscapeHTML(lang))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
	lines := fcb.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		_, _ = w.Write(util.EscapeHTML(seg.Value(src)))
	}
	_, _ = w.WriteString("</code></pre>\n")
	return ast.WalkSkipChildren, nil
}
