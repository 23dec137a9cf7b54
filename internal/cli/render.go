package cli

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/aidiagram/pkg/config"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	overrides
	output string // output file; stdout when empty or "-"
	page   bool   // wrap the fragment in a standalone HTML page
}

// renderCommand creates the render command: Markdown in, HTML out.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [file.md]",
		Short: "Render the diagram blocks of a Markdown document to HTML",
		Long: `Render a Markdown document to HTML, replacing every fenced block marked
with the diagram language (ai-diagram by default) by the generated diagram.

Reads standard input when no file is given or the file is "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return c.runRender(cmd.Context(), input, &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <input>.html, or stdout for stdin)")
	cmd.Flags().BoolVar(&opts.page, "page", false, "write a standalone HTML page instead of a fragment")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if err := opts.apply(&cfg); err != nil {
		return err
	}

	src, err := readInput(input)
	if err != nil {
		return err
	}

	st, err := c.newStack(cfg)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, "Rendering diagrams...")
	spinner.Start()
	res, err := st.documents.Process(ctx, src)
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.done("Rendered document", "blocks", res.Blocks, "failed", res.Failed, "mode", cfg.Mode)

	out := res.HTML
	if opts.page {
		out = wrapPage(out, title(input), cfg)
	}

	path := outputPath(opts.output, input)
	if err := writeOutput(path, out); err != nil {
		return err
	}
	if path != "-" {
		printSuccess("Rendered %d diagram(s)", res.Blocks)
		printFile(path)
	}
	if res.Failed > 0 {
		printWarning("%d of %d diagram(s) failed; see the error blocks in the output", res.Failed, res.Blocks)
	}
	return nil
}

// outputPath derives the output file: explicit flag, <input>.html, or stdout.
func outputPath(output, input string) string {
	if output != "" {
		return output
	}
	if input == "-" {
		return "-"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".html"
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func title(input string) string {
	if input == "-" {
		return appName
	}
	return strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
}

// wrapPage embeds body in a minimal HTML page linking the diagram stylesheet.
func wrapPage(body []byte, pageTitle string, cfg config.Config) []byte {
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(pageTitle))
	if cfg.Stylesheet != "" {
		fmt.Fprintf(&b, "<link rel=\"stylesheet\" href=\"%s\">\n", html.EscapeString(cfg.Stylesheet))
	}
	b.WriteString("</head>\n<body>\n")
	b.Write(body)
	b.WriteString("</body>\n</html>\n")
	return b.Bytes()
}
