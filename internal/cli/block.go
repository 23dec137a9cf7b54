package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/aidiagram/pkg/view"
)

// errBlockFailed is returned after the error block has been printed, so the
// process exits non-zero without repeating the message.
var errBlockFailed = errors.New("diagram failed")

// blockCommand creates the block command: one description in, one HTML
// fragment out.
func (c *CLI) blockCommand() *cobra.Command {
	var opts overrides

	cmd := &cobra.Command{
		Use:   "block [tokens...] {description}",
		Short: "Render a single diagram block to an HTML fragment",
		Long: `Render one diagram block and print the resulting HTML fragment.

Words before the first "{" are style tokens added as classes to the result;
the rest is the description sent to the generative service:

  aidiagram block flowchart wide "{user logs in -> token issued -> dashboard}"

Reads standard input when no arguments are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			source := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := readInput("-")
				if err != nil {
					return err
				}
				source = string(data)
			}
			if strings.TrimSpace(source) == "" {
				return errors.New("empty block")
			}
			return c.runBlock(cmd.Context(), source, &opts)
		},
	}

	opts.register(cmd)
	return cmd
}

func (c *CLI) runBlock(ctx context.Context, source string, opts *overrides) error {
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if err := opts.apply(&cfg); err != nil {
		return err
	}
	st, err := c.newStack(cfg)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, "Generating diagram...")
	spinner.Start()
	node, renderErr := st.runner.Render(ctx, source)
	spinner.Stop()

	out, err := view.Render(node)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, out)

	if renderErr != nil {
		logger.Debug("block failed", "err", renderErr)
		return errBlockFailed
	}
	prog.done("Rendered block", "mode", cfg.Mode)
	return nil
}
