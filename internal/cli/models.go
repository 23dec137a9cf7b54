package cli

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/aidiagram/pkg/config"
)

// catalogTimeout bounds the model catalog request made by the models command.
const catalogTimeout = 30 * time.Second

// modelsCommand lists the models offered by the service, optionally letting
// the user pick one and saving it to the config file.
func (c *CLI) modelsCommand() *cobra.Command {
	var pick bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List available models",
		Long: `List the chat models offered by the configured service.

When the catalog cannot be fetched, a built-in list of common models is shown
instead. With --pick, choose a model interactively and save it to the config
file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runModels(cmd.Context(), pick)
		},
	}

	cmd.Flags().BoolVarP(&pick, "pick", "p", false, "choose a model interactively and save it")
	return cmd
}

func (c *CLI) runModels(ctx context.Context, pick bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	st, err := c.newStack(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, catalogTimeout)
	defer cancel()

	spinner := newSpinnerWithContext(ctx, "Fetching models...")
	spinner.Start()
	models := st.client.ListModels(ctx)
	spinner.Stop()

	if !pick {
		for _, id := range models {
			if id == cfg.Model {
				fmt.Println(StyleHighlight.Render(id) + " " + StyleDim.Render("(current)"))
				continue
			}
			fmt.Println(id)
		}
		return nil
	}

	result, err := tea.NewProgram(NewModelListModel(models, cfg.Model)).Run()
	if err != nil {
		return fmt.Errorf("model picker: %w", err)
	}
	chosen := result.(ModelListModel).Selected
	if chosen == "" {
		printInfo("No model selected")
		return nil
	}
	return c.saveModel(chosen)
}

// saveModel stores model in the config file, keeping the file's other
// settings. Environment overrides are not written back.
func (c *CLI) saveModel(model string) error {
	path, err := c.resolveConfigPath()
	if err != nil {
		return err
	}
	stored, err := config.LoadFile(path, c.Logger)
	if err != nil {
		return err
	}
	stored.Model = model
	if err := config.Save(path, stored); err != nil {
		return err
	}
	printSuccess("Model set to %s", StyleHighlight.Render(model))
	printDetail("Saved to %s", path)
	return nil
}
