package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/aidiagram/pkg/config"
)

// configCommand creates the config management command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and manage the configuration",
	}

	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configPathCommand())
	cmd.AddCommand(c.configInitCommand())

	return cmd
}

// configShowCommand prints the effective configuration.
func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			printConfig(cfg)
			return nil
		},
	}
}

// configPathCommand creates the "config path" subcommand.
func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.resolveConfigPath()
			if err != nil {
				return fmt.Errorf("get config path: %w", err)
			}
			fmt.Println(path)
			return nil
		},
	}
}

// configInitCommand writes a config file holding the defaults.
func (c *CLI) configInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.resolveConfigPath()
			if err != nil {
				return fmt.Errorf("get config path: %w", err)
			}
			if _, err := os.Stat(path); err == nil && !force {
				printWarning("Config already exists")
				printDetail("Path: %s", path)
				printNextStep("Overwrite it with", "aidiagram config init --force")
				return nil
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			printSuccess("Wrote default config")
			printFile(path)
			printNextStep("Set your API key with", "export "+config.EnvAPIKey+"=...")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func printConfig(cfg config.Config) {
	printKeyValue("mode", cfg.Mode.String())
	printKeyValue("format", cfg.Format)
	printKeyValue("engine", cfg.Engine)
	printKeyValue("engine_path", cfg.EnginePath)
	printKeyValue("stylesheet", cfg.Stylesheet)
	printKeyValue("model", cfg.Model)
	printKeyValue("base_url", cfg.BaseURL)
	printKeyValue("api_key", maskKey(cfg.APIKey))
	printKeyValue("timeout", cfg.Timeout.Std().String())
	printKeyValue("engine_timeout", cfg.EngineTimeout.Std().String())
	printKeyValue("language", cfg.BlockLanguage)
	printKeyValue("concurrency", fmt.Sprint(cfg.Concurrency))
}

// maskKey shows only the last four characters of a credential.
func maskKey(key string) string {
	switch {
	case key == "":
		return StyleWarning.Render("not set")
	case len(key) <= 8:
		return "****"
	default:
		return "****" + key[len(key)-4:]
	}
}
