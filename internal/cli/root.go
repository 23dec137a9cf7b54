package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/aidiagram/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "aidiagram turns plain-language descriptions into diagrams",
		Long: `aidiagram asks a generative service for a diagram matching a plain-language
description and renders it, either through a local Graphviz engine or as
SVG markup produced by the service directly.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/aidiagram/config.toml)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "file of KEY=VALUE pairs loaded into the environment")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the model catalog cache")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.blockCommand())
	root.AddCommand(c.modelsCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}
