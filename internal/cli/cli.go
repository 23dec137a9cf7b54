// Package cli implements the aidiagram command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/aidiagram/pkg/cache"
	"github.com/matzehuels/aidiagram/pkg/config"
	"github.com/matzehuels/aidiagram/pkg/dispatch"
	"github.com/matzehuels/aidiagram/pkg/document"
	"github.com/matzehuels/aidiagram/pkg/engine"
	"github.com/matzehuels/aidiagram/pkg/generate"
	"github.com/matzehuels/aidiagram/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "aidiagram"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Registry receives the pipeline metrics. serve exposes it at /metrics.
	Registry *prometheus.Registry

	configPath string
	envFile    string
	noCache    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the env file and the config file selected by the global
// flags.
func (c *CLI) loadConfig() (config.Config, error) {
	if err := config.LoadEnvFile(c.envFile); err != nil {
		return config.Config{}, err
	}
	path, err := c.resolveConfigPath()
	if err != nil {
		return config.Config{}, err
	}
	c.Logger.Debug("loading config", "path", path)
	return config.Load(path, c.Logger)
}

func (c *CLI) resolveConfigPath() (string, error) {
	if c.configPath != "" {
		return c.configPath, nil
	}
	return config.Path()
}

// =============================================================================
// Pipeline Factory
// =============================================================================

// stack is the set of pipeline components built from one Config.
type stack struct {
	client    *generate.Client
	runner    *pipeline.Runner
	documents *document.Processor
}

// newStack wires a generation client, dispatcher and runner for cfg.
func (c *CLI) newStack(cfg config.Config) (*stack, error) {
	store, err := c.newCache()
	if err != nil {
		return nil, err
	}
	client := generate.NewClient(cfg, store, c.Logger)
	disp := dispatch.New(cfg, engine.New(cfg, c.Logger), c.Logger)
	runner := pipeline.NewRunner(cfg, client, disp, c.Logger)
	return &stack{
		client:    client,
		runner:    runner,
		documents: document.New(cfg, runner, c.Logger),
	}, nil
}

func (c *CLI) newCache() (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/aidiagram/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Flag Helpers
// =============================================================================

// overrides holds the per-command flags that take precedence over the
// loaded configuration.
type overrides struct {
	mode   string
	format string
	model  string
	engine string
}

func (o *overrides) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.mode, "mode", "m", "", "render mode: local-source, direct-markup")
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "image format for local-source: svg, png, jpg, gif, webp")
	cmd.Flags().StringVar(&o.model, "model", "", "model id")
	cmd.Flags().StringVar(&o.engine, "engine", "", "engine: exec, embedded")
}

// apply copies the set flags onto cfg and validates the result.
func (o *overrides) apply(cfg *config.Config) error {
	if o.mode != "" {
		m, err := config.ParseMode(o.mode)
		if err != nil {
			return err
		}
		cfg.Mode = m
	}
	if o.format != "" {
		cfg.Format = o.format
	}
	if o.model != "" {
		cfg.Model = o.model
	}
	if o.engine != "" {
		cfg.Engine = o.engine
	}
	return cfg.Validate()
}
