package cli

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/aidiagram/internal/server"
)

const defaultAddr = "127.0.0.1:8080"

// serveCommand runs the HTTP host until interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		opts    overrides
		maxBody int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the diagram pipeline over HTTP",
		Long: `Serve the diagram pipeline over HTTP.

Endpoints:
  POST /v1/blocks     {"source": "..."} -> HTML fragment
  POST /v1/documents  Markdown body     -> HTML
  GET  /v1/models
  GET  /healthz
  GET  /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			srv := &server.Server{
				Blocks:    st.runner,
				Documents: st.documents,
				Models:    st.client,
				Metrics:   c.metricsHandler(),
				Logger:    c.Logger,
				MaxBody:   maxBody,
			}
			printInfo("Serving on %s", StyleLink.Render("http://"+addr))
			printDetail("mode %s, model %s", cfg.Mode, cfg.Model)
			return server.ListenAndServe(cmd.Context(), addr, srv.Handler(), c.Logger)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().Int64Var(&maxBody, "max-body", server.DefaultMaxBody, "maximum request body in bytes")
	return cmd
}

func (c *CLI) metricsHandler() http.Handler {
	if c.Registry == nil {
		return nil
	}
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}
