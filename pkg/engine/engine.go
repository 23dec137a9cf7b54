// Package engine invokes the Graphviz layout engine on a DOT source file.
//
// # Overview
//
// A [Renderer] turns the path of a DOT file into rendered image bytes. Two
// implementations are provided:
//
//   - [Exec]: runs the configured executable (normally `dot`) as a subprocess
//   - [Embedded]: renders in-process with the WebAssembly Graphviz build
//
// Both present the same single blocking call: the caller gets the complete
// image or an error once the work has finished, never partial output.
//
// # Invocation
//
// [Exec] runs
//
//	dot -T<format> -Gbgcolor=transparent -Gstylesheet=<stylesheet> <path>
//
// with an empty, closed standard input. Standard output is the image;
// standard error is kept as diagnostic text for [errors.EngineError].
//
// [errors.EngineError]: github.com/matzehuels/aidiagram/pkg/errors
package engine

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/aidiagram/pkg/config"
)

// Renderer renders the DOT file at path to the given output format.
type Renderer interface {
	Render(ctx context.Context, path, format string) ([]byte, error)
}

// New returns the renderer selected by cfg.Engine.
func New(cfg config.Config, logger *log.Logger) Renderer {
	if cfg.Engine == config.EngineEmbedded {
		return &Embedded{Logger: logger}
	}
	return &Exec{
		Path:       cfg.EnginePath,
		Stylesheet: cfg.Stylesheet,
		Timeout:    cfg.EngineTimeout.Std(),
		Logger:     logger,
	}
}
