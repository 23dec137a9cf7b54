// Package pipeline turns the raw text of one diagram block into an HTML node.
//
// # Architecture
//
// The pipeline has three stages:
//
//  1. Parse: split the block into style tokens and a description ([ParseBlock])
//  2. Generate: ask the generative service for diagram code
//  3. Dispatch: render the code locally or embed it, and build the node
//
// [Runner.Process] is the entry point used by every host. It never returns an
// error and never panics: a failure in any stage is rendered as an error block
// in place of the diagram, so one bad block cannot break the rest of a
// document.
//
// # Usage
//
//	runner := pipeline.NewRunner(cfg, client, dispatcher, logger)
//	container := view.Container()
//	runner.Process(ctx, "flowchart {login -> dashboard}", container)
package pipeline

import "strings"

// Block is a parsed diagram block.
type Block struct {
	// Tokens are the CSS classes written before the first "{".
	Tokens []string

	// Description is the text sent to the generative service.
	Description string
}

// ParseBlock splits source at its first "{". The text before it is read as
// whitespace-separated style tokens; the rest, brace included, is the
// description. Without a "{" there are no tokens and the whole text is the
// description.
func ParseBlock(source string) Block {
	i := strings.IndexByte(source, '{')
	if i < 0 {
		return Block{Description: source}
	}
	b := Block{Description: source[i:]}
	if tokens := strings.Fields(source[:i]); len(tokens) > 0 {
		b.Tokens = tokens
	}
	return b
}
