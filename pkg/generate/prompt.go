package generate

import (
	"strings"

	"github.com/matzehuels/aidiagram/pkg/config"
)

// Payload keys. Primary keys are what the schema asks for; the legacy keys
// are still accepted from older prompts and third-party gateways.
const (
	KeyDOTCode      = "dot_code"
	KeyDOT          = "dot"
	KeySVGCode      = "svg_code"
	KeySVG          = "svg"
	KeyErrorMessage = "error_message"
	KeyError        = "error"
	KeyExplanation  = "explanation"
)

// schemaName is the json_schema name sent with every request.
const schemaName = "diagram_response"

const sharedInstructions = `Reply with a single JSON object that conforms to the provided schema and nothing else.
Put the diagram in %CODE%. If the description cannot be turned into a diagram, leave %CODE% empty and explain why in error_message.
Use explanation for an optional one-sentence summary of the diagram. Do not add any other fields.`

const dotInstructions = `You convert natural-language descriptions into Graphviz diagrams.
Write DOT source that is valid input for the Graphviz "dot" command: one digraph or graph, quoted labels, no comments, no HTML outside of HTML-like labels.
Do not set bgcolor or a stylesheet; both are supplied when the graph is rendered.`

const svgInstructions = `You convert natural-language descriptions into SVG diagrams.
Write one self-contained <svg> element that can be embedded directly in an HTML page: include xmlns and a viewBox, inline all styles, and do not reference external fonts, images or scripts.`

// Instructions returns the instruction text sent ahead of the description.
func Instructions(mode config.Mode) string {
	code := codeKeys(mode)[0]
	base := dotInstructions
	if mode.Target() == config.TargetSVG {
		base = svgInstructions
	}
	return base + "\n" + strings.ReplaceAll(sharedInstructions, "%CODE%", code)
}

// Prompt returns the full user message for description.
func Prompt(description string, mode config.Mode) string {
	return Instructions(mode) + "\n\nDescription:\n" + description
}

// Schema returns the JSON schema the reply must conform to: the
// format-specific code field, error_message and explanation.
func Schema(mode config.Mode) map[string]any {
	code := codeKeys(mode)[0]
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			code:            str("Diagram source code, or an empty string on failure."),
			KeyErrorMessage: str("Why no diagram could be produced, or an empty string."),
			KeyExplanation:  str("Optional short summary of the diagram."),
		},
		"required":             []string{code, KeyErrorMessage, KeyExplanation},
		"additionalProperties": false,
	}
}

// codeKeys returns the code keys for mode in priority order.
func codeKeys(mode config.Mode) []string {
	if mode.Target() == config.TargetSVG {
		return []string{KeySVGCode, KeySVG}
	}
	return []string{KeyDOTCode, KeyDOT}
}

// errorKeys lists the error-message keys in priority order.
var errorKeys = []string{KeyErrorMessage, KeyError}

// CheckedKeys returns the keys whose presence makes a reply acceptable, in
// the order they are checked: code keys, then error keys.
func CheckedKeys(mode config.Mode) []string {
	return append(codeKeys(mode), errorKeys...)
}
