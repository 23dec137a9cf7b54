// Package pkg provides the libraries behind aidiagram, which turns
// plain-language descriptions into diagrams.
//
// # Overview
//
// A diagram block pairs optional style tokens with a description:
//
//	flowchart important {login page -> auth service -> dashboard}
//
// The description is sent to an OpenAI-compatible chat-completion service,
// which answers with Graphviz DOT or SVG markup depending on the mode. The
// result becomes an HTML node appended to the block's container.
//
// # Architecture
//
//	block text
//	     ↓
//	[pipeline] split tokens and description
//	     ↓
//	[generate] chat completion with a strict JSON schema
//	     ↓
//	[dispatch] pick the render path for the mode
//	     ↓                         ↓
//	local-source                direct-markup
//	[scratch] + [engine]        markup embedded as-is
//	     ↓                         ↓
//	[view] <img> or inline <svg>  [view] <div>
//
// Any failure along the way is turned into an error block by [pipeline].
// [document] applies the pipeline to every diagram block of a Markdown file.
//
// # Supporting Packages
//
// [config] - Settings from defaults, TOML file, .env file and environment.
//
// [errors] - Coded errors plus typed transport and engine failures.
//
// [cache] - File and null caches; the model catalog is cached here.
//
// [observability] - Hooks for generation, rendering, caching and HTTP,
// with a Prometheus implementation.
//
// [buildinfo] - Version information set at build time.
//
// [config]: github.com/matzehuels/aidiagram/pkg/config
// [errors]: github.com/matzehuels/aidiagram/pkg/errors
// [cache]: github.com/matzehuels/aidiagram/pkg/cache
// [observability]: github.com/matzehuels/aidiagram/pkg/observability
// [buildinfo]: github.com/matzehuels/aidiagram/pkg/buildinfo
// [pipeline]: github.com/matzehuels/aidiagram/pkg/pipeline
// [generate]: github.com/matzehuels/aidiagram/pkg/generate
// [dispatch]: github.com/matzehuels/aidiagram/pkg/dispatch
// [scratch]: github.com/matzehuels/aidiagram/pkg/scratch
// [engine]: github.com/matzehuels/aidiagram/pkg/engine
// [view]: github.com/matzehuels/aidiagram/pkg/view
// [document]: github.com/matzehuels/aidiagram/pkg/document
package pkg
