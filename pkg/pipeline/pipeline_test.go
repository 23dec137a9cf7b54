package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/matzehuels/aidiagram/pkg/config"
	"github.com/matzehuels/aidiagram/pkg/dispatch"
	"github.com/matzehuels/aidiagram/pkg/engine"
	"github.com/matzehuels/aidiagram/pkg/generate"
	"github.com/matzehuels/aidiagram/pkg/view"
)

func TestParseBlock(t *testing.T) {
	tests := []struct {
		source string
		tokens []string
		desc   string
	}{
		{"flowchart important {A->B}", []string{"flowchart", "important"}, "{A->B}"},
		{"{A->B}", nil, "{A->B}"},
		{"  \t{A->B}", nil, "{A->B}"},
		{"  wide\tdark \n{x}", []string{"wide", "dark"}, "{x}"},
		{"a login page talks to an auth service", nil, "a login page talks to an auth service"},
		{"one {a {b}}", []string{"one"}, "{a {b}}"},
		{"", nil, ""},
	}

	for _, tt := range tests {
		b := ParseBlock(tt.source)
		assert.Equal(t, tt.tokens, b.Tokens, "tokens of %q", tt.source)
		assert.Equal(t, tt.desc, b.Description, "description of %q", tt.source)
	}
}

// harness wires a real client and dispatcher to a stub service and a fake engine.
type harness struct {
	runner  *Runner
	hits    *atomic.Int32
	mu      *sync.Mutex
	prompts *[]string
	record  string // file the fake engine writes its arguments and input to
	engine  string
}

// stubContent is the diagram payload the stub service answers with.
type stubContent map[string]any

func newHarness(t *testing.T, mode config.Mode, format string, reply stubContent, engineBody string) *harness {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engines are shell scripts")
	}

	var hits atomic.Int32
	var mu sync.Mutex
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if json.NewDecoder(r.Body).Decode(&req) == nil && len(req.Messages) > 0 {
			mu.Lock()
			prompts = append(prompts, req.Messages[0].Content)
			mu.Unlock()
		}
		content, _ := json.Marshal(reply)
		env, _ := json.Marshal(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": string(content)}}},
		})
		_, _ = w.Write(env)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	record := filepath.Join(dir, "record")
	bin := filepath.Join(dir, "fake-dot")
	script := "#!/bin/sh\nRECORD=" + record + "\n" + engineBody + "\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	cfg := config.Default()
	cfg.Mode = mode
	cfg.Format = format
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL
	cfg.EnginePath = bin

	disp := dispatch.New(cfg, engine.New(cfg, nil), nil)
	disp.ScratchDir = t.TempDir()

	return &harness{
		runner:  NewRunner(cfg, generate.NewClient(cfg, nil, nil), disp, nil),
		hits:    &hits,
		mu:      &mu,
		prompts: &prompts,
		record:  record,
		engine:  bin,
	}
}

// recordingEngine records each positional argument and the content of the
// last one, then prints a fixed image.
const recordingEngine = `for a in "$@"; do
  case "$a" in -*) ;; *) echo "arg:$a" >> "$RECORD"; echo "content:$(cat "$a")" >> "$RECORD";; esac
done
printf 'PNGDATA'`

func onlyChild(t *testing.T, container *html.Node) *html.Node {
	t.Helper()
	require.NotNil(t, container.FirstChild, "container has no children")
	require.Nil(t, container.FirstChild.NextSibling, "container has more than one child")
	return container.FirstChild
}

func TestProcessRoundTrip(t *testing.T) {
	h := newHarness(t, config.ModeLocalSource, config.FormatPNG,
		stubContent{"dot_code": "digraph{a->b}"}, recordingEngine)
	container := view.Container()

	h.runner.Process(context.Background(), "{a to b}", container)

	node := onlyChild(t, container)
	assert.Equal(t, "img", node.Data)
	assert.False(t, view.HasClass(node, view.ClassError))
	assert.Equal(t, "data:image/png;base64,UE5HREFUQQ==", view.Attr(node, "src"))

	data, err := os.ReadFile(h.record)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2, "engine must receive exactly one positional argument")
	assert.True(t, strings.HasPrefix(lines[0], "arg:"))
	assert.Equal(t, "content:digraph{a->b}", lines[1])
	assert.NoFileExists(t, strings.TrimPrefix(lines[0], "arg:"), "scratch file must be removed")
}

func TestProcessSuccessHasNoErrorText(t *testing.T) {
	h := newHarness(t, config.ModeDirectMarkup, config.FormatSVG,
		stubContent{"svg_code": `<svg viewBox="0 0 2 2"><rect width="1" height="1"/></svg>`, "error_message": "", "explanation": "a square"}, "exit 99")
	container := view.Container()

	h.runner.Process(context.Background(), "small {a square}", container)

	node := onlyChild(t, container)
	assert.Equal(t, "div", node.Data)
	assert.True(t, view.HasClass(node, view.ClassDirect))
	assert.True(t, view.HasClass(node, "small"))
	assert.False(t, view.HasClass(node, view.ClassError))

	out, err := view.Render(node)
	require.NoError(t, err)
	assert.NotContains(t, out, "ai-diagram-error")
	assert.Contains(t, out, "<rect")
}

func TestProcessStyleTokens(t *testing.T) {
	h := newHarness(t, config.ModeLocalSource, config.FormatPNG,
		stubContent{"dot_code": "digraph{A->B}"}, recordingEngine)
	container := view.Container()

	h.runner.Process(context.Background(), "flowchart important {A->B}", container)

	node := onlyChild(t, container)
	assert.Equal(t, []string{view.ClassDiagram, "flowchart", "important"}, view.Classes(node))
	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, *h.prompts, 1)
	assert.True(t, strings.HasSuffix((*h.prompts)[0], "{A->B}"))
}

func TestProcessErrorOnlyResponse(t *testing.T) {
	h := newHarness(t, config.ModeLocalSource, config.FormatPNG,
		stubContent{"dot_code": "", "error_message": "I need more detail to draw this."}, recordingEngine)
	container := view.Container()

	h.runner.Process(context.Background(), "{?}", container)

	node := onlyChild(t, container)
	assert.Equal(t, "pre", node.Data)
	assert.True(t, view.HasClass(node, view.ClassError))
	assert.Equal(t, "I need more detail to draw this.", view.Text(node))
	assert.NoFileExists(t, h.record, "engine must not run")
}

func TestProcessLegacyErrorKey(t *testing.T) {
	h := newHarness(t, config.ModeDirectMarkup, config.FormatSVG,
		stubContent{"error": "too vague"}, recordingEngine)
	container := view.Container()

	h.runner.Process(context.Background(), "{something}", container)

	node := onlyChild(t, container)
	assert.Equal(t, "pre", node.Data)
	assert.True(t, view.HasClass(node, view.ClassError))
	assert.Equal(t, "too vague", view.Text(node))
	assert.NoFileExists(t, h.record, "engine must not run")
}

func TestProcessMissingFields(t *testing.T) {
	h := newHarness(t, config.ModeLocalSource, config.FormatPNG,
		stubContent{"explanation": "here you go"}, recordingEngine)
	container := view.Container()

	h.runner.Process(context.Background(), "{a}", container)

	node := onlyChild(t, container)
	assert.True(t, view.HasClass(node, view.ClassError))
	assert.Equal(t,
		"response missing expected fields: checked [dot_code dot error_message error], received [explanation]",
		view.Text(node))
}

func TestProcessEngineFailure(t *testing.T) {
	h := newHarness(t, config.ModeLocalSource, config.FormatPNG,
		stubContent{"dot_code": "digraph{a->}"}, `echo "syntax error" >&2; exit 1`)
	container := view.Container()

	h.runner.Process(context.Background(), "{broken}", container)

	node := onlyChild(t, container)
	assert.True(t, view.HasClass(node, view.ClassError))
	text := view.Text(node)
	assert.Contains(t, text, "syntax error")
	assert.Contains(t, text, h.engine+" -Tpng -Gbgcolor=transparent -Gstylesheet=aidiagram.css ")
	assert.Contains(t, text, "exited with code 1")
}

func TestProcessWithoutCredential(t *testing.T) {
	h := newHarness(t, config.ModeLocalSource, config.FormatPNG,
		stubContent{"dot_code": "digraph{}"}, recordingEngine)
	h.runner.Generator.(*generate.Client).APIKey = ""
	container := view.Container()

	h.runner.Process(context.Background(), "{a}", container)

	node := onlyChild(t, container)
	assert.True(t, view.HasClass(node, view.ClassError))
	assert.Contains(t, view.Text(node), "no API key configured")
	assert.Zero(t, h.hits.Load())
}

func TestProcessIdempotent(t *testing.T) {
	h := newHarness(t, config.ModeLocalSource, config.FormatPNG,
		stubContent{"dot_code": "digraph{a->b}"}, `printf 'PNGDATA'`)

	render := func() string {
		container := view.Container()
		h.runner.Process(context.Background(), "tall {a -> b}", container)
		out, err := view.RenderChildren(container)
		require.NoError(t, err)
		return out
	}

	first, second := render(), render()
	assert.Equal(t, first, second)
	assert.Contains(t, first, "<img")
}

func TestProcessAppendsAfterExistingChildren(t *testing.T) {
	h := newHarness(t, config.ModeLocalSource, config.FormatPNG,
		stubContent{"dot_code": "digraph{}"}, `printf 'PNGDATA'`)
	container := view.Container()
	container.AppendChild(&html.Node{Type: html.TextNode, Data: "caption"})

	h.runner.Process(context.Background(), "{a}", container)

	require.NotNil(t, container.LastChild)
	assert.Equal(t, "img", container.LastChild.Data)
	assert.Equal(t, "caption", container.FirstChild.Data)
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(context.Context, string, config.Mode) (*generate.Response, error) {
	panic("boom")
}

func TestProcessRecoversFromPanic(t *testing.T) {
	r := NewRunner(config.Default(), panickingGenerator{}, &dispatch.Dispatcher{}, nil)
	container := view.Container()

	assert.NotPanics(t, func() {
		r.Process(context.Background(), "{a}", container)
	})

	node := onlyChild(t, container)
	assert.True(t, view.HasClass(node, view.ClassError))
	assert.Equal(t, "internal error: boom", view.Text(node))
}

func TestProcessNilContainer(t *testing.T) {
	r := NewRunner(config.Default(), nil, nil, nil)
	assert.NotPanics(t, func() {
		r.Process(context.Background(), "{a}", nil)
	})
}

func TestRenderReturnsCause(t *testing.T) {
	r := NewRunner(config.Default(), nil, nil, nil)
	node, err := r.Render(context.Background(), "{a}")
	require.Error(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "no generator configured", view.Text(node))
}
