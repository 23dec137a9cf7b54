package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/aidiagram/pkg/config"
	aerrors "github.com/matzehuels/aidiagram/pkg/errors"
	"github.com/matzehuels/aidiagram/pkg/generate"
	"github.com/matzehuels/aidiagram/pkg/view"
)

// recordingEngine captures what it was asked to render.
type recordingEngine struct {
	calls   int
	path    string
	format  string
	content string
	out     []byte
	err     error
}

func (e *recordingEngine) Render(_ context.Context, path, format string) ([]byte, error) {
	e.calls++
	e.path, e.format = path, format
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	e.content = string(data)
	return e.out, e.err
}

func response(t *testing.T, payload map[string]any) *generate.Response {
	t.Helper()
	r, err := generate.NewResponse(payload)
	require.NoError(t, err)
	return r
}

func newDispatcher(t *testing.T, format string, eng *recordingEngine) *Dispatcher {
	cfg := config.Default()
	cfg.Format = format
	d := New(cfg, eng, nil)
	d.ScratchDir = t.TempDir()
	return d
}

func TestDispatchLocalRaster(t *testing.T) {
	eng := &recordingEngine{out: []byte("PNGDATA")}
	d := newDispatcher(t, config.FormatPNG, eng)

	n, err := d.Dispatch(context.Background(), config.ModeLocalSource,
		response(t, map[string]any{"dot_code": "digraph{a->b}"}), []string{"flowchart"})
	require.NoError(t, err)

	assert.Equal(t, 1, eng.calls)
	assert.Equal(t, "digraph{a->b}", eng.content)
	assert.Equal(t, "png", eng.format)
	assert.Equal(t, d.ScratchDir, filepath.Dir(eng.path))
	assert.NoFileExists(t, eng.path)

	assert.Equal(t, "img", n.Data)
	assert.Equal(t, []string{view.ClassDiagram, "flowchart"}, view.Classes(n))
	assert.Contains(t, view.Attr(n, "src"), "data:image/png;base64,")
	assert.False(t, view.HasClass(n, view.ClassError))
}

func TestDispatchLocalVector(t *testing.T) {
	eng := &recordingEngine{out: []byte(`<?xml version="1.0"?><svg viewBox="0 0 1 1"><g/></svg>`)}
	d := newDispatcher(t, config.FormatSVG, eng)

	n, err := d.Dispatch(context.Background(), config.ModeLocalSource,
		response(t, map[string]any{"dot": "digraph{}"}), nil)
	require.NoError(t, err)

	assert.Equal(t, "svg", n.Data)
	assert.True(t, view.HasClass(n, view.ClassSVG))
	assert.Equal(t, "digraph{}", eng.content)
}

func TestDispatchLocalVectorWithoutSVG(t *testing.T) {
	eng := &recordingEngine{out: []byte("not svg at all")}
	d := newDispatcher(t, config.FormatSVG, eng)

	_, err := d.Dispatch(context.Background(), config.ModeLocalSource,
		response(t, map[string]any{"dot_code": "digraph{}"}), nil)
	require.Error(t, err)
	assert.True(t, aerrors.Is(err, aerrors.ErrCodeRenderEngine))
}

func TestDispatchDirect(t *testing.T) {
	eng := &recordingEngine{}
	d := newDispatcher(t, config.FormatPNG, eng)

	n, err := d.Dispatch(context.Background(), config.ModeDirectMarkup,
		response(t, map[string]any{"svg_code": `<svg><rect width="1" height="1"/></svg>`}), []string{"wide"})
	require.NoError(t, err)

	assert.Zero(t, eng.calls, "direct markup never runs the engine")
	assert.Equal(t, "div", n.Data)
	assert.Equal(t, []string{view.ClassDiagram, view.ClassDirect, "wide"}, view.Classes(n))
	require.NotNil(t, n.FirstChild)
	assert.Equal(t, "svg", n.FirstChild.Data)
}

func TestDispatchUnknownMode(t *testing.T) {
	eng := &recordingEngine{}
	d := newDispatcher(t, config.FormatSVG, eng)

	_, err := d.Dispatch(context.Background(), config.Mode("ascii-art"),
		response(t, map[string]any{"dot_code": "digraph{}"}), nil)
	require.Error(t, err)
	assert.True(t, aerrors.Is(err, aerrors.ErrCodeConfiguration))
	assert.Zero(t, eng.calls)
}

func TestDispatchMissingCode(t *testing.T) {
	tests := []struct {
		name    string
		mode    config.Mode
		payload map[string]any
		code    aerrors.Code
		message string
	}{
		{"direct error only", config.ModeDirectMarkup, map[string]any{"error_message": "I can only draw graphs"}, aerrors.ErrCodeGeneration, "I can only draw graphs"},
		{"local legacy error", config.ModeLocalSource, map[string]any{"error": "too vague"}, aerrors.ErrCodeGeneration, "too vague"},
		{"direct neither", config.ModeDirectMarkup, map[string]any{"explanation": "hmm"}, aerrors.ErrCodeMalformedResponse, "no code produced"},
		{"local neither", config.ModeLocalSource, map[string]any{"svg_code": "<svg/>"}, aerrors.ErrCodeMalformedResponse, "no code produced"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &recordingEngine{}
			d := newDispatcher(t, config.FormatSVG, eng)

			_, err := d.Dispatch(context.Background(), tt.mode, response(t, tt.payload), nil)
			require.Error(t, err)
			assert.True(t, aerrors.Is(err, tt.code))
			assert.Equal(t, tt.message, aerrors.UserMessage(err))
			assert.Zero(t, eng.calls)
		})
	}
}

func TestDispatchCodeAndErrorRendersCode(t *testing.T) {
	eng := &recordingEngine{out: []byte("GIF89a")}
	d := newDispatcher(t, config.FormatGIF, eng)

	n, err := d.Dispatch(context.Background(), config.ModeLocalSource,
		response(t, map[string]any{"dot_code": "digraph{x}", "error_message": "partial"}), nil)
	require.NoError(t, err)
	assert.Equal(t, "img", n.Data)
	assert.Equal(t, 1, eng.calls)
	assert.Equal(t, "partial", view.Attr(n, "title"))
}

func TestDispatchDirectCodeAndErrorSetsTitle(t *testing.T) {
	d := newDispatcher(t, config.FormatSVG, &recordingEngine{})

	n, err := d.Dispatch(context.Background(), config.ModeDirectMarkup,
		response(t, map[string]any{"svg_code": "<svg></svg>", "error": "labels truncated"}), nil)
	require.NoError(t, err)
	assert.Equal(t, "labels truncated", view.Attr(n, "title"))
}

func TestDispatchCodeOnlyHasNoTitle(t *testing.T) {
	d := newDispatcher(t, config.FormatSVG, &recordingEngine{})

	n, err := d.Dispatch(context.Background(), config.ModeDirectMarkup,
		response(t, map[string]any{"svg_code": "<svg></svg>"}), nil)
	require.NoError(t, err)
	assert.Empty(t, view.Attr(n, "title"))
}

func TestDispatchEngineErrorPropagates(t *testing.T) {
	engineErr := &aerrors.EngineError{Command: "dot -Tsvg x.dot", ExitCode: 1, Stderr: "syntax error"}
	eng := &recordingEngine{err: engineErr}
	d := newDispatcher(t, config.FormatSVG, eng)

	_, err := d.Dispatch(context.Background(), config.ModeLocalSource,
		response(t, map[string]any{"dot_code": "digraph{"}), nil)
	assert.Same(t, engineErr, err)
	assert.NoFileExists(t, eng.path)
}

func TestRenderLocalScratchFailure(t *testing.T) {
	eng := &recordingEngine{}
	d := newDispatcher(t, config.FormatSVG, eng)
	d.ScratchDir = filepath.Join(t.TempDir(), "missing")

	_, err := d.RenderLocal(context.Background(), Request{Source: "digraph{}", Format: "svg"})
	require.Error(t, err)
	assert.True(t, aerrors.Is(err, aerrors.ErrCodeResource))
	assert.Zero(t, eng.calls)
}

func TestRenderLocalWithoutEngine(t *testing.T) {
	d := &Dispatcher{Format: config.FormatSVG}
	_, err := d.RenderLocal(context.Background(), Request{Source: "digraph{}"})
	assert.True(t, aerrors.Is(err, aerrors.ErrCodeConfiguration))
}
