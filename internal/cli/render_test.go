package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/aidiagram/pkg/config"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		output string
		input  string
		want   string
	}{
		{"derived from input", "", "docs/arch.md", "docs/arch.html"},
		{"explicit output", "out.html", "docs/arch.md", "out.html"},
		{"stdin goes to stdout", "", "-", "-"},
		{"no extension", "", "README", "README.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outputPath(tt.output, tt.input); got != tt.want {
				t.Errorf("outputPath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
			}
		})
	}
}

func TestWrapPage(t *testing.T) {
	cfg := config.Default()
	out := string(wrapPage([]byte("<p>body</p>\n"), "a <b>", cfg))

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>a &lt;b&gt;</title>",
		`<link rel="stylesheet" href="aidiagram.css">`,
		"<p>body</p>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("wrapPage() output missing %q:\n%s", want, out)
		}
	}
}

func TestOverridesApply(t *testing.T) {
	cfg := config.Default()
	o := overrides{mode: "Direct-Markup", format: "png", model: "gpt-4o", engine: "embedded"}
	if err := o.apply(&cfg); err != nil {
		t.Fatalf("apply() error: %v", err)
	}
	if cfg.Mode != config.ModeDirectMarkup || cfg.Format != "png" || cfg.Model != "gpt-4o" || cfg.Engine != "embedded" {
		t.Errorf("apply() = %+v", cfg)
	}

	for _, bad := range []overrides{{mode: "fancy"}, {format: "pdf"}, {engine: "cloud"}} {
		cfg := config.Default()
		if err := bad.apply(&cfg); err == nil {
			t.Errorf("apply(%+v) should fail", bad)
		}
	}
}

// stubService answers every chat completion with the given diagram payload.
func stubService(t *testing.T, payload map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, _ := json.Marshal(payload)
		env, _ := json.Marshal(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": string(content)}}},
		})
		_, _ = w.Write(env)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRenderCommand(t *testing.T) {
	clearConfigEnv(t)
	srv := stubService(t, map[string]string{"svg_code": `<svg viewBox="0 0 1 1"><circle r="1"/></svg>`})
	t.Setenv(config.EnvBaseURL, srv.URL)
	t.Setenv(config.EnvAPIKey, "test-key")

	dir := t.TempDir()
	input := filepath.Join(dir, "doc.md")
	md := "# Title\n\n```ai-diagram\nwide {a circle}\n```\n"
	if err := os.WriteFile(input, []byte(md), 0o644); err != nil {
		t.Fatal(err)
	}

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{
		"--config", filepath.Join(dir, "missing.toml"), "--env-file", "", "--no-cache",
		"render", "--mode", "direct-markup", input,
	})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("render error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "doc.html"))
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	out := string(data)
	for _, want := range []string{"<h1>Title</h1>", `class="ai-diagram ai-diagram-direct wide"`, "<circle"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBlockCommandFailure(t *testing.T) {
	clearConfigEnv(t)
	srv := stubService(t, map[string]string{"dot_code": "", "error_message": "too vague"})
	t.Setenv(config.EnvBaseURL, srv.URL)
	t.Setenv(config.EnvAPIKey, "test-key")

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{
		"--config", filepath.Join(t.TempDir(), "missing.toml"), "--env-file", "", "--no-cache",
		"block", "{something}",
	})
	if err := root.ExecuteContext(context.Background()); err != errBlockFailed {
		t.Fatalf("block error = %v, want %v", err, errBlockFailed)
	}
}
