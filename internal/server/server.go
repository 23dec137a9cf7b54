// Package server exposes the diagram pipeline over HTTP.
//
// Routes:
//
//	POST /v1/blocks     {"source": "..."} -> HTML fragment
//	POST /v1/documents  Markdown body     -> HTML
//	GET  /v1/models                        -> {"models": [...]}
//	GET  /healthz
//	GET  /metrics                          (when a metrics handler is set)
//
// A diagram that fails to render is still a 200 response: the body is the
// error block, and the X-Diagram-Error header carries the error code.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/html"

	"github.com/matzehuels/aidiagram/pkg/document"
	aerrors "github.com/matzehuels/aidiagram/pkg/errors"
	"github.com/matzehuels/aidiagram/pkg/view"
)

const (
	// DefaultMaxBody caps request bodies.
	DefaultMaxBody = 1 << 20

	headerError  = "X-Diagram-Error"
	headerBlocks = "X-Diagram-Blocks"
	headerFailed = "X-Diagram-Failed"
)

// BlockRenderer renders one diagram block. [pipeline.Runner] implements it.
//
// [pipeline.Runner]: github.com/matzehuels/aidiagram/pkg/pipeline
type BlockRenderer interface {
	Render(ctx context.Context, source string) (*html.Node, error)
}

// DocumentProcessor renders a Markdown document.
type DocumentProcessor interface {
	Process(ctx context.Context, src []byte) (*document.Result, error)
}

// ModelLister lists the models offered by the generative service.
type ModelLister interface {
	ListModels(ctx context.Context) []string
}

// Server holds the handlers' dependencies.
type Server struct {
	Blocks    BlockRenderer
	Documents DocumentProcessor
	Models    ModelLister
	Metrics   http.Handler // Mounted at /metrics when set
	Logger    *log.Logger
	MaxBody   int64
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/blocks", s.renderBlock)
		r.Post("/documents", s.renderDocument)
		r.Get("/models", s.listModels)
	})
	return r
}

type blockRequest struct {
	Source string `json:"source"`
}

func (s *Server) renderBlock(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody())).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		http.Error(w, "source is required", http.StatusBadRequest)
		return
	}

	node, err := s.Blocks.Render(r.Context(), req.Source)
	if err != nil {
		code := string(aerrors.GetCode(err))
		if code == "" {
			code = "INTERNAL"
		}
		w.Header().Set(headerError, code)
	}
	out, rerr := view.Render(node)
	if rerr != nil {
		s.logger().Error("render block response", "err", rerr)
		http.Error(w, "could not serialize result", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, out)
}

func (s *Server) renderDocument(w http.ResponseWriter, r *http.Request) {
	src, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "document too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "could not read body", http.StatusBadRequest)
		return
	}

	res, err := s.Documents.Process(r.Context(), src)
	if err != nil {
		s.logger().Error("render document", "err", err)
		http.Error(w, "could not render document", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(headerBlocks, strconv.Itoa(res.Blocks))
	w.Header().Set(headerFailed, strconv.Itoa(res.Failed))
	_, _ = w.Write(res.HTML)
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": s.Models.ListModels(r.Context())})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger().Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
			"id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) maxBody() int64 {
	if s.MaxBody > 0 {
		return s.MaxBody
	}
	return DefaultMaxBody
}

func (s *Server) logger() *log.Logger {
	if s.Logger == nil {
		return log.New(io.Discard)
	}
	return s.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
