// Package loader serves modules to a running page and drives dynamic
// loading from Go. Both sides resolve names with core/resolve, so a module
// loaded at runtime comes from the same path the bundler would include.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/YoungY620/mrequires/bundler"
	"github.com/YoungY620/mrequires/core/logging"
	"github.com/YoungY620/mrequires/core/resolve"
	"github.com/YoungY620/mrequires/core/split"
)

// PathHeader carries the resolved path of a module served by /modules/.
const PathHeader = "X-Mrequires-Path"

const defaultTracerName = "mrequires"

// Server exposes a Bundler over HTTP.
type Server struct {
	bundler  *bundler.Bundler
	log      logging.Printer
	registry *prometheus.Registry
	metrics  *metrics
	tracer   trace.Tracer
	router   chi.Router

	// bases are the distinct namespace directories; /files/{ns}/ addresses
	// them by index so relative URLs inside served CSS stay under one base.
	bases   []string
	nsIndex map[string]int
}

// ServerOption customises a Server.
type ServerOption func(*Server)

func WithServerLogger(l logging.Printer) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRegistry sets the Prometheus registry the server's collectors are
// registered on and /metrics exposes.
func WithRegistry(reg *prometheus.Registry) ServerOption {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

func WithTracerName(name string) ServerOption {
	return func(s *Server) {
		s.tracer = otel.Tracer(name)
	}
}

// NewServer builds the router for b.
func NewServer(b *bundler.Bundler, opts ...ServerOption) *Server {
	s := &Server{
		bundler: b,
		log:     logging.NewNop(),
		tracer:  otel.Tracer(defaultTracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(s.registry)

	s.indexNamespaces(b.Namespaces())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Get("/mrequires.js", s.handleClient)
	r.Get("/modules/{name}", s.handleModule)
	r.Get("/resolve/{name}", s.handleResolve)
	r.Get("/bundle/{mode}", s.handleBundle)
	r.Get("/files/{ns}/*", s.handleFile)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.router = r
	return s
}

func (s *Server) indexNamespaces(ns resolve.Namespaces) {
	keys := make([]string, 0, len(ns))
	for key := range ns {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	s.nsIndex = make(map[string]int, len(keys))
	byBase := make(map[string]int)
	for _, key := range keys {
		base := withSlash(ns[key])
		idx, ok := byBase[base]
		if !ok {
			idx = len(s.bases)
			byBase[base] = idx
			s.bases = append(s.bases, base)
		}
		s.nsIndex[key] = idx
	}
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler { return s.router }

// Registry returns the registry /metrics exposes.
func (s *Server) Registry() *prometheus.Registry { return s.registry }

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("loader listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Infof("loader shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, err := s.bundler.Resolve(name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	text, err := s.bundler.Read(p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Debugf("module %s -> %s", name, p)
	w.Header().Set("Content-Type", contentType(p))
	w.Header().Set(PathHeader, p)
	w.Header().Set("Cache-Control", "no-store")
	w.Write([]byte(text))
}

// resolveResponse is the body of GET /resolve/{name}.
type resolveResponse struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Kind string `json:"kind"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, err := s.bundler.Resolve(name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{Name: name, Path: p, Kind: kindOf(p)})
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	mode, err := bundler.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	entry := r.URL.Query().Get("entry")
	if entry == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing entry parameter"})
		return
	}
	entry, ok := projectPath(entry)
	if !ok {
		s.metrics.errorsTotal.WithLabelValues("entry").Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "entry must be a relative path inside the project"})
		return
	}

	_, span := s.tracer.Start(r.Context(), "mrequires.bundle",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("mrequires.mode", mode.String()),
			attribute.String("mrequires.entry", entry),
		),
	)
	defer span.End()

	out, err := s.bundler.Concat(entry, mode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.writeError(w, err)
		return
	}
	span.SetAttributes(attribute.Int("mrequires.bytes", len(out)))
	span.SetStatus(codes.Ok, "")
	s.metrics.bundleBytes.WithLabelValues(mode.String()).Observe(float64(len(out)))

	w.Header().Set("Content-Type", bundleContentType(mode))
	w.Header().Set("Cache-Control", "no-store")
	w.Write([]byte(out))
}

// handleFile serves /files/{ns}/<rest> as <bases[ns]><rest>. The browser
// client loads modules from here so relative url() references in CSS
// resolve against the stylesheet's own directory.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "ns"))
	if err != nil || idx < 0 || idx >= len(s.bases) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown namespace"})
		return
	}
	rest := strings.TrimPrefix(path.Clean("/"+chi.URLParam(r, "*")), "/")
	if rest == "" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no file"})
		return
	}
	p := s.bases[idx] + rest
	text, err := s.bundler.Read(p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType(p))
	w.Header().Set(PathHeader, p)
	w.Header().Set("Cache-Control", "no-store")
	w.Write([]byte(text))
}

// projectPath cleans a client supplied entry and rejects anything that
// would leave the reader's root: absolute paths, volume names and
// leading "..".
func projectPath(entry string) (string, bool) {
	if filepath.IsAbs(entry) || filepath.VolumeName(entry) != "" {
		return "", false
	}
	p := path.Clean(filepath.ToSlash(entry))
	if path.IsAbs(p) || p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, category := classify(err)
	s.metrics.errorsTotal.WithLabelValues(category).Inc()
	if status >= http.StatusInternalServerError {
		s.log.Errorf("%v", err)
	} else {
		s.log.Debugf("%v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// classify maps a bundler error to an HTTP status and a metrics category.
func classify(err error) (int, string) {
	var (
		cfgErr       *resolve.ConfigurationError
		malformedErr *split.MalformedDirectiveError
	)
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, "configuration"
	case bundler.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &malformedErr):
		return http.StatusUnprocessableEntity, "malformed"
	case errors.Is(err, bundler.ErrUnknownMode):
		return http.StatusBadRequest, "mode"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func kindOf(p string) string {
	if resolve.IsCSS(p) {
		return "css"
	}
	return "js"
}

func contentType(p string) string {
	switch {
	case resolve.IsCSS(p):
		return "text/css; charset=utf-8"
	case strings.HasSuffix(p, resolve.SuffixJS):
		return "application/javascript; charset=utf-8"
	}
	if t := mime.TypeByExtension(path.Ext(p)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func bundleContentType(m bundler.Mode) string {
	switch m {
	case bundler.ModeJS:
		return "application/javascript; charset=utf-8"
	case bundler.ModeCSS:
		return "text/css; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

func withSlash(base string) string {
	if strings.HasSuffix(base, "/") {
		return base
	}
	return base + "/"
}
