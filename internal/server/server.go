// Package server is the browser front end: upload a file, inspect it and ask
// for narratives, one session per upload.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/KaramelBytes/effluent-cli/internal/analysis"
	"github.com/KaramelBytes/effluent-cli/internal/dataset"
	"github.com/KaramelBytes/effluent-cli/internal/logging"
	"github.com/KaramelBytes/effluent-cli/internal/narrative"
	"github.com/KaramelBytes/effluent-cli/internal/report"
	"github.com/KaramelBytes/effluent-cli/internal/session"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// Config holds web shell settings.
type Config struct {
	UploadMaxMB    int
	BandWidth      float64
	PreviewRows    int
	FontPath       string
	MonoFontPath   string
	ReportFilename string
	Charts         bool
	Loader         dataset.Options
}

// Server wires the session store and narrative requestor to HTTP routes.
type Server struct {
	router    *chi.Mux
	store     *session.Store
	req       narrative.Requestor
	cfg       Config
	templates *template.Template
}

// New parses the embedded templates and sets up routes.
func New(cfg Config, store *session.Store, req narrative.Requestor) (*Server, error) {
	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 50
	}
	if cfg.BandWidth <= 0 {
		cfg.BandWidth = analysis.DefaultBandWidth
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = 5
	}
	if cfg.ReportFilename == "" {
		cfg.ReportFilename = report.DefaultFilename
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s := &Server{
		router:    chi.NewRouter(),
		store:     store,
		req:       req,
		cfg:       cfg,
		templates: templates,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(accessLog)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/", s.handleIndex)
	s.router.Post("/upload", s.handleUpload)

	s.router.Route("/s/{id}", func(r chi.Router) {
		r.Get("/", s.handleDashboard)
		r.Get("/plot/{column}", s.handlePlot)
		r.Get("/report.pdf", s.handleReport)
		r.Post("/summary", s.handleSummary)
		r.Post("/question", s.handleQuestion)
		r.Post("/correlation", s.handleCorrelation)
		r.Post("/advice", s.handleAdvice)
		r.Post("/anomalies", s.handleAnomalies)
		r.Post("/end", s.handleEnd)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.Component("server").Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logging.Component("server").Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) renderTemplate(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		logging.Component("server").Error().Str("template", name).Err(err).Msg("template error")
	}
}

// accessLog writes one zerolog line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			lg := logging.Component("server")
			ev := lg.Info()
			if ww.Status() >= 500 {
				ev = lg.Error()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("session", chi.URLParam(r, "id")).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}
