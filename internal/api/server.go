// Package api serves the proximity engine over HTTP.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/proximity-cli/internal/analysis"
	"github.com/sells-group/proximity-cli/internal/model"
	"github.com/sells-group/proximity-cli/internal/projects"
	"github.com/sells-group/proximity-cli/internal/store"
)

// Options configures a Server.
type Options struct {
	// Datasets are resolved once and shared read-only by every request.
	Datasets analysis.Datasets
	Engine   analysis.Engine
	// Projects is optional; without it the project routes answer 503.
	Projects projects.Source
	// Store is optional; without it runs are never recorded.
	Store store.Store

	RadiusKM     float64
	ScanRadiusKM float64
	ListLimit    int
	CORSOrigins  []string
}

// Server holds the shared state of the HTTP API.
type Server struct {
	opts Options

	mu       sync.Mutex
	registry *projects.Registry
}

// New creates a Server, filling unset defaults.
func New(opts Options) *Server {
	if opts.RadiusKM <= 0 {
		opts.RadiusKM = 20
	}
	if opts.ScanRadiusKM <= 0 {
		opts.ScanRadiusKM = analysis.DefaultScanRadiusKM
	}
	if opts.ListLimit <= 0 {
		opts.ListLimit = 80
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.Datasets == nil {
		opts.Datasets = analysis.Datasets{}
	}
	return &Server{opts: opts}
}

// Handler returns the router for all API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/analysis", s.handleAnalysis)
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleProjects)
			r.Get("/{name}", s.handleProject)
			r.Get("/{name}/analysis", s.handleProjectAnalysis)
			r.Get("/{name}/scan", s.handleProjectScan)
		})
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleRuns)
			r.Get("/{id}", s.handleRun)
		})
	})
	return r
}

// projectRegistry loads the registry on first use and keeps it. A failed
// load is retried on the next request.
func (s *Server) projectRegistry(ctx context.Context) (*projects.Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registry != nil {
		return s.registry, nil
	}
	reg, err := s.opts.Projects.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.registry = reg
	return reg, nil
}

// analyze runs the engine and records the run when asked to.
func (s *Server) analyze(ctx context.Context, subject model.Subject, radiusKM float64, record bool) (*model.ResultBundle, string) {
	bundle := s.opts.Engine.Run(subject, radiusKM, s.opts.Datasets)
	zap.L().Info("api: analysis complete",
		zap.String("subject", subject.Name),
		zap.Float64("radius_km", radiusKM),
		zap.Int("total", bundle.Total()),
	)

	if !record {
		return bundle, ""
	}
	run := model.NewAnalysisRun(bundle)
	if err := s.opts.Store.CreateRun(ctx, &run); err != nil {
		zap.L().Warn("api: record run failed", zap.Error(err))
		return bundle, ""
	}
	return bundle, run.ID
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
