// Package server exposes the layout pipeline over HTTP.
//
// Each project keeps one engine in memory so that successive layouts of a
// changing tree start from the previous positions. Passes on one project
// are serialized; different projects run concurrently. After every pass the
// engine's positions are saved as the project's snapshot, so a restarted
// server continues where the last one stopped.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/repobubbles/pkg/diagram"
	"github.com/matzehuels/repobubbles/pkg/engine"
	errs "github.com/matzehuels/repobubbles/pkg/errors"
	"github.com/matzehuels/repobubbles/pkg/pipeline"
	"github.com/matzehuels/repobubbles/pkg/tree"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 32 << 20

// Config configures a Server.
type Config struct {
	// Addr is the listen address for ListenAndServe.
	Addr string

	// Defaults supplies canvas and drawing options that requests do not
	// override.
	Defaults pipeline.Options

	// MaxBodyBytes bounds request bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Server is the HTTP API.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
	cfg    Config

	mu       sync.Mutex
	projects map[string]*project
}

// project is the in-memory state of one project. mu serializes passes.
type project struct {
	mu   sync.Mutex
	eng  *engine.Engine
	last *diagram.Layout
	// gone is set under mu once the project was deleted. Holders of a stale
	// pointer must look the project up again.
	gone bool
}

// New creates a server around runner.
func New(runner *pipeline.Runner, logger *log.Logger, cfg Config) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	cfg.Defaults.Logger = logger
	return &Server{
		runner:   runner,
		logger:   logger,
		cfg:      cfg,
		projects: make(map[string]*project),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(metricsMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metricsHandler())

	r.Route("/v1/projects", func(r chi.Router) {
		r.Post("/", s.handleCreateProject)
		r.Route("/{project}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteProject)
			r.Get("/layout", s.handleGetLayout)
			r.Post("/layout", s.handleLayout)
			r.Post("/render", s.handleRender)
		})
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// =============================================================================
// Projects
// =============================================================================

func (s *Server) project(id string) *project {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		p = &project{}
		s.projects[id] = p
		projectsActive.Set(float64(len(s.projects)))
	}
	return p
}

func (s *Server) lookup(id string) (*project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	return p, ok
}

// acquire returns the live project for id with its lock held.
func (s *Server) acquire(id string) *project {
	for {
		p := s.project(id)
		p.mu.Lock()
		if !p.gone {
			return p
		}
		p.mu.Unlock()
	}
}

// forget deletes the project's snapshot and then drops the project. The
// project stays registered and locked until the snapshot is gone, so a
// concurrent pass either finishes before the delete or starts afterwards
// on a fresh project.
func (s *Server) forget(ctx context.Context, id string) error {
	p := s.acquire(id)
	defer p.mu.Unlock()

	if err := s.runner.DeleteSnapshot(ctx, id); err != nil {
		return err
	}
	p.eng, p.last, p.gone = nil, nil, true

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projects[id] == p {
		delete(s.projects, id)
	}
	projectsActive.Set(float64(len(s.projects)))
	return nil
}

// layout runs one pass of the project's engine over root. The engine is
// built on first use, on refresh, and when the canvas changes.
func (s *Server) layout(ctx context.Context, id string, root *tree.Node, opts pipeline.Options) (diagram.Layout, error) {
	p := s.acquire(id)
	defer p.mu.Unlock()

	if opts.IsNodelink() {
		l, _, err := s.runner.LayoutWith(ctx, nil, root, opts)
		if err == nil {
			p.last = &l
		}
		return l, err
	}

	if p.eng == nil || opts.Refresh || !sameCanvas(p.eng.Config(), opts) {
		eng, found := s.runner.NewEngine(ctx, opts)
		s.logger.Debug("engine created", "project", id, "snapshot", found)
		p.eng = eng
	}

	l, _, err := s.runner.LayoutWith(ctx, p.eng, root, opts)
	if err != nil {
		return diagram.Layout{}, err
	}
	if _, err := s.runner.SaveSnapshot(ctx, id, p.eng.Cache()); err != nil {
		s.logger.Warn("could not save position snapshot", "project", id, "error", err)
	}
	p.last = &l
	return l, nil
}

func sameCanvas(cfg engine.Config, opts pipeline.Options) bool {
	return cfg.Pack.Width == opts.Width && cfg.Pack.Height == opts.Height
}

// lastLayout returns the project's most recent layout.
func (s *Server) lastLayout(id string) (diagram.Layout, error) {
	p, ok := s.lookup(id)
	if ok {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.last != nil {
			return *p.last, nil
		}
	}
	return diagram.Layout{}, errs.New(errs.ErrCodeNotFound, "project %s has no layout", id)
}
