package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/repobubbles/pkg/buildinfo"
	"github.com/matzehuels/repobubbles/pkg/diagram"
	errs "github.com/matzehuels/repobubbles/pkg/errors"
	"github.com/matzehuels/repobubbles/pkg/pipeline"
)

// contentTypes maps output formats to response content types.
var contentTypes = map[string]string{
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatPNG:  "image/png",
	pipeline.FormatPDF:  "application/pdf",
	pipeline.FormatJSON: "application/json",
}

// =============================================================================
// Health
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

// =============================================================================
// Projects
// =============================================================================

// handleCreateProject allocates a fresh project id.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	s.project(id)
	writeJSON(w, http.StatusCreated, map[string]string{"project": id})
}

// handleDeleteProject drops the project's engine and its snapshot.
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}

	if err := s.forget(r.Context(), id); err != nil {
		s.sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Layout
// =============================================================================

// handleLayout lays out the tree in the request body and returns the diagram.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	opts, err := s.options(r, id)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	root, err := pipeline.LoadTree(r.Context(), s.source(w, r))
	if err != nil {
		s.sendError(w, r, err)
		return
	}

	l, err := s.layout(r.Context(), id, root, opts)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendLayout(w, r, l)
}

// handleGetLayout returns the project's most recent layout.
func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	l, err := s.lastLayout(id)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendLayout(w, r, l)
}

func (s *Server) sendLayout(w http.ResponseWriter, r *http.Request, l diagram.Layout) {
	data, err := diagram.Marshal(l)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// =============================================================================
// Render
// =============================================================================

// handleRender draws one format. With a body, the tree is laid out first;
// without one, the project's most recent layout is drawn.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	opts, err := s.options(r, id)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		s.sendError(w, r, err)
		return
	}
	opts.Formats = []string{format}

	var l diagram.Layout
	if r.ContentLength == 0 {
		l, err = s.lastLayout(id)
	} else {
		root, loadErr := pipeline.LoadTree(r.Context(), s.source(w, r))
		if loadErr != nil {
			s.sendError(w, r, loadErr)
			return
		}
		l, err = s.layout(r.Context(), id, root, opts)
	}
	if err != nil {
		s.sendError(w, r, err)
		return
	}

	artifacts, hit, err := s.runner.RenderWithCacheInfo(r.Context(), l, opts)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(artifacts[format])
}

// =============================================================================
// Request parsing
// =============================================================================

func projectID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "project")
	if err := errs.ValidateProjectID(id); err != nil {
		return "", err
	}
	return id, nil
}

// source reads the request body as a tree. Plain text bodies and
// ?input=lines are "path:count" lines; anything else is tree JSON.
func (s *Server) source(w http.ResponseWriter, r *http.Request) pipeline.Source {
	lines := r.URL.Query().Get("input") == "lines" ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain")
	return pipeline.Source{
		Path:  pipeline.StdinPath,
		Lines: lines,
		Stdin: http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes),
	}
}

// options merges query parameters over the server defaults.
func (s *Server) options(r *http.Request, id string) (pipeline.Options, error) {
	opts := s.cfg.Defaults
	opts.Project = id
	opts.Formats = nil
	q := r.URL.Query()

	floatParam := func(name string, dst *float64) error {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return errs.New(errs.ErrCodeInvalidInput, "invalid %s: %q", name, v)
			}
			*dst = f
		}
		return nil
	}
	boolParam := func(name string, dst *bool) error {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errs.New(errs.ErrCodeInvalidInput, "invalid %s: %q", name, v)
			}
			*dst = b
		}
		return nil
	}

	for _, err := range []error{
		floatParam("width", &opts.Width),
		floatParam("height", &opts.Height),
		floatParam("scale", &opts.Scale),
		boolParam("refresh", &opts.Refresh),
		boolParam("legend", &opts.Legend),
		boolParam("glow", &opts.Glow),
		boolParam("detailed", &opts.Detailed),
	} {
		if err != nil {
			return opts, err
		}
	}
	if v := q.Get("max_depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, errs.New(errs.ErrCodeInvalidInput, "invalid max_depth: %q", v)
		}
		opts.MaxDepth = n
	}
	if v := q.Get("viz_type"); v != "" {
		opts.VizType = v
	}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		return opts, err
	}
	return opts, nil
}

// =============================================================================
// Responses
// =============================================================================

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) sendError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := string(errs.GetCode(err))
	if code == "" {
		code = string(errs.ErrCodeInternal)
	}
	msg := errs.UserMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", requestIDFrom(r.Context()), "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code, RequestID: requestIDFrom(r.Context())})
}

// statusFor maps error codes to HTTP statuses.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidFormat, errs.ErrCodeInvalidLayout,
		errs.ErrCodeInvalidConfig, errs.ErrCodeInvalidPath, errs.ErrCodeInvalidProject:
		return http.StatusBadRequest
	case errs.ErrCodeNotFound, errs.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errs.ErrCodeBackend:
		return http.StatusServiceUnavailable
	case errs.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
