// Package server exposes the pipeline over a JSON HTTP API.
//
// Routes:
//
//	GET    /healthz
//	POST   /v1/solve
//	POST   /v1/sweep
//	POST   /v1/specs             commit a pose, or upload a spec
//	GET    /v1/specs
//	GET    /v1/specs/{id}
//	GET    /v1/specs/{id}/graph  ?format=dot|svg&detailed=true
//	DELETE /v1/specs/{id}
//
// Every request solves with fresh state; the server shares only the
// runner's config and cache between requests.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/legsim/pkg/buildinfo"
	legerr "github.com/matzehuels/legsim/pkg/errors"
	"github.com/matzehuels/legsim/pkg/geomspec"
	"github.com/matzehuels/legsim/pkg/httputil"
	legio "github.com/matzehuels/legsim/pkg/io"
	"github.com/matzehuels/legsim/pkg/kinematics"
	"github.com/matzehuels/legsim/pkg/observability"
	"github.com/matzehuels/legsim/pkg/pipeline"
	"github.com/matzehuels/legsim/pkg/store"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Server serves the API.
type Server struct {
	runner *pipeline.Runner
	store  store.Store
	logger *log.Logger
	router chi.Router
}

// New wires the routes. A nil logger discards output.
func New(runner *pipeline.Runner, st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s := &Server{runner: runner, store: st, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	// outermost first: observe sees the 500 written by Recoverer
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/solve", s.solve)
		r.Post("/sweep", s.sweep)
		r.Route("/specs", func(r chi.Router) {
			r.Post("/", s.createSpec)
			r.Get("/", s.listSpecs)
			r.Get("/{id}", s.getSpec)
			r.Get("/{id}/graph", s.graph)
			r.Delete("/{id}", s.deleteSpec)
		})
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// observe logs each request and reports it to the HTTP hooks.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		dur := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, dur)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", status,
			"duration", dur, "request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := httputil.WriteError(w, err)
	observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		return
	}
	s.logger.Debug("request rejected", "path", r.URL.Path, "code", legerr.GetCode(err))
}

type healthResponse struct {
	Status   string         `json:"status"`
	Build    buildinfo.Info `json:"build"`
	Geometry string         `json:"geometry"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Build:    buildinfo.Get(),
		Geometry: s.runner.GeometryHash(),
	})
}

func (s *Server) solve(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := httputil.DecodeJSON(r, &opts); err != nil {
		s.fail(w, r, err)
		return
	}
	res, hit, err := s.runner.SolveWithCacheInfo(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	setCache(w, hit)
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) sweep(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.SweepOptions
	if err := httputil.DecodeJSON(r, &opts); err != nil {
		s.fail(w, r, err)
		return
	}
	rep, hit, err := s.runner.SweepWithCacheInfo(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	setCache(w, hit)
	httputil.WriteJSON(w, http.StatusOK, rep)
}

// createRequest either commits a pose (Angles, Clamp) or uploads Spec.
type createRequest struct {
	Name   string                       `json:"name,omitempty"`
	Angles map[string]kinematics.Angles `json:"angles,omitempty"`
	Clamp  bool                         `json:"clamp,omitempty"`
	Spec   json.RawMessage              `json:"spec,omitempty"`
}

type specResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Spec      *geomspec.Spec    `json:"spec"`
	Poses     geomspec.PoseDump `json:"poses,omitempty"`
}

func (s *Server) createSpec(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	rec := &store.Record{Name: req.Name}
	if len(req.Spec) > 0 {
		if len(req.Angles) > 0 {
			s.fail(w, r, legerr.New(legerr.ErrCodeInvalidInput, "give either a spec or angles, not both"))
			return
		}
		spec, err := legio.UnmarshalSpec(req.Spec)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		rec.Spec = spec
	} else {
		c, err := s.runner.Commit(r.Context(), pipeline.Options{Angles: req.Angles, Clamp: req.Clamp})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		rec.Spec, rec.Poses = c.Spec, c.Poses
	}
	if err := s.store.Save(r.Context(), rec); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("spec saved", "id", rec.ID, "name", rec.Name)
	w.Header().Set("Location", "/v1/specs/"+rec.ID)
	httputil.WriteJSON(w, http.StatusCreated, toResponse(rec))
}

func (s *Server) listSpecs(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []store.Summary{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"specs": list})
}

func (s *Server) getSpec(w http.ResponseWriter, r *http.Request) {
	rec, err := s.load(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(rec))
}

func (s *Server) graph(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	detailed, _ := strconv.ParseBool(r.URL.Query().Get("detailed"))
	if err := pipeline.ValidateFormat(format); err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.load(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := s.runner.Graph(rec.Spec, format, detailed)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ct := "image/svg+xml"
	if format == pipeline.FormatDOT {
		ct = "text/vnd.graphviz"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) deleteSpec(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.fail(w, r, notFound(err, id))
		return
	}
	s.logger.Info("spec deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) load(r *http.Request) (*store.Record, error) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.Load(r.Context(), id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return rec, nil
}

func notFound(err error, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return legerr.Wrap(legerr.ErrCodeNotFound, err, "spec %q", id)
	}
	return err
}

func toResponse(rec *store.Record) specResponse {
	return specResponse{ID: rec.ID, Name: rec.Name, CreatedAt: rec.CreatedAt, Spec: rec.Spec, Poses: rec.Poses}
}

func setCache(w http.ResponseWriter, hit bool) {
	if hit {
		w.Header().Set("X-Cache", "hit")
		return
	}
	w.Header().Set("X-Cache", "miss")
}
