package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DavidWHallberg/iotlab-topologies/pkg/buildinfo"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/cache"
	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/loader"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/observability"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/render/nodelink"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/selection"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/store"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/sweep"
)

// TTLRender is the cache lifetime of a rendered topology. Renders are keyed
// by sweep ID, so a new sweep never hits a stale entry.
const TTLRender = 7 * 24 * time.Hour

// server serves stored sweep results over HTTP.
type server struct {
	loader *loader.Loader
	store  store.Store
	cache  cache.Cache
	keyer  cache.Keyer
	logger *log.Logger
}

// tableResponse is the JSON form of a ranked result table.
type tableResponse struct {
	ID        string             `json:"id"`
	Site      string             `json:"site"`
	Name      string             `json:"name"`
	Created   time.Time          `json:"created"`
	Kappa     selection.Kappa    `json:"kappa"`
	Margin    float64            `json:"margin"`
	BackEdges bool               `json:"backedges"`
	Reduced   bool               `json:"reduced"`
	Total     int                `json:"total"`
	Failures  int                `json:"failures"`
	Rows      []selection.Record `json:"rows"`
}

type errorResponse struct {
	Code  apperr.Code `json:"code,omitempty"`
	Error string      `json:"error"`
}

// routes builds the HTTP handler.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/results/{site}/{name}", s.results)
	r.Get("/topologies/{site}/{name}/{rank}.{format}", s.topology)
	return r
}

// observe logs each request and reports it to the server hooks.
func (s *server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		observability.Server().OnRequest(r.Context(), r.Method, route, status, elapsed)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", status,
			"elapsed", elapsed.Round(time.Microsecond), "id", middleware.GetReqID(r.Context()))
	})
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *server) results(w http.ResponseWriter, r *http.Request) {
	site, name := chi.URLParam(r, "site"), chi.URLParam(r, "name")
	count := 0
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(w, apperr.New(apperr.ErrCodeInvalidInput, "invalid count %q", v))
			return
		}
		count = n
	}

	tbl, err := s.store.Latest(r.Context(), site, name)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tableResponse{
		ID:        tbl.ID.String(),
		Site:      site,
		Name:      name,
		Created:   tbl.Created,
		Kappa:     tbl.Kappa,
		Margin:    tbl.Margin,
		BackEdges: tbl.BackEdges,
		Reduced:   tbl.Reduce,
		Total:     len(tbl.Rows),
		Failures:  len(tbl.Failures),
		Rows:      tbl.Rank(count),
	})
}

// topology renders the rank-th best topology (1-based) of the latest sweep.
func (s *server) topology(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	site, name := chi.URLParam(r, "site"), chi.URLParam(r, "name")
	format := chi.URLParam(r, "format")
	if err := nodelink.ValidateFormat(format); err != nil {
		s.fail(w, err)
		return
	}
	rank, err := strconv.Atoi(chi.URLParam(r, "rank"))
	if err != nil || rank < 1 {
		s.fail(w, apperr.New(apperr.ErrCodeInvalidInput, "invalid rank %q", chi.URLParam(r, "rank")))
		return
	}

	tbl, err := s.store.Latest(ctx, site, name)
	if err != nil {
		s.fail(w, err)
		return
	}
	ranked := tbl.Rank(rank)
	if len(ranked) < rank {
		s.fail(w, apperr.New(apperr.ErrCodeNotFound, "sweep has %d rows, no rank %d", len(ranked), rank))
		return
	}

	key := s.keyer.RenderKey(tbl.ID.String(), rank, format)
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("render cache", "err", err)
	}
	if ok {
		observability.Cache().OnCacheHit(ctx, "render")
	} else {
		observability.Cache().OnCacheMiss(ctx, "render")
		data, err = s.render(ctx, site, name, ranked[rank-1], format)
		if err != nil {
			s.fail(w, err)
			return
		}
		if err := s.cache.Set(ctx, key, data, TTLRender); err != nil {
			s.logger.Warn("render cache", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "render", len(data))
		}
	}

	w.Header().Set("Content-Type", contentTypes[format])
	_, _ = w.Write(data)
}

var contentTypes = map[string]string{
	nodelink.FormatSVG: "image/svg+xml",
	nodelink.FormatPNG: "image/png",
	nodelink.FormatDOT: "text/vnd.graphviz; charset=utf-8",
}

// render recomputes rec with the settings it was swept with.
func (s *server) render(ctx context.Context, site, name string, rec selection.Record, format string) ([]byte, error) {
	res, err := s.loader.Load(ctx, site, name, false)
	if err != nil {
		return nil, err
	}
	opts := replayOptions(rec, sweep.DefaultConfig().RunOptions())
	_, x, err := selection.Run(ctx, res.Graph, rec.Bound, rec.Root, opts)
	if err != nil {
		return nil, err
	}
	dot := nodelink.ToDOT(x.Structure, nodelink.Options{
		Root:   rec.Root,
		Depths: true,
		Title:  site + " " + name + " bound " + rec.Bound.String(),
	})
	return nodelink.Render(ctx, dot, format)
}

// fail writes err as JSON with the status of its code.
func (s *server) fail(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{Code: apperr.GetCode(err), Error: apperr.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
