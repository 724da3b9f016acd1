// Package server exposes the composed schema and runtime state over HTTP.
// The GraphQL execution engine itself is an external consumer: it reads the
// composed SDL from this surface and calls back into the Router for fields.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	eventbus "github.com/hageln/forgext/internal/eventbus"
	events "github.com/hageln/forgext/internal/events"
	registry "github.com/hageln/forgext/internal/registry"
	reqid "github.com/hageln/forgext/internal/reqid"
	router "github.com/hageln/forgext/internal/router"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// Debug enables the debug resolution endpoint.
	Debug bool
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithDebug(enable bool) Option       { return func(o *Options) { o.Debug = enable } }

// Handler serves the runtime's HTTP surface.
type Handler struct {
	reg *registry.Registry
	rt  *router.Router
	opt Options
	mux *chi.Mux
}

// New builds the HTTP surface over a frozen registry and its router.
func New(reg *registry.Registry, rt *router.Router, opts ...Option) *Handler {
	op := Options{Timeout: 30 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	h := &Handler{reg: reg, rt: rt, opt: op}

	mux := chi.NewRouter()
	mux.Use(h.events)
	mux.Get("/graphql/schema", h.handleSchema)
	mux.Get("/debug/ownership", h.handleOwnership)
	if op.Debug {
		mux.Post("/debug/resolve", h.handleResolve)
	}
	mux.Get("/healthz", h.handleHealthz)
	mux.Method(http.MethodGet, "/metrics", promhttp.Handler())
	h.mux = mux
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// events publishes HTTPStart/HTTPFinish around each request and tags the
// context with a request ID.
func (h *Handler) events(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
			defer cancel()
		}
		ctx, _ = reqid.NewContext(ctx)
		r = r.WithContext(ctx)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		eventbus.Publish(ctx, events.HTTPStart{Request: r})
		defer func() {
			eventbus.Publish(ctx, events.HTTPFinish{
				Request:  r,
				Status:   ww.Status(),
				Duration: time.Since(start),
			})
		}()
		next.ServeHTTP(ww, r)
	})
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/graphql; charset=utf-8")
	_, _ = w.Write([]byte(h.reg.ComposedSDL()))
}

func (h *Handler) handleOwnership(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.reg.OwnershipReport())
}

type resolveRequest struct {
	Type  string          `json:"type"`
	Field string          `json:"field"`
	Args  json.RawMessage `json:"args,omitempty"`
}

type resolveResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error *resolveError   `json:"error,omitempty"`
}

type resolveError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, resolveResponse{
			Error: &resolveError{Kind: "BadRequest", Message: "invalid JSON body"},
		})
		return
	}
	if req.Type == "" || req.Field == "" {
		h.writeJSON(w, http.StatusBadRequest, resolveResponse{
			Error: &resolveError{Kind: "BadRequest", Message: "missing 'type' or 'field'"},
		})
		return
	}
	args := req.Args
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	data, err := h.rt.Resolve(r.Context(), req.Type, req.Field, args)
	if err != nil {
		status := http.StatusBadGateway
		kind := string(router.ResolutionFailed)
		var rerr *router.ResolutionError
		if errors.As(err, &rerr) {
			kind = string(rerr.Kind)
			switch rerr.Kind {
			case router.UnknownField:
				status = http.StatusNotFound
			case router.ExtensionUnavailable:
				status = http.StatusServiceUnavailable
			}
		}
		h.writeJSON(w, status, resolveResponse{
			Error: &resolveError{Kind: kind, Message: err.Error()},
		})
		return
	}
	h.writeJSON(w, http.StatusOK, resolveResponse{Data: data})
}

type healthResponse struct {
	Status     string   `json:"status"`
	Extensions []string `json:"extensions"`
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		Extensions: h.reg.Extensions(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}
