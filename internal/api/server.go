// Package api serves the search and detail pages, the page session API and
// the JSON lookup API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"pokedex/internal/audit"
	"pokedex/internal/domain"
	"pokedex/internal/lookup"
	"pokedex/internal/observability"
	"pokedex/internal/page"
)

// Default wait windows.
const (
	DefaultPollWait   = 20 * time.Second
	DefaultRenderWait = 5 * time.Second
)

// Upstream is the remote lookup service the server depends on.
type Upstream interface {
	lookup.Source
	Ping(ctx context.Context) error
}

type apiError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type Server struct {
	mux        *http.ServeMux
	upstream   Upstream
	pages      *page.MemoryStore
	logger     observability.Logger
	base       observability.Logger
	metrics    *observability.Metrics
	lookups    audit.LookupLogger
	render     *renderer
	pollWait   time.Duration
	renderWait time.Duration
}

// NewServer creates a new HTTP server with the given dependencies.
// If logger is nil, a default logger will be used.
// If metrics is nil, metrics collection is disabled.
// If lookups is nil, a memory-based lookup log will be used.
func NewServer(mux *http.ServeMux, upstream Upstream, logger observability.Logger, metrics *observability.Metrics, lookups audit.LookupLogger) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	if lookups == nil {
		lookups = audit.NewMemoryLookupLogger()
	}
	return &Server{
		mux:        mux,
		upstream:   upstream,
		pages:      page.NewMemoryStore(page.DefaultIdleTTL),
		logger:     logger.WithComponent("api"),
		base:       logger,
		metrics:    metrics,
		lookups:    lookups,
		render:     mustRenderer(),
		pollWait:   DefaultPollWait,
		renderWait: DefaultRenderWait,
	}
}

// SetPageStore replaces the page session store.
func (s *Server) SetPageStore(store *page.MemoryStore) { s.pages = store }

// SetPollWait sets how long a view long-poll waits for a change.
func (s *Server) SetPollWait(d time.Duration) { s.pollWait = d }

// SetRenderWait sets how long a server-rendered search page waits for its
// lookup before rendering the loading view.
func (s *Server) SetRenderWait(d time.Duration) { s.renderWait = d }

// Pages returns the page session store.
func (s *Server) Pages() *page.MemoryStore { return s.pages }

// RegisterRoutes registers every route on the server's mux.
func (s *Server) RegisterRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /pokemon/{name}", s.handleDetail)
	s.mux.Handle("GET /static/", s.handleStatic())

	s.mux.HandleFunc("POST /api/v1/pages", s.handleCreatePage)
	s.mux.HandleFunc("POST /api/v1/pages/{id}/events", s.handlePageEvent)
	s.mux.HandleFunc("GET /api/v1/pages/{id}/view", s.handlePageView)
	s.mux.HandleFunc("DELETE /api/v1/pages/{id}", s.handleDeletePage)
	s.mux.HandleFunc("GET /api/v1/pokemon/{name}", s.handlePokemon)
	s.mux.HandleFunc("GET /api/v1/lookups", s.handleLookupList)

	s.mux.HandleFunc("GET /openapi.yaml", s.handleOpenAPISpec)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

func (s *Server) writeErr(ctx context.Context, w http.ResponseWriter, code int, msg string, detail string) {
	fields := []any{
		"status", code,
		"error", msg,
	}
	if detail != "" {
		fields = append(fields, "detail", detail)
	}
	if code >= 500 {
		s.logger.ErrorContext(ctx, "request failed", fields...)
		hub := sentry.GetHubFromContext(ctx)
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		hub.CaptureMessage(fmt.Sprintf("HTTP %d: %s (detail: %s)", code, msg, detail))
	} else {
		s.logger.WarnContext(ctx, "request failed", fields...)
	}
	writeJSON(w, code, apiError{Error: msg, Detail: detail})
}

// writePageErr maps a page session error to the appropriate HTTP status code.
func (s *Server) writePageErr(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, page.ErrSessionNotFound):
		s.writeErr(ctx, w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, page.ErrSessionExpired):
		s.writeErr(ctx, w, http.StatusGone, err.Error(), "")
	default:
		s.writeErr(ctx, w, http.StatusBadRequest, "invalid event", err.Error())
	}
}

// lookupDirect fetches name without a controller, as the detail page and
// the JSON lookup do, and records the outcome.
func (s *Server) lookupDirect(ctx context.Context, name, source string) (*domain.Pokemon, error) {
	start := time.Now()
	rec, err := s.upstream.PokemonByName(ctx, name)
	out := lookup.Outcome{
		Term:     name,
		Status:   lookup.Status{Kind: lookup.KindSettled, Term: name, Record: rec},
		Err:      err,
		Duration: time.Since(start),
	}
	if err != nil {
		out.Status = lookup.Status{Kind: lookup.KindError, Term: name, Message: err.Error()}
	}
	s.recordOutcome(ctx, out, source, "")
	return rec, err
}

// settleHook records the outcomes of a page session's controller.
func (s *Server) settleHook(pageID string) lookup.Option {
	return lookup.WithOnSettle(func(out lookup.Outcome) {
		s.recordOutcome(context.Background(), out, audit.SourceSearch, pageID)
	})
}

func (s *Server) recordOutcome(ctx context.Context, out lookup.Outcome, source, pageID string) {
	ev := audit.NewEvent(out, source, pageID)
	ev.RequestID = observability.RequestIDFromContext(ctx)
	s.metrics.RecordLookup(ev.Outcome)
	if err := s.lookups.Log(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.WarnContext(ctx, "lookup log write failed", "term", out.Term, "error", err)
	}
}

func (s *Server) updateActivePages() {
	s.metrics.SetActivePages(s.pages.Count())
}

// trimmedPathValue returns the named path parameter without surrounding
// whitespace.
func trimmedPathValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PathValue(key))
}
