package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokedex/internal/audit"
	"pokedex/internal/observability"
	"pokedex/internal/testutil"
	"pokedex/internal/upstream"
)

// brokenLog is a lookup log whose reads fail.
type brokenLog struct {
	*audit.MemoryLookupLogger
}

func (brokenLog) List(context.Context, audit.ListOptions) ([]*audit.LookupEvent, int, error) {
	return nil, 0, errors.New("database is locked")
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	h.createPage("/")

	rr := h.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[map[string]any](t, rr)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["active_pages"])
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))
}

func TestReadyz(t *testing.T) {
	h := newHarness(t)

	rr := h.do(http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, ReadinessResponse{Status: "ok", Checks: map[string]string{"upstream": "ok", "lookup_log": "ok"}},
		decode[ReadinessResponse](t, rr))

	h.stub.SetStatus(http.StatusInternalServerError)
	rr = h.do(http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, ReadinessResponse{Status: "unhealthy", Checks: map[string]string{"upstream": "error", "lookup_log": "ok"}},
		decode[ReadinessResponse](t, rr))
}

func TestReadyzLookupLogDown(t *testing.T) {
	stub := testutil.NewGraphQLStub(t)
	client := upstream.New(upstream.Options{Endpoint: stub.URL(), Logger: observability.Nop()})
	mux := http.NewServeMux()
	srv := NewServer(mux, client, observability.Nop(), nil, brokenLog{audit.NewMemoryLookupLogger()})
	srv.RegisterRoutes()
	t.Cleanup(srv.Pages().Close)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, ReadinessResponse{Status: "unhealthy", Checks: map[string]string{"upstream": "ok", "lookup_log": "error"}},
		decode[ReadinessResponse](t, rr))
}

func TestOpenAPISpec(t *testing.T) {
	h := newHarness(t)

	rr := h.do(http.MethodGet, "/openapi.yaml", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/yaml", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "openapi: 3."))
	assert.Contains(t, rr.Body.String(), "/api/v1/pages/{id}/events")
}

func TestStaticAssets(t *testing.T) {
	h := newHarness(t)

	rr := h.do(http.MethodGet, "/static/app.js", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "javascript")
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
	assert.Contains(t, rr.Body.String(), "/api/v1/pages")

	rr = h.do(http.MethodGet, "/static/style.css", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/css")

	rr = h.do(http.MethodGet, "/static/missing.js", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestScriptReleasesPageOnHide(t *testing.T) {
	h := newHarness(t)

	rr := h.do(http.MethodGet, "/static/app.js", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	script := rr.Body.String()
	assert.Contains(t, script, `addEventListener("pagehide"`)
	assert.Contains(t, script, `method: "DELETE", keepalive: true`)

	// The request the script sends frees the session the index page made.
	result := byID(parseHTML(t, h.do(http.MethodGet, "/", nil).Body.String()), "result")
	require.NotNil(t, result)
	require.Equal(t, 1, h.srv.Pages().Count())
	rr = h.do(http.MethodDelete, "/api/v1/pages/"+attr(result, "data-page-id"), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Zero(t, h.srv.Pages().Count())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, testutil.Pikachu())
	h.do(http.MethodGet, "/api/v1/pokemon/Pikachu", nil)
	h.do(http.MethodGet, "/api/v1/pokemon/Nonexistentmon", nil)

	rr := h.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `pokedex_lookups_total{outcome="found"} 1`)
	assert.Contains(t, body, `pokedex_lookups_total{outcome="not_found"} 1`)
	assert.Contains(t, body, "# TYPE pokedex_active_pages gauge")
}

func TestMetricsRouteNeedsMetrics(t *testing.T) {
	mux := http.NewServeMux()
	srv := NewServer(mux, nil, observability.Nop(), nil, nil)
	srv.RegisterRoutes()
	t.Cleanup(srv.Pages().Close)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
