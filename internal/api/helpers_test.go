package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pokedex/internal/audit"
	"pokedex/internal/domain"
	"pokedex/internal/observability"
	"pokedex/internal/page"
	"pokedex/internal/testutil"
	"pokedex/internal/upstream"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// harness is a fully wired server talking to a GraphQL stub.
type harness struct {
	t       *testing.T
	stub    *testutil.GraphQLStub
	srv     *Server
	lookups *audit.MemoryLookupLogger
	metrics *observability.Metrics
	handler http.Handler
}

func newHarness(t *testing.T, records ...*domain.Pokemon) *harness {
	t.Helper()
	stub := testutil.NewGraphQLStub(t, records...)
	client := upstream.New(upstream.Options{
		Endpoint: stub.URL(),
		Logger:   observability.Nop(),
	})
	metrics := observability.NewMetrics(observability.DefaultMetricsConfig())
	lookups := audit.NewMemoryLookupLogger()

	mux := http.NewServeMux()
	srv := NewServer(mux, client, observability.Nop(), metrics, lookups)
	srv.SetPollWait(2 * time.Second)
	srv.SetRenderWait(2 * time.Second)
	srv.RegisterRoutes()
	t.Cleanup(srv.Pages().Close)

	return &harness{
		t:       t,
		stub:    stub,
		srv:     srv,
		lookups: lookups,
		metrics: metrics,
		handler: ApplyMiddlewares(mux, RequestIDMiddleware(), LoggingMiddleware(newTestLogger())),
	}
}

func (h *harness) do(method, target string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)
	return rr
}

func (h *harness) doRaw(method, target string, body io.Reader) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, target, body)
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func (h *harness) createPage(url string) pagePayload {
	h.t.Helper()
	rr := h.do(http.MethodPost, "/api/v1/pages", map[string]string{"url": url})
	require.Equal(h.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[pagePayload](h.t, rr)
}

func (h *harness) event(id string, typ page.EventType, value string) pagePayload {
	h.t.Helper()
	rr := h.do(http.MethodPost, "/api/v1/pages/"+id+"/events", page.Event{Type: typ, Value: value})
	require.Equal(h.t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[pagePayload](h.t, rr)
}

func (h *harness) poll(id string, after uint64) pagePayload {
	h.t.Helper()
	rr := h.do(http.MethodGet, "/api/v1/pages/"+id+"/view?after="+strconv.FormatUint(after, 10), nil)
	require.Equal(h.t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[pagePayload](h.t, rr)
}

// settle long-polls until the page leaves the loading view.
func (h *harness) settle(p pagePayload) pagePayload {
	h.t.Helper()
	for range 10 {
		if p.View.Kind != "loading" {
			return p
		}
		p = h.poll(p.ID, p.Version)
	}
	h.t.Fatalf("page %s still loading", p.ID)
	return p
}

// waitForOutcome waits until the lookup log holds an event with outcome.
func (h *harness) waitForOutcome(outcome string) *audit.LookupEvent {
	h.t.Helper()
	var found *audit.LookupEvent
	require.Eventually(h.t, func() bool {
		events, _, err := h.lookups.List(h.t.Context(), audit.ListOptions{Outcome: outcome})
		if err != nil || len(events) == 0 {
			return false
		}
		found = events[0]
		return true
	}, 3*time.Second, 10*time.Millisecond)
	return found
}

// parseHTML parses a response body as an HTML document.
func parseHTML(t *testing.T, body string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

// findAll returns every element below n matching tag and, when class is
// non-empty, carrying that class.
func findAll(n *html.Node, tag atom.Atom, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == tag && (class == "" || hasClass(n, class)) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func findOne(t *testing.T, n *html.Node, tag atom.Atom, class string) *html.Node {
	t.Helper()
	all := findAll(n, tag, class)
	require.NotEmpty(t, all, "no <%s class=%q>", tag, class)
	return all[0]
}

func byID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := byID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	return strings.Contains(" "+attr(n, "class")+" ", " "+class+" ")
}

// text returns the whitespace-collapsed text content of n.
func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

var _ Upstream = (*upstream.Client)(nil)
