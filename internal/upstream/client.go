// Package upstream is the GraphQL client for the public Pokémon API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"golang.org/x/sync/singleflight"

	"pokedex/internal/domain"
	"pokedex/internal/observability"
)

const (
	// DefaultEndpoint is the public GraphQL API.
	DefaultEndpoint = "https://graphql-pokemon2.vercel.app/"
	// DefaultCacheTTL is how long answers are reused.
	DefaultCacheTTL = 10 * time.Minute
	// DefaultListLimit is the number of names ListNames asks for when no
	// limit is given: the first generation.
	DefaultListLimit = 151
)

// Options configures a Client.
type Options struct {
	Endpoint string
	// Timeout bounds each upstream request. Zero means no local timeout.
	Timeout time.Duration
	// CacheTTL is how long successful lookups are reused. Zero disables
	// the cache.
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Logger     observability.Logger
	Metrics    *observability.Metrics
}

// Client queries the upstream GraphQL API. Concurrent lookups of the same
// name share one request. Returned records are shared between callers and
// must not be modified.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
	logger   observability.Logger
	metrics  *observability.Metrics
	cache    *responseCache
	group    singleflight.Group
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.DefaultConfig())
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NoopMetrics()
	}
	return &Client{
		endpoint: opts.Endpoint,
		timeout:  opts.Timeout,
		http:     opts.HTTPClient,
		logger:   opts.Logger.WithComponent("upstream"),
		metrics:  opts.Metrics,
		cache:    newResponseCache(opts.CacheTTL),
	}
}

// PokemonByName looks up a single Pokémon. A nil record with a nil error
// means the API has no Pokémon by that name; matching is the API's.
func (c *Client) PokemonByName(ctx context.Context, name string) (*domain.Pokemon, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	if rec, ok := c.cache.get(name); ok {
		c.logger.DebugContext(ctx, "cache hit", "name", name)
		return rec, nil
	}

	ch := c.group.DoChan(name, func() (any, error) {
		// The shared request outlives any single caller; it stops only on
		// the configured timeout.
		fctx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, c.timeout)
			defer cancel()
		}
		var data struct {
			Pokemon *domain.Pokemon `json:"pokemon"`
		}
		if err := c.query(fctx, "GetPokemonDetails", pokemonQuery, map[string]any{"name": name}, &data); err != nil {
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("term", name)
				sentry.CaptureException(err)
			})
			return nil, err
		}
		c.cache.put(name, data.Pokemon)
		return data.Pokemon, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		rec, _ := res.Val.(*domain.Pokemon)
		return rec, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ListNames returns the names of the first limit Pokémon in national dex
// order. A non-positive limit means DefaultListLimit.
func (c *Client) ListNames(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var data struct {
		Pokemons []struct {
			Name string `json:"name"`
		} `json:"pokemons"`
	}
	if err := c.query(ctx, "GetAllPokemonNames", namesQuery, map[string]any{"first": limit}, &data); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(data.Pokemons))
	for _, p := range data.Pokemons {
		names = append(names, p.Name)
	}
	return names, nil
}

// Ping checks that the API answers GraphQL requests.
func (c *Client) Ping(ctx context.Context) error {
	var data struct {
		Typename string `json:"__typename"`
	}
	return c.query(ctx, "Ping", pingQuery, nil, &data)
}

type graphQLRequest struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// query posts one GraphQL operation and decodes its data into out.
func (c *Client) query(ctx context.Context, op, query string, vars map[string]any, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.metrics.RecordUpstreamRequest(op, outcome, time.Since(start))
	}()

	body, err := json.Marshal(graphQLRequest{OperationName: op, Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &Error{Op: op, Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "upstream request failed", "op", op, "error", err)
		return &Error{Op: op, Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		c.logger.WarnContext(ctx, "upstream returned error status", "op", op, "status", resp.StatusCode)
		return &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Response not successful: Received status code %d", resp.StatusCode),
		}
	}

	var gr graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: "decode response: " + err.Error(), Err: err}
	}
	if len(gr.Errors) > 0 {
		c.logger.WarnContext(ctx, "upstream returned graphql errors", "op", op, "count", len(gr.Errors), "first", gr.Errors[0].Message)
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: gr.Errors[0].Message}
	}
	if len(gr.Data) == 0 || string(gr.Data) == "null" {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: "upstream response has no data"}
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: "decode response: " + err.Error(), Err: err}
	}
	return nil
}
