// Package testutil provides a stand-in for the upstream GraphQL API and
// record fixtures for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"pokedex/internal/domain"
)

// GraphQLStub answers the GetPokemonDetails, GetAllPokemonNames and Ping
// operations from an in-memory table.
type GraphQLStub struct {
	Server *httptest.Server

	mu       sync.Mutex
	pokemon  map[string]*domain.Pokemon
	order    []string
	failures map[string]string
	status   int
	holds    map[string]chan struct{}
	calls    map[string]int
	requests int
}

type stubRequest struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
}

// NewGraphQLStub starts a stub server that is closed when the test ends.
func NewGraphQLStub(t testing.TB, records ...*domain.Pokemon) *GraphQLStub {
	t.Helper()
	s := &GraphQLStub{
		pokemon:  make(map[string]*domain.Pokemon),
		failures: make(map[string]string),
		holds:    make(map[string]chan struct{}),
		calls:    make(map[string]int),
	}
	s.Add(records...)
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(func() {
		s.ReleaseAll()
		s.Server.Close()
	})
	return s
}

// URL is the GraphQL endpoint.
func (s *GraphQLStub) URL() string { return s.Server.URL + "/" }

// Add registers records, keyed by exact name.
func (s *GraphQLStub) Add(records ...*domain.Pokemon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range records {
		if _, ok := s.pokemon[p.Name]; !ok {
			s.order = append(s.order, p.Name)
		}
		s.pokemon[p.Name] = p
	}
}

// FailWith makes lookups of name answer with a GraphQL error carrying message.
func (s *GraphQLStub) FailWith(name, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[name] = message
}

// SetStatus makes every request answer with the given HTTP status and no
// body. Zero restores normal answers.
func (s *GraphQLStub) SetStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

// Hold blocks lookups of name until the returned release func is called.
// A second Hold on the same name releases the first.
func (s *GraphQLStub) Hold(name string) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.holds[name]; ok {
		close(old)
	}
	ch := make(chan struct{})
	s.holds[name] = ch
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.holds[name] == ch {
			delete(s.holds, name)
			close(ch)
		}
	}
}

// ReleaseAll unblocks every held lookup.
func (s *GraphQLStub) ReleaseAll() {
	s.mu.Lock()
	holds := s.holds
	s.holds = make(map[string]chan struct{})
	s.mu.Unlock()
	for _, ch := range holds {
		close(ch)
	}
}

// Calls is the number of lookups received for name.
func (s *GraphQLStub) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// Requests is the total number of requests received.
func (s *GraphQLStub) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *GraphQLStub) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req stubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests++
	status := s.status
	s.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		return
	}

	switch {
	case strings.Contains(req.Query, "__typename"):
		writeData(w, map[string]any{"__typename": "Query"})
	case strings.Contains(req.Query, "pokemons("):
		s.serveNames(w, req)
	case strings.Contains(req.Query, "pokemon("):
		s.servePokemon(w, r, req)
	default:
		writeErrors(w, "unknown operation")
	}
}

func (s *GraphQLStub) servePokemon(w http.ResponseWriter, r *http.Request, req stubRequest) {
	name, _ := req.Variables["name"].(string)

	s.mu.Lock()
	s.calls[name]++
	hold := s.holds[name]
	s.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	rec := s.pokemon[name]
	failure, failed := s.failures[name]
	s.mu.Unlock()

	if failed {
		writeErrors(w, failure)
		return
	}
	// A missing record encodes as "pokemon": null.
	writeData(w, map[string]any{"pokemon": rec})
}

func (s *GraphQLStub) serveNames(w http.ResponseWriter, req stubRequest) {
	s.mu.Lock()
	first := len(s.order)
	if f, ok := req.Variables["first"].(float64); ok && int(f) < first {
		first = max(int(f), 0)
	}
	names := make([]map[string]string, 0, first)
	for _, n := range s.order[:first] {
		names = append(names, map[string]string{"name": n})
	}
	s.mu.Unlock()
	writeData(w, map[string]any{"pokemons": names})
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeErrors(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":   map[string]any{"pokemon": nil},
		"errors": []map[string]string{{"message": message}},
	})
}
