package api

import (
	"context"
	"net/http"
	"time"

	apidocs "pokedex/docs"
	"pokedex/internal/audit"
	webui "pokedex/web"
)

const readinessTimeout = 5 * time.Second

func (s *Server) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(apidocs.OpenAPISpec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"active_pages": s.pages.Count(),
	})
}

// ReadinessResponse is the /readyz body: an overall status and one entry per
// dependency.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type readinessCheck struct {
	name string
	run  func(context.Context) error
}

func (s *Server) readinessChecks() []readinessCheck {
	return []readinessCheck{
		{"upstream", s.upstream.Ping},
		{"lookup_log", func(ctx context.Context) error {
			_, _, err := s.lookups.List(ctx, audit.ListOptions{Limit: 1})
			return err
		}},
	}
}

// handleReady reports 503 when the GraphQL API or the lookup log does not
// answer within readinessTimeout. /healthz only says the process is up.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := ReadinessResponse{Status: "ok", Checks: map[string]string{}}
	for _, c := range s.readinessChecks() {
		if err := c.run(ctx); err != nil {
			resp.Checks[c.name] = "error"
			resp.Status = "unhealthy"
			s.logger.ErrorContext(ctx, "readiness check failed", "check", c.name, "error", err)
			continue
		}
		resp.Checks[c.name] = "ok"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// handleStatic serves the embedded script and stylesheet.
func (s *Server) handleStatic() http.Handler {
	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(webui.Static)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	})
}
