package api

import (
	"net/http"
	"strconv"
	"time"

	"pokedex/internal/audit"
	"pokedex/internal/present"
)

// GET /api/v1/pokemon/{name}
// Returns the presented view for a direct lookup: 200 found, 404 not found,
// 502 when the upstream fails.
func (s *Server) handlePokemon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := trimmedPathValue(r, "name")
	if name == "" {
		s.writeErr(ctx, w, http.StatusBadRequest, "name is required", "")
		return
	}

	rec, err := s.lookupDirect(ctx, name, audit.SourceAPI)
	view := present.Direct(name, rec, err)
	switch view.Kind {
	case present.KindNotFound:
		writeJSON(w, http.StatusNotFound, view)
	case present.KindError:
		s.logger.WarnContext(ctx, "upstream lookup failed", "term", name, "error", err)
		writeJSON(w, http.StatusBadGateway, view)
	default:
		writeJSON(w, http.StatusOK, view)
	}
}

// GET /api/v1/lookups - List recent lookups, newest first
// Query params: limit, offset, outcome, term, since, until (RFC 3339)
func (s *Server) handleLookupList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	limit := audit.DefaultListLimit
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= audit.MaxListLimit {
			limit = parsed
		}
	}

	offset := 0
	if o := q.Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	opts := audit.ListOptions{
		Limit:   limit,
		Offset:  offset,
		Outcome: q.Get("outcome"),
		Term:    q.Get("term"),
	}
	if opts.Outcome != "" && !audit.ValidOutcome(opts.Outcome) {
		s.writeErr(ctx, w, http.StatusBadRequest, "invalid outcome", opts.Outcome)
		return
	}
	for _, p := range []struct {
		key string
		dst **time.Time
	}{
		{"since", &opts.Since},
		{"until", &opts.Until},
	} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeErr(ctx, w, http.StatusBadRequest, "invalid "+p.key, err.Error())
			return
		}
		*p.dst = &t
	}

	events, total, err := s.lookups.List(ctx, opts)
	if err != nil {
		s.writeErr(ctx, w, http.StatusInternalServerError, "failed to list lookups", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
