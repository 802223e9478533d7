package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"pokedex/internal/page"
)

// pagePayload is a page snapshot plus its rendered result area.
type pagePayload struct {
	page.Snapshot
	HTML string `json:"html"`
}

func (s *Server) writeSnapshot(ctx context.Context, w http.ResponseWriter, code int, snap page.Snapshot) {
	html, err := s.render.fragment(snap.View)
	if err != nil {
		s.writeErr(ctx, w, http.StatusInternalServerError, "render failed", err.Error())
		return
	}
	writeJSON(w, code, pagePayload{Snapshot: snap, HTML: html})
}

// POST /api/v1/pages
// Body (optional): {"url": "/?name=Pikachu"}
func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeErr(ctx, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.URL == "" {
		req.URL = "/"
	}

	sess, err := s.newPage(req.URL)
	if err != nil {
		s.writeErr(ctx, w, http.StatusBadRequest, "invalid page url", err.Error())
		return
	}
	s.writeSnapshot(ctx, w, http.StatusCreated, sess.Snapshot())
}

// POST /api/v1/pages/{id}/events
// Body: {"type": "edit"|"submit"|"navigate", "value": "..."}
func (s *Server) handlePageEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := s.pages.Get(r.PathValue("id"))
	if err != nil {
		s.updateActivePages()
		s.writePageErr(ctx, w, err)
		return
	}

	var ev page.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.writeErr(ctx, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	snap, err := sess.Apply(ev)
	if err != nil {
		s.writePageErr(ctx, w, err)
		return
	}
	s.writeSnapshot(ctx, w, http.StatusOK, snap)
}

// GET /api/v1/pages/{id}/view?after=N
// Long-polls until the page version exceeds N or the poll window ends.
func (s *Server) handlePageView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := s.pages.Get(r.PathValue("id"))
	if err != nil {
		s.updateActivePages()
		s.writePageErr(ctx, w, err)
		return
	}

	var after uint64
	if v := r.URL.Query().Get("after"); v != "" {
		after, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			s.writeErr(ctx, w, http.StatusBadRequest, "invalid after", err.Error())
			return
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.pollWait)
	defer cancel()
	snap, err := sess.WaitVersion(waitCtx, after)
	if err != nil {
		s.writePageErr(ctx, w, err)
		return
	}
	s.writeSnapshot(ctx, w, http.StatusOK, snap)
}

// DELETE /api/v1/pages/{id}
func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	if err := s.pages.Delete(r.PathValue("id")); err != nil {
		s.writePageErr(r.Context(), w, err)
		return
	}
	s.updateActivePages()
	w.WriteHeader(http.StatusNoContent)
}
