package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"pokedex/internal/audit"
	"pokedex/internal/lookup"
	"pokedex/internal/page"
	"pokedex/internal/present"
	"pokedex/internal/search"
)

const pageTitle = "Pokemon Search"

// newPage creates and stores a page session for the browser page at rawURL.
func (s *Server) newPage(rawURL string) (*page.Session, error) {
	id := uuid.New().String()
	sess, err := page.NewSession(id, rawURL, s.upstream,
		s.settleHook(id),
		lookup.WithLogger(s.base.With("page_id", id)),
	)
	if err != nil {
		return nil, err
	}
	s.pages.Put(sess)
	s.updateActivePages()
	return sess, nil
}

// GET /
// Creates a page session synced to the request URL, waits a short while for
// its lookup and renders the whole search page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if target, ok := normalizedSearchURL(r); ok {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	sess, err := s.newPage(r.URL.RequestURI())
	if err != nil {
		s.writeErr(ctx, w, http.StatusBadRequest, "invalid page url", err.Error())
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.renderWait)
	defer cancel()
	snap := sess.WaitSettled(waitCtx)

	data := indexPage{
		Title:  pageTitle,
		Page:   snap,
		Result: resultData{View: snap.View},
	}
	if err := s.render.page(w, http.StatusOK, "index", data); err != nil {
		s.writeErr(ctx, w, http.StatusInternalServerError, "render failed", err.Error())
	}
}

// normalizedSearchURL reports where a plain form submit should land when its
// name parameter is untrimmed or blank: the trimmed search, or / when nothing
// is left.
func normalizedSearchURL(r *http.Request) (string, bool) {
	q, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil || !q.Has(search.ParamName) {
		return "", false
	}
	raw := q.Get(search.ParamName)
	term := strings.TrimSpace(raw)
	switch {
	case term == "":
		return "/", true
	case term != raw:
		return present.SearchURL(term), true
	}
	return "", false
}

// GET /pokemon/{name}
// Looks the name up directly and renders the detail page.
func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := trimmedPathValue(r, "name")
	if name == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	rec, err := s.lookupDirect(ctx, name, audit.SourceDetail)
	view := present.Direct(name, rec, err)

	title := name
	code := http.StatusOK
	switch view.Kind {
	case present.KindFound:
		title = view.Card.Name
	case present.KindNotFound:
		code = http.StatusNotFound
	case present.KindError:
		code = http.StatusBadGateway
	}

	data := detailPage{
		Title:  title + " | " + pageTitle,
		Result: resultData{View: view, Detail: true},
	}
	if err := s.render.page(w, code, "detail", data); err != nil {
		s.writeErr(ctx, w, http.StatusInternalServerError, "render failed", err.Error())
	}
}
