package api

import (
	"bytes"
	"html/template"
	"net/http"

	"pokedex/internal/page"
	"pokedex/internal/present"
	webui "pokedex/web"
)

// resultData feeds the "result" template. Detail selects the detail-page
// link targets for evolutions.
type resultData struct {
	View   present.View
	Detail bool
}

type indexPage struct {
	Title  string
	Page   page.Snapshot
	Result resultData
}

type detailPage struct {
	Title  string
	Result resultData
}

type renderer struct {
	tmpl *template.Template
}

func mustRenderer() *renderer {
	tmpl, err := webui.Templates()
	if err != nil {
		panic(err)
	}
	return &renderer{tmpl: tmpl}
}

// page renders the named page template. Nothing is written on error.
func (rd *renderer) page(w http.ResponseWriter, code int, name string, data any) error {
	var buf bytes.Buffer
	if err := rd.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
	return nil
}

// fragment renders the search page's result area for v.
func (rd *renderer) fragment(v present.View) (string, error) {
	var buf bytes.Buffer
	if err := rd.tmpl.ExecuteTemplate(&buf, "result", resultData{View: v}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
