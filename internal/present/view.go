// Package present turns a lookup status and the submitted search term into
// exactly one of five views, and shapes found records for display.
package present

import (
	"fmt"

	"pokedex/internal/domain"
	"pokedex/internal/lookup"
)

// Kind identifies which of the five views is shown.
type Kind string

// View kinds.
const (
	KindPrompt   Kind = "prompt"
	KindLoading  Kind = "loading"
	KindError    Kind = "error"
	KindNotFound Kind = "not_found"
	KindFound    Kind = "found"
)

// View is the single thing the result area shows.
type View struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message,omitempty"`
	Term    string `json:"term,omitempty"`
	Card    *Card  `json:"card,omitempty"`
}

// Present maps a status and the submitted term to a view. Precedence is
// prompt, loading, error, not found, found; an idle status for a non-empty
// term (a synced page before its first fetch) also yields the prompt.
func Present(st lookup.Status, term string) View {
	switch {
	case term == "" && st.Kind == lookup.KindIdle:
		return View{Kind: KindPrompt}
	case st.Kind == lookup.KindLoading:
		return View{Kind: KindLoading, Term: term}
	case st.Kind == lookup.KindError:
		return View{Kind: KindError, Message: st.Message, Term: term}
	case st.Kind == lookup.KindSettled && st.Record == nil && term != "":
		return View{Kind: KindNotFound, Term: term}
	case st.Kind == lookup.KindSettled && st.Record != nil:
		return View{Kind: KindFound, Term: term, Card: NewCard(st.Record)}
	default:
		return View{Kind: KindPrompt}
	}
}

// Direct presents the result of a one-shot lookup by name, as used by the
// detail page where there is no search box and no loading phase.
func Direct(name string, rec *domain.Pokemon, err error) View {
	switch {
	case err != nil:
		return View{Kind: KindError, Message: err.Error(), Term: name}
	case rec == nil:
		return View{Kind: KindNotFound, Term: name}
	default:
		return View{Kind: KindFound, Term: name, Card: NewCard(rec)}
	}
}

// Headline is the one-line text shown for every view except found.
func (v View) Headline() string {
	switch v.Kind {
	case KindPrompt:
		return "Please enter a Pokemon name to search."
	case KindLoading:
		return "Loading Pokemon data..."
	case KindError:
		return "Error loading Pokemon: " + v.Message
	case KindNotFound:
		return fmt.Sprintf("Pokemon %q not found.", v.Term)
	default:
		return ""
	}
}
