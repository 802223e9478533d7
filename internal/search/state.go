// Package search keeps a search box's live text, the submitted term and the
// shareable URL parameter consistent.
//
// The three copies are held in one State and reconciled explicitly on each of
// the three triggers: the user edits the box (Edit), the user submits (Submit),
// or the URL changes under the page (Sync).
package search

import "strings"

// ParamName is the only query parameter the search flow reads or writes.
const ParamName = "name"

// Router is the navigation collaborator. Setting or deleting a parameter
// updates the shareable URL only; it never reloads the page.
type Router interface {
	// QueryParam returns the current value of key and whether it is present.
	QueryParam(key string) (string, bool)
	// SetQueryParam sets key to value.
	SetQueryParam(key, value string)
	// DeleteQueryParam removes key.
	DeleteQueryParam(key string)
}

// State is the single container for the search term copies.
//
// Submitted and the router's ParamName value are equal after every Submit and
// every Sync. Live may diverge from both while the user is typing.
type State struct {
	Live      string `json:"live"`
	Submitted string `json:"submitted"`
}

// Edit records a keystroke-level change of the box. Nothing is submitted and
// the URL is untouched.
func (s *State) Edit(value string) {
	s.Live = value
}

// Submit commits the live value. The trimmed term becomes the submitted value
// and the URL parameter; an empty term clears both. Repeating a submit of the
// same term re-runs the same normalization and URL write, which is harmless.
func (s *State) Submit(r Router) string {
	term := strings.TrimSpace(s.Live)
	s.Live = term
	s.Submitted = term
	if term == "" {
		r.DeleteQueryParam(ParamName)
	} else {
		r.SetQueryParam(ParamName, term)
	}
	return term
}

// Sync resynchronizes both copies to the URL after an external navigation such
// as back/forward or a link that set the parameter. An absent parameter reads
// as the empty string.
func (s *State) Sync(r Router) string {
	v, _ := r.QueryParam(ParamName)
	s.Live = v
	s.Submitted = v
	return v
}

// InSync reports whether the submitted value matches the router's parameter,
// treating an absent parameter as empty.
func (s State) InSync(r Router) bool {
	v, _ := r.QueryParam(ParamName)
	return v == s.Submitted
}
