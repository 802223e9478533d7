package search

import (
	"fmt"
	"net/url"
)

// URLRouter is a Router over a path and query string. A page session uses it
// to track the shareable URL of the browser page it serves.
type URLRouter struct {
	path  string
	query url.Values
}

// NewURLRouter parses a request URI such as "/?name=Pikachu". Scheme, host and
// fragment are ignored. An empty string means "/".
func NewURLRouter(raw string) (*URLRouter, error) {
	r := &URLRouter{}
	if err := r.Navigate(raw); err != nil {
		return nil, err
	}
	return r, nil
}

// Navigate replaces the tracked URL, as a back/forward navigation would.
func (r *URLRouter) Navigate(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse url %q: %w", raw, err)
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return fmt.Errorf("parse query %q: %w", u.RawQuery, err)
	}
	r.path = u.Path
	if r.path == "" {
		r.path = "/"
	}
	r.query = q
	return nil
}

// QueryParam implements Router.
func (r *URLRouter) QueryParam(key string) (string, bool) {
	if !r.query.Has(key) {
		return "", false
	}
	return r.query.Get(key), true
}

// SetQueryParam implements Router.
func (r *URLRouter) SetQueryParam(key, value string) {
	r.query.Set(key, value)
}

// DeleteQueryParam implements Router.
func (r *URLRouter) DeleteQueryParam(key string) {
	r.query.Del(key)
}

// URL returns the current path and query, e.g. "/?name=Pikachu".
func (r *URLRouter) URL() string {
	u := url.URL{Path: r.path, RawQuery: r.query.Encode()}
	return u.String()
}
