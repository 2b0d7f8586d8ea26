package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/km-arc/go-carbon/framework/http/validation"
)

// Request wraps *http.Request with input helpers.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// Has reports whether the query string carries a non-empty key.
func (req *Request) Has(key string) bool {
	return req.Query(key) != ""
}

// RouteParam returns a URL route parameter.
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}

// Validate checks the query string against rules. Only the fields named in
// rules are read.
//
//	v := req.Validate(validation.Rules{"scope": "nullable|in:prototype,singleton"})
//	if v.Fails() { res.ValidationError(v.Errors()); return }
func (req *Request) Validate(rules validation.Rules) *validation.Validator {
	q := req.raw.URL.Query()
	data := make(map[string]string, len(rules))
	for field := range rules {
		if q.Has(field) {
			data[field] = q.Get(field)
		}
	}
	return validation.Make(data, rules)
}
