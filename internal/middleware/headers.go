// internal/middleware/headers.go
//
// Response-header middleware for portal pages.
//
// Portal pages carry every window's render state in the query string, so
// the headers below keep that state out of shared caches and out of the
// Referer sent to other origins:
//
//   • Cache-Control           –  no-store
//   • Referrer-Policy         –  no-referrer
//   • X-Content-Type-Options  –  nosniff
//   • X-Frame-Options         –  SAMEORIGIN
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP, since headers written after
//   the first body byte are dropped.  A handler may still override them.
// • Oxford commas, two spaces after periods.

package middleware

import "net/http"

var portalHeaders = [...][2]string{
	{"Cache-Control", "no-store"},
	{"Referrer-Policy", "no-referrer"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "SAMEORIGIN"},
}

// Headers sets the portal headers on every response.
func Headers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range portalHeaders {
			if h.Get(kv[0]) == "" {
				h.Set(kv[0], kv[1])
			}
		}
		next.ServeHTTP(w, r)
	})
}
