// internal/portal/context.go
//
// Portal request context.
//
// Context
// -------
// One RequestContext exists per HTTP request.  It owns the request's
// portal URL, hands out window response contexts, and receives their merged
// state through MergePortalURL when they close.  Windows processed later in
// the same request therefore start from a URL that already carries the
// changes of earlier windows.
//
// The Middleware decodes the incoming query string into the URL, stores the
// RequestContext in request.Context under an unexported key, and releases
// every window response the handler left behind once the handler returns.
//
// Notes
// -----
//   - Each request gets a uuid so log lines of one page build correlate.
//   - Oxford commas, two spaces after periods.
package portal

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/portlet/internal/cache"
	"github.com/yanizio/portlet/internal/portalurl"
	"github.com/yanizio/portlet/internal/response"
)

// decoded holds pristine URLs by raw query.  Callers always get a Clone.
var decoded = cache.New[string, *portalurl.URL](256)

// RequestContext is the per-request portal state.
type RequestContext struct {
	ID     string
	url    *portalurl.URL
	filter response.Filter

	mu        sync.Mutex
	responses []*response.Context
}

// compile-time assertion
var _ response.RequestContext = (*RequestContext)(nil)

// NewRequestContext wraps u (a fresh URL when nil).  filter is applied to
// every window response created through NewResponse.
func NewRequestContext(u *portalurl.URL, filter response.Filter) *RequestContext {
	if u == nil {
		u = portalurl.New()
	}
	return &RequestContext{
		ID:     uuid.NewString(),
		url:    u,
		filter: filter,
	}
}

// URL returns the request's portal URL.
func (rc *RequestContext) URL() *portalurl.URL { return rc.url }

// MergePortalURL implements response.RequestContext.
func (rc *RequestContext) MergePortalURL(u *portalurl.URL, windowID string) {
	rc.url.MergeFrom(u, windowID)
	zap.L().Debug("portal url merged",
		zap.String("request", rc.ID),
		zap.String("window", windowID))
}

// NewResponse opens a response context for windowID on top of the current
// request URL.
func (rc *RequestContext) NewResponse(windowID string) *response.Context {
	c := response.New(windowID, rc.url, rc, rc.filter)
	rc.mu.Lock()
	rc.responses = append(rc.responses, c)
	rc.mu.Unlock()
	return c
}

// ReleaseAll releases every response handed out so far.  Responses that
// were never closed are discarded without merging.
func (rc *RequestContext) ReleaseAll() {
	rc.mu.Lock()
	list := rc.responses
	rc.responses = nil
	rc.mu.Unlock()
	for _, c := range list {
		c.Release()
	}
}

// Href renders path with the request URL's state as query string.
func (rc *RequestContext) Href(path string) string {
	q := rc.url.Encode().Encode()
	if q == "" {
		return path
	}
	return path + "?" + q
}

/*──────────────────────────── context helpers ─────────────────────────────*/

type ctxKey struct{} // unexported, collision-proof

// WithContext returns ctx carrying rc.
func WithContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext returns the RequestContext stored by Middleware, or nil.
func FromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(ctxKey{}).(*RequestContext)
	return rc
}

/*──────────────────────────────── middleware ──────────────────────────────*/

// decodeQuery returns a private URL for raw.  A query the codec cannot read
// yields an empty URL and the error.
func decodeQuery(raw string) (*portalurl.URL, error) {
	if u, ok := decoded.Get(raw); ok {
		return u.Clone(), nil
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return portalurl.New(), err
	}
	u, err := portalurl.Decode(q)
	if err != nil {
		return portalurl.New(), err
	}
	decoded.Add(raw, u)
	return u.Clone(), nil
}

// Middleware attaches a RequestContext built from the request's query.  A
// query the codec cannot read starts the page from an empty URL.
func Middleware(filter response.Filter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := decodeQuery(r.URL.RawQuery)
			if err != nil {
				zap.L().Warn("portal url decode failed",
					zap.String("path", r.URL.Path),
					zap.Error(err))
			}

			rc := NewRequestContext(u, filter)
			defer rc.ReleaseAll()

			zap.L().Debug("portal request",
				zap.String("request", rc.ID),
				zap.String("path", r.URL.Path),
				zap.Strings("windows", u.Windows()))

			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), rc)))
		})
	}
}
