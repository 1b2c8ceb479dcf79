// internal/portalurl/codec.go
//
// Query-string codec for URL.
//
// Keys are "<kind>:<part>[:<part>]" with every part query-escaped so window
// ids and names may carry ':' safely:
//
//	m:<win>              mode
//	s:<win>              window state
//	p:<win>:<name>       private values (one entry per value)
//	e:<win>:<name>       private name present with no value
//	b:<win>:<name>       public binding, value "<ns>:<local>"
//	r:<ns>:<local>       public values (one entry per value)
//
// Keys with any other shape belong to the page, not the container, and are
// ignored by Decode.
package portalurl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/yanizio/portlet/internal/params"
)

// ErrMalformed is returned by Decode for container keys it cannot parse.
var ErrMalformed = errors.New("portalurl: malformed state key")

// Encode renders u as url.Values.  The result is deterministic because
// url.Values.Encode sorts by key and values keep their order.
func (u *URL) Encode() url.Values {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := url.Values{}
	for w, m := range u.modes {
		out.Set(key("m", w), string(m))
	}
	for w, s := range u.states {
		out.Set(key("s", w), string(s))
	}
	for w, m := range u.private {
		for name, vals := range m {
			if len(vals) == 0 {
				out.Set(key("e", w, name), "")
				continue
			}
			out[key("p", w, name)] = params.CloneValues(vals)
		}
	}
	for w, b := range u.binds {
		for name, qn := range b {
			out.Set(key("b", w, name), key("", qn.Namespace, qn.Local)[1:])
		}
	}
	for qn, vals := range u.public {
		out[key("r", qn.Namespace, qn.Local)] = params.CloneValues(vals)
	}
	return out
}

// Decode rebuilds a URL from query values produced by Encode.
func Decode(q url.Values) (*URL, error) {
	u := New()
	for k, vals := range q {
		kind, parts, ok := splitKey(k)
		if !ok {
			continue
		}
		switch kind {
		case "m", "s":
			if len(parts) != 1 || len(vals) == 0 {
				return nil, fmt.Errorf("%w: %q", ErrMalformed, k)
			}
			if kind == "m" {
				u.modes[parts[0]] = Mode(vals[0])
			} else {
				u.states[parts[0]] = WindowState(vals[0])
			}
		case "p", "e":
			if len(parts) != 2 {
				return nil, fmt.Errorf("%w: %q", ErrMalformed, k)
			}
			if kind == "e" {
				vals = nil
			}
			u.privateFor(parts[0])[parts[1]] = params.CloneValues(vals)
		case "b":
			if len(parts) != 2 || len(vals) == 0 {
				return nil, fmt.Errorf("%w: %q", ErrMalformed, k)
			}
			qp := strings.Split(vals[0], ":")
			if len(qp) != 2 {
				return nil, fmt.Errorf("%w: binding %q", ErrMalformed, vals[0])
			}
			ns, err1 := url.QueryUnescape(qp[0])
			local, err2 := url.QueryUnescape(qp[1])
			if err := errors.Join(err1, err2); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			u.bindsFor(parts[0])[parts[1]] = params.QName{Namespace: ns, Local: local}
		case "r":
			if len(parts) != 2 {
				return nil, fmt.Errorf("%w: %q", ErrMalformed, k)
			}
			qn := params.QName{Namespace: parts[0], Local: parts[1]}
			u.public[qn] = params.CloneValues(vals)
		}
	}

	// A private entry shadowed by a public binding is dropped so the
	// partitions stay disjoint after decoding hand-edited URLs.
	for w, b := range u.binds {
		for name := range b {
			delete(u.private[w], name)
		}
	}
	return u, nil
}

func key(kind string, parts ...string) string {
	var sb strings.Builder
	sb.WriteString(kind)
	for _, p := range parts {
		sb.WriteByte(':')
		sb.WriteString(url.QueryEscape(p))
	}
	return sb.String()
}

// splitKey returns the kind and unescaped parts of a container key.
func splitKey(k string) (string, []string, bool) {
	i := strings.IndexByte(k, ':')
	if i != 1 {
		return "", nil, false
	}
	kind := k[:1]
	switch kind {
	case "m", "s", "p", "e", "b", "r":
	default:
		return "", nil, false
	}
	raw := strings.Split(k[2:], ":")
	parts := make([]string, len(raw))
	for j, r := range raw {
		p, err := url.QueryUnescape(r)
		if err != nil {
			return "", nil, false
		}
		parts[j] = p
	}
	return kind, parts, true
}
