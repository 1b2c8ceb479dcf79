// internal/beanscope/resolver.go
//
// Bean-resolution contract consumed by Activate, plus a static
// implementation for wiring beans by hand.

package beanscope

import (
	"errors"
	"fmt"
	"reflect"
)

// Bean is the container's canonical runtime handle for a managed bean.  Its
// BeanType may differ from the registered type (proxies, wrappers).
// Implementations must be comparable; pointer receivers are the norm.
type Bean interface {
	BeanType() reflect.Type
}

// BeanResolver maps a registered type to exactly one Bean.  It is consumed
// only during Activate.
type BeanResolver interface {
	// Candidates returns every bean assignable to t.
	Candidates(t reflect.Type) []Bean
	// Resolve narrows candidates to one bean, or returns an error when the
	// set is ambiguous.
	Resolve(candidates []Bean) (Bean, error)
}

// StaticBean is a Bean backed by a fixed implementation type.
type StaticBean struct {
	Impl reflect.Type
	Name string // optional label for diagnostics
}

// BeanType implements Bean.
func (b *StaticBean) BeanType() reflect.Type { return b.Impl }

func (b *StaticBean) String() string {
	if b.Name != "" {
		return b.Name
	}
	return CanonicalName(b.Impl)
}

// Returned by StaticResolver.Resolve.
var (
	errUnresolved = errors.New("no candidate bean")
	errAmbiguous  = errors.New("more than one candidate bean")
)

// StaticResolver resolves against a fixed bean list.  A bean is a candidate
// for t when its implementation type is t or embeds t.
type StaticResolver struct {
	beans []*StaticBean
}

// NewStaticResolver returns a resolver over beans.
func NewStaticResolver(beans ...*StaticBean) *StaticResolver {
	return &StaticResolver{beans: beans}
}

// Candidates implements BeanResolver.
func (r *StaticResolver) Candidates(t reflect.Type) []Bean {
	nt, err := normalize(t)
	if err != nil {
		return nil
	}
	var out []Bean
	for _, b := range r.beans {
		impl, err := normalize(b.Impl)
		if err != nil {
			continue
		}
		if impl == nt || embeds(impl, nt) {
			out = append(out, b)
		}
	}
	return out
}

// Resolve implements BeanResolver.  The set must hold exactly one bean.
func (r *StaticResolver) Resolve(candidates []Bean) (Bean, error) {
	switch len(candidates) {
	case 0:
		return nil, errUnresolved
	case 1:
		return candidates[0], nil
	}
	return nil, fmt.Errorf("%w (%d)", errAmbiguous, len(candidates))
}
