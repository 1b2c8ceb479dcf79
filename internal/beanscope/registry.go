// internal/beanscope/registry.go
//
// Parameter-name registry for render-state-scoped beans.
//
// Context
// -------
// A render-state-scoped bean keeps its state in the portal URL, inside a
// private render parameter of the window that uses it.  Every such bean
// needs a parameter name that is stable for the deployment and never
// collides with another bean or with an application parameter.
//
// The registry is built in two phases:
//
//  1. Scan.  The container calls Builder.RegisterCandidate for every bean
//     type it discovers, optionally with a declared name.  Config may add
//     more declared names with Builder.Declare.
//  2. Activate.  Builder.Activate sorts the canonical type names, assigns
//     names (declared name verbatim, else ReservedPrefix + sorted index),
//     resolves each type to one Bean, and returns an immutable *Registry.
//
// Generated names therefore depend only on the set of registered types,
// never on scan order.  They are not stable across deployments that
// register a different set of types; declare a name when that matters.
//
// Instrumentation
// ---------------
//   - WARN  when a type is registered twice (last registration wins).
//   - DEBUG summary of every bean and its name after activation.
//   - ERROR when ParamNameFor is asked about a bean that was never bound.
//
// Notes
// -----
//   - *Registry has no mutators.  Concurrent reads need no locking.
//   - Oxford commas, two spaces after periods.
package beanscope

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/portlet/internal/metrics"
	"github.com/yanizio/portlet/internal/params"
)

// ReservedPrefix starts every generated parameter name.
const ReservedPrefix = params.ReservedPrefix

var (
	ErrAlreadyActivated = errors.New("beanscope: builder already activated")
	ErrNilResolver      = errors.New("beanscope: nil bean resolver")
	ErrUnresolvedBean   = errors.New("beanscope: no bean resolves for type")
	ErrAmbiguousBean    = errors.New("beanscope: ambiguous bean for type")
	ErrDuplicateName    = errors.New("beanscope: duplicate declared parameter name")
	ErrReservedName     = errors.New("beanscope: declared name uses the reserved prefix")
	ErrUnknownBean      = errors.New("beanscope: declared name for unregistered type")
	ErrUnboundBean      = errors.New("beanscope: bean is not bound")
)

// Descriptor describes one render-state-scoped bean type.
type Descriptor struct {
	Type          reflect.Type
	CanonicalName string
	DeclaredName  string // empty means generate
	ParamName     string // set by Activate
}

/*──────────────────────────────── builder ─────────────────────────────────*/

// Builder collects bean types during the scan phase.  The zero value is not
// usable; call NewBuilder.
type Builder struct {
	mu        sync.Mutex
	descs     map[reflect.Type]*Descriptor
	declared  map[string]string // canonical name → declared name (config)
	aliases   map[reflect.Type]reflect.Type
	activated bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		descs:    make(map[reflect.Type]*Descriptor),
		declared: make(map[string]string),
		aliases:  make(map[reflect.Type]reflect.Type),
	}
}

// RegisterCandidate records a bean type with an optional declared name.
// Registering the same type again replaces the earlier descriptor.
func (b *Builder) RegisterCandidate(beanType reflect.Type, declaredName string) error {
	t, err := normalize(beanType)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activated {
		return ErrAlreadyActivated
	}
	if old, dup := b.descs[t]; dup {
		zap.L().Warn("scoped bean registered twice, last registration wins",
			zap.String("type", old.CanonicalName),
			zap.String("old_name", old.DeclaredName),
			zap.String("new_name", declaredName))
	}
	b.descs[t] = &Descriptor{
		Type:          t,
		CanonicalName: CanonicalName(t),
		DeclaredName:  declaredName,
	}
	return nil
}

// Declare sets the parameter name for the type whose canonical name is
// canonical.  It overrides any name given to RegisterCandidate.  Names for
// types that are never registered fail activation.
func (b *Builder) Declare(canonical, paramName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activated {
		return ErrAlreadyActivated
	}
	b.declared[canonical] = paramName
	return nil
}

// RegisterAlias maps a proxy type to the bean type it stands in for.
func (b *Builder) RegisterAlias(proxy, beanType reflect.Type) error {
	p, err := normalize(proxy)
	if err != nil {
		return err
	}
	t, err := normalize(beanType)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activated {
		return ErrAlreadyActivated
	}
	b.aliases[p] = t
	return nil
}

// Activate assigns parameter names, binds every type to its Bean, and
// returns the frozen Registry.  It runs once; every configuration error
// found is reported together.
func (b *Builder) Activate(resolver BeanResolver) (*Registry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activated {
		return nil, ErrAlreadyActivated
	}
	if resolver == nil {
		return nil, ErrNilResolver
	}
	b.activated = true

	// 1. Sorted canonical names drive generated-name determinism.
	sorted := make([]string, 0, len(b.descs))
	byName := make(map[string]*Descriptor, len(b.descs))
	for _, d := range b.descs {
		sorted = append(sorted, d.CanonicalName)
		byName[d.CanonicalName] = d
	}
	sort.Strings(sorted)

	var errs []error
	for canonical := range b.declared {
		if _, ok := byName[canonical]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownBean, canonical))
		}
	}

	// 2. Assign names.
	owners := make(map[string]string, len(sorted)) // param name → canonical
	for i, canonical := range sorted {
		d := byName[canonical]
		if n, ok := b.declared[canonical]; ok {
			d.DeclaredName = n
		}
		if d.DeclaredName != "" {
			if params.IsReservedName(d.DeclaredName) {
				errs = append(errs, fmt.Errorf("%w: %s declares %q",
					ErrReservedName, canonical, d.DeclaredName))
			}
			d.ParamName = d.DeclaredName
		} else {
			d.ParamName = ReservedPrefix + strconv.Itoa(i)
		}
		if other, dup := owners[d.ParamName]; dup {
			errs = append(errs, fmt.Errorf("%w: %q used by %s and %s",
				ErrDuplicateName, d.ParamName, other, canonical))
			continue
		}
		owners[d.ParamName] = canonical
	}

	// 3. Resolve every type to exactly one bean.
	reg := &Registry{
		byType:  make(map[reflect.Type]*binding, len(sorted)),
		byBean:  make(map[Bean]*binding, len(sorted)),
		aliases: make(map[reflect.Type]reflect.Type, len(b.aliases)),
		order:   make([]*binding, 0, len(sorted)),
	}
	for _, canonical := range sorted {
		d := byName[canonical]
		cands := resolver.Candidates(d.Type)
		bean, err := resolver.Resolve(cands)
		switch {
		case err != nil && len(cands) > 1:
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrAmbiguousBean, canonical, err))
			continue
		case err != nil:
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrUnresolvedBean, canonical, err))
			continue
		case bean == nil:
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnresolvedBean, canonical))
			continue
		}
		if prev, dup := reg.byBean[bean]; dup {
			errs = append(errs, fmt.Errorf("%w: %s and %s resolve to the same bean",
				ErrAmbiguousBean, prev.desc.CanonicalName, canonical))
			continue
		}
		bd := &binding{desc: *d, bean: bean}
		reg.byType[d.Type] = bd
		reg.byBean[bean] = bd
		reg.order = append(reg.order, bd)
	}
	for p, t := range b.aliases {
		reg.aliases[p] = t
	}

	if err := errors.Join(errs...); err != nil {
		zap.L().Error("scoped bean activation failed", zap.Error(err))
		return nil, err
	}

	metrics.ScopedBeans.Set(float64(len(reg.order)))
	zap.L().Debug("scoped bean configuration",
		zap.Int("beans", len(reg.order)),
		zap.String("summary", reg.String()))
	return reg, nil
}

/*──────────────────────────────── registry ────────────────────────────────*/

type binding struct {
	desc Descriptor
	bean Bean
}

// Registry is the activated, read-only view.  Safe for concurrent use.
type Registry struct {
	byType  map[reflect.Type]*binding
	byBean  map[Bean]*binding
	aliases map[reflect.Type]reflect.Type
	order   []*binding // canonical-name order
}

// ParamNameForType returns the parameter name for t.  Lookup order:
//
//  1. exact registered type,
//  2. alias table (proxy → bean type),
//  3. structural match: the first binding, in canonical-name order, whose
//     registered or implementation type embeds t or is embedded by t.
//
// Step 3 is ambiguous when several beans share an embedded type; callers
// should pass concrete types.
func (r *Registry) ParamNameForType(t reflect.Type) (string, bool) {
	nt, err := normalize(t)
	if err != nil {
		return "", false
	}
	if bd, ok := r.byType[nt]; ok {
		return bd.desc.ParamName, true
	}
	if target, ok := r.aliases[nt]; ok {
		if bd, ok := r.byType[target]; ok {
			return bd.desc.ParamName, true
		}
	}
	for _, bd := range r.order {
		if related(bd.desc.Type, nt) {
			return bd.desc.ParamName, true
		}
		if impl, err := normalize(bd.bean.BeanType()); err == nil && related(impl, nt) {
			return bd.desc.ParamName, true
		}
	}
	return "", false
}

// ParamNameFor returns the parameter name bound to bean.  An unbound bean is
// a caller bug and yields ErrUnboundBean.
func (r *Registry) ParamNameFor(bean Bean) (string, error) {
	if bean != nil {
		if bd, ok := r.byBean[bean]; ok {
			return bd.desc.ParamName, nil
		}
	}
	label := "<nil>"
	if bean != nil {
		label = CanonicalName(bean.BeanType())
	}
	zap.L().Error("scoped bean lookup outside registered scope", zap.String("bean", label))
	return "", fmt.Errorf("%w: %s", ErrUnboundBean, label)
}

// Bean returns the bean bound to the registered type t (pointers unwrapped).
func (r *Registry) Bean(t reflect.Type) (Bean, bool) {
	nt, err := normalize(t)
	if err != nil {
		return nil, false
	}
	bd, ok := r.byType[nt]
	if !ok {
		return nil, false
	}
	return bd.bean, true
}

// Descriptors returns a copy of every descriptor in canonical-name order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.order))
	for i, bd := range r.order {
		out[i] = bd.desc
	}
	return out
}

// Types returns the registered bean types in canonical-name order.
func (r *Registry) Types() []reflect.Type {
	out := make([]reflect.Type, len(r.order))
	for i, bd := range r.order {
		out[i] = bd.desc.Type
	}
	return out
}

// Len returns the number of bound beans.
func (r *Registry) Len() int { return len(r.order) }

// String returns a one-line-per-bean summary for logs.
func (r *Registry) String() string {
	var sb strings.Builder
	for _, bd := range r.order {
		sb.WriteString("\n\tType: ")
		sb.WriteString(bd.desc.CanonicalName)
		sb.WriteString(", Param name: ")
		sb.WriteString(bd.desc.ParamName)
	}
	return sb.String()
}
