// internal/portlet/registry.go
//
// Portlet registry (cycle-free).
//
// Each concrete portlet lives under components/<name> and calls
// portlet.Register() in an init() function.  The portal binary scans every
// registered portlet for render-state-scoped bean types before it activates
// the bean registry, then calls Init() on portlets that implement
// Initializer.
//
// A portlet's ID doubles as its window id; the demo page places one window
// per portlet.
package portlet

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/portlet/internal/beanscope"
	"github.com/yanizio/portlet/internal/beanstate"
	"github.com/yanizio/portlet/internal/params"
	"github.com/yanizio/portlet/internal/portalurl"
	"github.com/yanizio/portlet/internal/response"
)

// Env is handed to Initializer.Init once the bean registry is active.
type Env struct {
	Beans *beanstate.Holder
}

// Action is the input of one action request.  Response is open for the
// duration of ProcessAction; the caller closes or releases it.
type Action struct {
	Response *response.Context
	Form     url.Values
	Beans    *beanstate.Holder
}

// View is what a portlet renders from.  Params and Public hold copies.
type View struct {
	WindowID string
	Mode     portalurl.Mode
	State    portalurl.WindowState
	Params   map[string][]string // private
	Public   map[string][]string // by identifier
	URL      *portalurl.URL
	Beans    *beanstate.Holder
}

// Portlet contract.
//
// PublicParams maps the identifiers the portlet reads to shared QNames; it
// may return nil.  Render MUST be concurrency-safe.
type Portlet interface {
	ID() string
	PublicParams() map[string]params.QName
	ProcessAction(a *Action) error
	Render(v View) (string, error)
}

// BeanProvider is optional.  ScopedBeans lists the render-state-scoped bean
// types the portlet stores through beanstate.
type BeanProvider interface {
	ScopedBeans() []reflect.Type
}

// Initializer is optional.
type Initializer interface {
	Init(Env) error
}

var (
	mu       sync.RWMutex
	registry = map[string]Portlet{}
)

// Register a portlet during init().  A duplicate ID replaces the earlier
// entry.
func Register(p Portlet) {
	mu.Lock()
	if _, dup := registry[p.ID()]; dup {
		zap.L().Warn("portlet registered twice, last registration wins", zap.String("id", p.ID()))
	}
	registry[p.ID()] = p
	mu.Unlock()
}

// Lookup returns the portlet or nil.
func Lookup(id string) Portlet {
	mu.RLock()
	defer mu.RUnlock()
	return registry[id]
}

// All returns every registered portlet sorted by ID.
func All() []Portlet {
	mu.RLock()
	out := make([]Portlet, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

/*──────────────────────────────── startup ─────────────────────────────────*/

// ScanBeans registers every portlet's scoped bean types with b and returns
// a resolver whose beans are the registered implementation types.
func ScanBeans(b *beanscope.Builder) (*beanscope.StaticResolver, error) {
	var (
		beans []*beanscope.StaticBean
		errs  []error
		seen  = map[reflect.Type]bool{}
	)
	for _, p := range All() {
		bp, ok := p.(BeanProvider)
		if !ok {
			continue
		}
		for _, t := range bp.ScopedBeans() {
			if err := b.RegisterCandidate(t, ""); err != nil {
				errs = append(errs, fmt.Errorf("portlet %s: %w", p.ID(), err))
				continue
			}
			for t.Kind() == reflect.Pointer {
				t = t.Elem()
			}
			if seen[t] {
				continue
			}
			seen[t] = true
			beans = append(beans, &beanscope.StaticBean{Impl: t, Name: p.ID()})
		}
	}
	return beanscope.NewStaticResolver(beans...), errors.Join(errs...)
}

// InitAll calls Init on every portlet that implements Initializer.
func InitAll(env Env) error {
	for _, p := range All() {
		if in, ok := p.(Initializer); ok {
			if err := in.Init(env); err != nil {
				return fmt.Errorf("portlet %s init: %w", p.ID(), err)
			}
		}
	}
	return nil
}

// BindAll binds every portlet's public parameters on u.
func BindAll(u *portalurl.URL) error {
	var errs []error
	for _, p := range All() {
		for name, qn := range p.PublicParams() {
			if err := u.Bind(p.ID(), name, qn); err != nil {
				errs = append(errs, fmt.Errorf("portlet %s param %s: %w", p.ID(), name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// NewView reads window win's state from u.
func NewView(u *portalurl.URL, win string, beans *beanstate.Holder) View {
	v := View{
		WindowID: win,
		Params:   map[string][]string{},
		Public:   map[string][]string{},
		URL:      u,
		Beans:    beans,
	}
	if m, ok := u.Mode(win); ok {
		v.Mode = m
	} else {
		v.Mode = portalurl.ModeView
	}
	if s, ok := u.WindowState(win); ok {
		v.State = s
	} else {
		v.State = portalurl.StateNormal
	}
	for _, n := range u.Names(win) {
		v.Params[n] = u.Values(win, n)
	}
	for _, n := range u.PublicNames(win) {
		v.Public[n] = u.PublicValues(win, n)
	}
	return v
}
