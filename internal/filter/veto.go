// internal/filter/veto.go
//
// Config-driven veto filter for window deltas.
//
// Context
// -------
// Before a window response merges, the container may refuse some of its
// changes.  Veto implements response.Filter from two deny lists loaded
// from config (`filter.deny_public`, `filter.deny_private`).  An entry is
// either "name", which applies to every window, or "window/name", which
// applies to one window.  Public entries match the identifier a window uses
// or the QName in "{ns}local" form.
//
// Rules (`filter.rules`) are expr-lang boolean expressions evaluated per
// change against Change, e.g.
//
//	kind == "private" && name startsWith "debug_"
//	window == "search" && remove
//
// A rule that fails at run time does not veto; the failure is logged.
//
// Vetoed changes are dropped from the delta and counted in
// portlet_filter_veto_total{kind="public"|"private"}.
package filter

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.uber.org/zap"

	"github.com/yanizio/portlet/internal/metrics"
	"github.com/yanizio/portlet/internal/portalurl"
	"github.com/yanizio/portlet/internal/response"
)

// compile-time assertion
var _ response.Filter = (*Veto)(nil)

// Veto drops denied parameter changes.  Safe for concurrent use once built.
type Veto struct {
	public  rules
	private rules
	progs   []program
}

type program struct {
	src string
	p   *vm.Program
}

// Change is the environment a rule expression sees.
type Change struct {
	Window string   `expr:"window"`
	Kind   string   `expr:"kind"` // "private" or "public"
	Name   string   `expr:"name"`
	QName  string   `expr:"qname"` // "{ns}local", public only
	Values []string `expr:"values"`
	Remove bool     `expr:"remove"`
}

type rules struct {
	any       map[string]struct{}
	perWindow map[string]map[string]struct{}
}

func newRules(entries []string) rules {
	r := rules{
		any:       make(map[string]struct{}),
		perWindow: make(map[string]map[string]struct{}),
	}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		// "{ns}local" may contain '/', so only split outside braces.
		if i := strings.IndexByte(e, '/'); i > 0 && !strings.HasPrefix(e, "{") {
			win, name := e[:i], e[i+1:]
			m, ok := r.perWindow[win]
			if !ok {
				m = make(map[string]struct{})
				r.perWindow[win] = m
			}
			m[name] = struct{}{}
			continue
		}
		r.any[e] = struct{}{}
	}
	return r
}

func (r rules) denies(win string, keys ...string) bool {
	for _, k := range keys {
		if _, ok := r.any[k]; ok {
			return true
		}
		if _, ok := r.perWindow[win][k]; ok {
			return true
		}
	}
	return false
}

func (r rules) empty() bool { return len(r.any) == 0 && len(r.perWindow) == 0 }

// New builds a Veto from deny lists and rule expressions.  A rule that does
// not compile to a boolean expression is an error.
func New(denyPublic, denyPrivate []string, ruleSrc ...string) (*Veto, error) {
	v := &Veto{public: newRules(denyPublic), private: newRules(denyPrivate)}
	for _, src := range ruleSrc {
		if strings.TrimSpace(src) == "" {
			continue
		}
		p, err := expr.Compile(src, expr.Env(Change{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("filter: rule %q: %w", src, err)
		}
		v.progs = append(v.progs, program{src: src, p: p})
	}
	return v, nil
}

// match reports whether any rule vetoes c.
func (v *Veto) match(c Change) bool {
	for _, pr := range v.progs {
		out, err := expr.Run(pr.p, c)
		if err != nil {
			zap.L().Warn("filter rule failed",
				zap.String("rule", pr.src),
				zap.String("window", c.Window),
				zap.String("name", c.Name),
				zap.Error(err))
			continue
		}
		if ok, _ := out.(bool); ok {
			return true
		}
	}
	return false
}

func (v *Veto) deniesPrivate(win, name string, vals []string, remove bool) bool {
	return v.private.denies(win, name) ||
		v.match(Change{Window: win, Kind: "private", Name: name, Values: vals, Remove: remove})
}

func (v *Veto) deniesPublic(win string, pc portalurl.PublicChange) bool {
	qn := pc.QName.String()
	return v.public.denies(win, pc.Name, qn) ||
		v.match(Change{
			Window: win, Kind: "public", Name: pc.Name, QName: qn,
			Values: pc.Values, Remove: pc.Remove || len(pc.Values) == 0,
		})
}

// Filter implements response.Filter.  The input delta is not modified.
func (v *Veto) Filter(win string, d portalurl.Delta) portalurl.Delta {
	if v.public.empty() && v.private.empty() && len(v.progs) == 0 {
		return d
	}

	out := portalurl.Delta{
		WindowID:    d.WindowID,
		Mode:        d.Mode,
		WindowState: d.WindowState,
	}
	var vetoed []string

	if len(d.SetPrivate) > 0 {
		out.SetPrivate = make(map[string][]string, len(d.SetPrivate))
		for name, vals := range d.SetPrivate {
			if v.deniesPrivate(win, name, vals, false) {
				vetoed = append(vetoed, name)
				metrics.FilterVetoTotal.WithLabelValues("private").Inc()
				continue
			}
			out.SetPrivate[name] = vals
		}
	}
	for _, name := range d.RemovePrivate {
		if v.deniesPrivate(win, name, nil, true) {
			vetoed = append(vetoed, name)
			metrics.FilterVetoTotal.WithLabelValues("private").Inc()
			continue
		}
		out.RemovePrivate = append(out.RemovePrivate, name)
	}
	for _, pc := range d.PublicChanges {
		if v.deniesPublic(win, pc) {
			vetoed = append(vetoed, pc.QName.String())
			metrics.FilterVetoTotal.WithLabelValues("public").Inc()
			continue
		}
		out.PublicChanges = append(out.PublicChanges, pc)
	}

	if len(vetoed) > 0 {
		zap.L().Debug("window delta vetoed",
			zap.String("window", win),
			zap.Strings("params", vetoed))
	}
	return out
}
