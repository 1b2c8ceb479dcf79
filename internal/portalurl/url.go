// internal/portalurl/url.go
//
// Portal URL accumulator.
//
// Context
// -------
// A URL is the page-wide navigational state: mode and window state per
// window, each window's private parameters, the public bindings of each
// window (name → QName), and the public values themselves keyed by QName.
// Public values are shared: two windows that bind the same QName read the
// same values, and removing the last value for a QName removes it for
// every window on the page.
//
// Window response contexts never write here directly.  They collect a
// Delta and hand it to MergeWindow when they close, so a window aborted
// before close leaves no trace.
//
// Notes
// -----
//   - All methods lock; merges for different windows are serialized.
//   - Mode/state are last-write-wins per window.
//   - MergeWindow journals the public QNames it set or removed.  MergeFrom
//     replays only that journal, so a window never republishes public
//     state it merely inherited.  Clone starts with an empty journal.
package portalurl

import (
	"sort"
	"sync"

	"github.com/yanizio/portlet/internal/metrics"
	"github.com/yanizio/portlet/internal/params"
)

// Mode is a portlet mode such as "view" or "edit".
type Mode string

// WindowState is a window state such as "normal" or "maximized".
type WindowState string

const (
	ModeView Mode = "view"
	ModeEdit Mode = "edit"
	ModeHelp Mode = "help"

	StateNormal    WindowState = "normal"
	StateMaximized WindowState = "maximized"
	StateMinimized WindowState = "minimized"
)

// URL is safe for concurrent use.  Construct with New.
type URL struct {
	mu      sync.Mutex
	modes   map[string]Mode
	states  map[string]WindowState
	private map[string]map[string][]string
	binds   map[string]map[string]params.QName // window → name → qn
	public  map[params.QName][]string

	setPub map[params.QName]struct{} // journal: set by MergeWindow
	delPub map[params.QName]struct{} // journal: removed by MergeWindow
}

// New returns an empty URL.
func New() *URL {
	return &URL{
		modes:   make(map[string]Mode),
		states:  make(map[string]WindowState),
		private: make(map[string]map[string][]string),
		binds:   make(map[string]map[string]params.QName),
		public:  make(map[params.QName][]string),
		setPub:  make(map[params.QName]struct{}),
		delPub:  make(map[params.QName]struct{}),
	}
}

// -----------------------------------------------------------------------------
// Delta
// -----------------------------------------------------------------------------

// PublicChange binds Name to QName with Values, or drops the QName when
// Remove is set.  An empty Values slice removes the last value and is
// treated as a removal.
type PublicChange struct {
	Name   string
	QName  params.QName
	Values []string
	Remove bool
}

// Delta is the set of changes one window accumulated during one request.
// Empty Mode or WindowState means "unchanged".
type Delta struct {
	WindowID      string
	Mode          Mode
	WindowState   WindowState
	SetPrivate    map[string][]string
	RemovePrivate []string
	PublicChanges []PublicChange
}

// Empty reports whether the delta carries no change at all.
func (d Delta) Empty() bool {
	return d.Mode == "" && d.WindowState == "" && len(d.SetPrivate) == 0 &&
		len(d.RemovePrivate) == 0 && len(d.PublicChanges) == 0
}

// -----------------------------------------------------------------------------
// merge
// -----------------------------------------------------------------------------

// MergeWindow applies d atomically.  Private removals run before private
// sets, public changes run in order.  A public removal drops the QName for
// the whole page and unbinds it from every window.
func (u *URL) MergeWindow(d Delta) {
	u.mu.Lock()
	defer u.mu.Unlock()

	win := d.WindowID
	if d.Mode != "" {
		u.modes[win] = d.Mode
	}
	if d.WindowState != "" {
		u.states[win] = d.WindowState
	}

	for _, name := range d.RemovePrivate {
		if m, ok := u.private[win]; ok {
			delete(m, name)
		}
	}
	if len(d.SetPrivate) > 0 {
		m := u.privateFor(win)
		for name, vals := range d.SetPrivate {
			if _, pub := u.binds[win][name]; pub {
				continue
			}
			m[name] = params.CloneValues(vals)
		}
	}

	for _, pc := range d.PublicChanges {
		if pc.Remove || len(pc.Values) == 0 {
			u.removePublicLocked(pc.QName)
			delete(u.setPub, pc.QName)
			u.delPub[pc.QName] = struct{}{}
			continue
		}
		u.setPub[pc.QName] = struct{}{}
		b := u.bindsFor(win)
		b[pc.Name] = pc.QName
		if m, ok := u.private[win]; ok {
			delete(m, pc.Name)
		}
		u.public[pc.QName] = params.CloneValues(pc.Values)
	}

	metrics.URLMergeTotal.Inc()
}

// MergeFrom copies the state of one window from src into u.  Public
// changes are replayed from src's journal: removals first, page-wide, then
// the values and bindings win set.  Public state src only inherited is left
// alone.
func (u *URL) MergeFrom(src *URL, win string) {
	if src == u {
		return
	}
	src.mu.Lock()
	mode, hasMode := src.modes[win]
	state, hasState := src.states[win]
	priv := cloneMap(src.private[win])
	dels := make([]params.QName, 0, len(src.delPub))
	for qn := range src.delPub {
		dels = append(dels, qn)
	}
	sets := make(map[params.QName][]string, len(src.setPub))
	for qn := range src.setPub {
		sets[qn] = params.CloneValues(src.public[qn])
	}
	binds := make(map[string]params.QName)
	for name, qn := range src.binds[win] {
		if _, ok := sets[qn]; ok {
			binds[name] = qn
		}
	}
	src.mu.Unlock()

	u.mu.Lock()
	defer u.mu.Unlock()
	if hasMode {
		u.modes[win] = mode
	}
	if hasState {
		u.states[win] = state
	}
	if priv != nil {
		u.private[win] = priv
	} else {
		delete(u.private, win)
	}

	for _, qn := range dels {
		u.removePublicLocked(qn)
	}
	for name, qn := range binds {
		u.bindsFor(win)[name] = qn
		if m, ok := u.private[win]; ok {
			delete(m, name)
		}
	}
	for qn, vals := range sets {
		u.public[qn] = vals
	}
}

// Bind declares that win reads the public parameter qn under name, without
// touching any values.  Page assembly calls it for every public parameter
// a window supports.
func (u *URL) Bind(win, name string, qn params.QName) error {
	if name == "" {
		return params.ErrEmptyName
	}
	if params.IsReservedName(name) || params.IsReservedName(qn.Local) {
		return params.ErrReservedName
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.bindsFor(win)[name] = qn
	if m, ok := u.private[win]; ok {
		delete(m, name)
	}
	return nil
}

func (u *URL) removePublicLocked(qn params.QName) {
	delete(u.public, qn)
	for _, b := range u.binds {
		for name, bound := range b {
			if bound == qn {
				delete(b, name)
			}
		}
	}
}

func (u *URL) privateFor(win string) map[string][]string {
	m, ok := u.private[win]
	if !ok {
		m = make(map[string][]string)
		u.private[win] = m
	}
	return m
}

func (u *URL) bindsFor(win string) map[string]params.QName {
	b, ok := u.binds[win]
	if !ok {
		b = make(map[string]params.QName)
		u.binds[win] = b
	}
	return b
}

// -----------------------------------------------------------------------------
// readers
// -----------------------------------------------------------------------------

// Mode returns the mode recorded for win.
func (u *URL) Mode(win string) (Mode, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	m, ok := u.modes[win]
	return m, ok
}

// WindowState returns the window state recorded for win.
func (u *URL) WindowState(win string) (WindowState, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, ok := u.states[win]
	return s, ok
}

// Names returns the private parameter names of win, sorted.  Never nil.
func (u *URL) Names(win string) []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, 0, len(u.private[win]))
	for k := range u.private[win] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Values returns the private values of name for win.  Never nil.
func (u *URL) Values(win, name string) []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return params.CloneValues(u.private[win][name])
}

// HasPrivate reports whether name is present in win's private partition,
// including the "present with no value" case.
func (u *URL) HasPrivate(win, name string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.private[win][name]
	return ok
}

// IsPublic reports whether name is bound to a public QName for win.
func (u *URL) IsPublic(win, name string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.binds[win][name]
	return ok
}

// PublicQName returns the QName bound to name for win.
func (u *URL) PublicQName(win, name string) (params.QName, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	qn, ok := u.binds[win][name]
	return qn, ok
}

// PublicNames returns the public names bound for win, sorted.  Never nil.
func (u *URL) PublicNames(win string) []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, 0, len(u.binds[win]))
	for k := range u.binds[win] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PublicValues returns the shared values behind name for win.  Never nil.
func (u *URL) PublicValues(win, name string) []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	qn, ok := u.binds[win][name]
	if !ok {
		return []string{}
	}
	return params.CloneValues(u.public[qn])
}

// Windows returns every window id the URL knows about, sorted.
func (u *URL) Windows() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	seen := make(map[string]struct{})
	for w := range u.modes {
		seen[w] = struct{}{}
	}
	for w := range u.states {
		seen[w] = struct{}{}
	}
	for w := range u.private {
		seen[w] = struct{}{}
	}
	for w := range u.binds {
		seen[w] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent deep copy.
func (u *URL) Clone() *URL {
	u.mu.Lock()
	defer u.mu.Unlock()
	c := New()
	for k, v := range u.modes {
		c.modes[k] = v
	}
	for k, v := range u.states {
		c.states[k] = v
	}
	for w, m := range u.private {
		c.private[w] = cloneMap(m)
	}
	for w, b := range u.binds {
		nb := make(map[string]params.QName, len(b))
		for k, v := range b {
			nb[k] = v
		}
		c.binds[w] = nb
	}
	for qn, v := range u.public {
		c.public[qn] = params.CloneValues(v)
	}
	return c
}

func cloneMap(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = params.CloneValues(v)
	}
	return out
}
