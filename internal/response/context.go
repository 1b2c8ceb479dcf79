// internal/response/context.go
//
// Per-window response state.
//
// Context
// -------
// A Context is created for one window at the start of its response phase
// (action, event, or render).  Portlet code and scoped-bean code mutate the
// window's mode, window state, and parameters through it.  Nothing reaches
// the portal URL until Close:
//
//  1. The pending changes are folded into one portalurl.Delta.
//  2. The Filter may veto parts of it.
//  3. The approved delta is merged into the context's working URL once.
//  4. The RequestContext is told to pick up this window's state from the
//     working URL, so later windows in the same request see it.
//
// Close runs its body once; further calls do nothing.  Release drops all
// state and may come before Close, in which case nothing is merged.
//
// After Close (or Release) mutators are silent no-ops and accessors report
// absence.  Container cleanup code calls them late, and that is not an
// error.  Events stay readable after Close so the container can dispatch
// them; only Release drops them.
//
// Notes
// -----
//   - One goroutine per Context.  There is no internal locking.
//   - Nil values slices are rejected with params.ErrNilValues.
package response

import (
	"sort"

	"go.uber.org/zap"

	"github.com/yanizio/portlet/internal/metrics"
	"github.com/yanizio/portlet/internal/params"
	"github.com/yanizio/portlet/internal/portalurl"
)

// Filter approves the final delta of a window.  It may return d unchanged.
type Filter interface {
	Filter(windowID string, d portalurl.Delta) portalurl.Delta
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(windowID string, d portalurl.Delta) portalurl.Delta

// Filter implements Filter.
func (f FilterFunc) Filter(windowID string, d portalurl.Delta) portalurl.Delta {
	return f(windowID, d)
}

// PassThrough approves every delta as-is.
var PassThrough Filter = FilterFunc(func(_ string, d portalurl.Delta) portalurl.Delta { return d })

// RequestContext publishes a window's merged state to the ambient request.
type RequestContext interface {
	MergePortalURL(u *portalurl.URL, windowID string)
}

// Event is an outbound portlet event.
type Event struct {
	QName   params.QName
	Payload any
}

type pubKey struct {
	qn params.QName
	id string
}

// Context collects one window's state changes for one request.
type Context struct {
	windowID string
	phase    Phase
	url      *portalurl.URL
	filter   Filter
	req      RequestContext

	mode    portalurl.Mode
	state   portalurl.WindowState
	pending *params.Store       // private sets and public adds for windowID
	removed map[string]struct{} // private names removed
	pubAdd  map[pubKey]struct{}
	pubDel  map[pubKey]struct{}
	events  []Event
}

// New opens a Context for windowID.  base is the request's current portal
// URL; the Context works on a clone of it.  A nil filter means PassThrough,
// a nil req skips publishing.
func New(windowID string, base *portalurl.URL, req RequestContext, filter Filter) *Context {
	work := portalurl.New()
	if base != nil {
		work = base.Clone()
	}
	if filter == nil {
		filter = PassThrough
	}
	return &Context{
		windowID: windowID,
		phase:    Open,
		url:      work,
		filter:   filter,
		req:      req,
		pending:  params.New(),
		removed:  make(map[string]struct{}),
		pubAdd:   make(map[pubKey]struct{}),
		pubDel:   make(map[pubKey]struct{}),
	}
}

// WindowID returns the window this Context belongs to.
func (c *Context) WindowID() string { return c.windowID }

// Phase returns the current lifecycle phase.
func (c *Context) Phase() Phase { return c.phase }

func (c *Context) open() bool { return c.phase == Open }

/*──────────────────────────────── mutators ────────────────────────────────*/

// SetMode records a new portlet mode.
func (c *Context) SetMode(m portalurl.Mode) {
	if c.open() {
		c.mode = m
	}
}

// SetWindowState records a new window state.
func (c *Context) SetWindowState(s portalurl.WindowState) {
	if c.open() {
		c.state = s
	}
}

// SetParameter adds or replaces a private parameter.  An empty values slice
// keeps the name with no value.
func (c *Context) SetParameter(name string, values []string) error {
	if values == nil {
		return params.ErrNilValues
	}
	if !c.open() {
		return nil
	}
	if c.IsPublic(name) {
		return params.ErrPublicName
	}
	if err := c.pending.SetPrivate(c.windowID, name, values); err != nil {
		return err
	}
	delete(c.removed, name)
	return nil
}

// RemoveParameter removes a private parameter.  Unknown names are ignored.
func (c *Context) RemoveParameter(name string) {
	if !c.open() {
		return
	}
	c.pending.RemovePrivate(c.windowID, name)
	c.removed[name] = struct{}{}
}

// AddPublicParam sets the public parameter identified by qn, which this
// window reads under identifier.
func (c *Context) AddPublicParam(qn params.QName, identifier string, values []string) error {
	if values == nil {
		return params.ErrNilValues
	}
	if !c.open() {
		return nil
	}
	if err := c.pending.SetPublic(c.windowID, identifier, qn, values); err != nil {
		return err
	}
	for old := range c.pubAdd {
		if old.id == identifier {
			delete(c.pubAdd, old)
		}
	}
	k := pubKey{qn: qn, id: identifier}
	delete(c.pubDel, k)
	c.pubAdd[k] = struct{}{}
	c.pending.RemovePrivate(c.windowID, identifier)
	delete(c.removed, identifier)
	return nil
}

// RemovePublicParam removes the public parameter qn for every window on
// the page once this Context closes.
func (c *Context) RemovePublicParam(qn params.QName, identifier string) {
	if !c.open() {
		return
	}
	k := pubKey{qn: qn, id: identifier}
	if _, added := c.pubAdd[k]; added {
		delete(c.pubAdd, k)
		c.pending.RemovePublic(c.windowID, identifier)
	}
	c.pubDel[k] = struct{}{}
}

// AddEvent appends an outbound event.
func (c *Context) AddEvent(e Event) {
	if c.open() {
		c.events = append(c.events, e)
	}
}

/*──────────────────────────────── accessors ───────────────────────────────*/

// Mode returns the effective portlet mode.  ok is false when no mode is set
// or the Context is no longer open.
func (c *Context) Mode() (portalurl.Mode, bool) {
	if !c.open() {
		return "", false
	}
	if c.mode != "" {
		return c.mode, true
	}
	return c.url.Mode(c.windowID)
}

// WindowState returns the effective window state.
func (c *Context) WindowState() (portalurl.WindowState, bool) {
	if !c.open() {
		return "", false
	}
	if c.state != "" {
		return c.state, true
	}
	return c.url.WindowState(c.windowID)
}

// Values returns the effective values of a private parameter.  ok is false
// when the name is absent, which is distinct from present with no value.
func (c *Context) Values(name string) ([]string, bool) {
	if !c.open() {
		return nil, false
	}
	if ws := c.pending.Window(c.windowID); ws != nil {
		if v, ok := ws.Private[name]; ok {
			return params.CloneValues(v), true
		}
	}
	if _, gone := c.removed[name]; gone {
		return nil, false
	}
	if c.url.HasPrivate(c.windowID, name) {
		return c.url.Values(c.windowID, name), true
	}
	return nil, false
}

// Names returns the effective private parameter names, sorted.
func (c *Context) Names() ([]string, bool) {
	if !c.open() {
		return nil, false
	}
	set := make(map[string]struct{})
	for _, n := range c.url.Names(c.windowID) {
		if _, gone := c.removed[n]; !gone {
			set[n] = struct{}{}
		}
	}
	for _, n := range c.pending.Names(c.windowID) {
		set[n] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		if !c.IsPublic(n) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, true
}

// IsPublic reports whether name is effectively a public parameter of this
// window.  Always false once the Context is no longer open.
func (c *Context) IsPublic(name string) bool {
	if !c.open() {
		return false
	}
	if c.pending.IsPublic(c.windowID, name) {
		return true
	}
	qn, bound := c.url.PublicQName(c.windowID, name)
	if !bound {
		return false
	}
	for k := range c.pubDel {
		if k.qn == qn {
			return false
		}
	}
	return true
}

// PublicValues returns the effective values of a public parameter.
func (c *Context) PublicValues(name string) ([]string, bool) {
	if !c.IsPublic(name) {
		return nil, false
	}
	if c.pending.IsPublic(c.windowID, name) {
		return c.pending.PublicValues(c.windowID, name), true
	}
	return c.url.PublicValues(c.windowID, name), true
}

// RenderParameters returns every effective parameter, private and public.
func (c *Context) RenderParameters() (map[string][]string, bool) {
	names, ok := c.Names()
	if !ok {
		return nil, false
	}
	out := make(map[string][]string, len(names))
	for _, n := range names {
		v, _ := c.Values(n)
		out[n] = v
	}
	seen := make(map[string]struct{})
	for _, n := range c.url.PublicNames(c.windowID) {
		seen[n] = struct{}{}
	}
	for _, n := range c.pending.PublicNames(c.windowID) {
		seen[n] = struct{}{}
	}
	for n := range seen {
		if v, ok := c.PublicValues(n); ok {
			out[n] = v
		}
	}
	return out, true
}

// Events returns the outbound events, creating the list on first use.
// Readable after Close; ok is false only after Release.
func (c *Context) Events() ([]Event, bool) {
	if c.phase == Released {
		return nil, false
	}
	if c.events == nil {
		c.events = []Event{}
	}
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out, true
}

// URL returns the working URL after Close, for rendering links.
func (c *Context) URL() (*portalurl.URL, bool) {
	if c.phase != Closed {
		return nil, false
	}
	return c.url, true
}

/*──────────────────────────────── lifecycle ───────────────────────────────*/

// Close merges the pending state exactly once.  Later calls are no-ops.
func (c *Context) Close() {
	next, ok := transition(c.phase, Closed)
	if !ok {
		return
	}
	c.phase = next

	d := c.filter.Filter(c.windowID, c.delta())
	d.WindowID = c.windowID
	c.url.MergeWindow(d)
	if c.req != nil {
		c.req.MergePortalURL(c.url, c.windowID)
	}
	metrics.ResponseCloseTotal.Inc()

	zap.L().Debug("window response closed",
		zap.String("window", c.windowID),
		zap.String("mode", string(d.Mode)),
		zap.String("state", string(d.WindowState)),
		zap.Int("private_set", len(d.SetPrivate)),
		zap.Int("private_removed", len(d.RemovePrivate)),
		zap.Int("public_changes", len(d.PublicChanges)))
}

// Release drops every pending change and the working URL.  Releasing an
// open Context discards its changes without merging.
func (c *Context) Release() {
	from := c.phase
	next, ok := transition(c.phase, Released)
	if !ok {
		return
	}
	c.phase = next
	if from == Open {
		metrics.ResponseReleaseUnmergedTotal.Inc()
		zap.L().Debug("window response released before close",
			zap.String("window", c.windowID))
	}

	c.mode = ""
	c.state = ""
	c.pending = params.New()
	c.removed = map[string]struct{}{}
	c.pubAdd = map[pubKey]struct{}{}
	c.pubDel = map[pubKey]struct{}{}
	c.events = nil
	c.url = portalurl.New()
	c.req = nil
}

// delta folds the pending changes into one Delta.  Public removals come
// before public adds, each sorted for a stable merge order.
func (c *Context) delta() portalurl.Delta {
	d := portalurl.Delta{
		WindowID:    c.windowID,
		Mode:        c.mode,
		WindowState: c.state,
	}

	if ws := c.pending.Window(c.windowID); ws != nil && len(ws.Private) > 0 {
		d.SetPrivate = make(map[string][]string, len(ws.Private))
		for k, v := range ws.Private {
			d.SetPrivate[k] = params.CloneValues(v)
		}
	}
	for name := range c.removed {
		d.RemovePrivate = append(d.RemovePrivate, name)
	}
	sort.Strings(d.RemovePrivate)

	dels := sortedKeys(c.pubDel)
	for _, k := range dels {
		d.PublicChanges = append(d.PublicChanges, portalurl.PublicChange{
			Name: k.id, QName: k.qn, Remove: true,
		})
	}
	for _, k := range sortedKeys(c.pubAdd) {
		d.PublicChanges = append(d.PublicChanges, portalurl.PublicChange{
			Name:   k.id,
			QName:  k.qn,
			Values: c.pending.PublicValues(c.windowID, k.id),
		})
	}
	return d
}

func sortedKeys(m map[pubKey]struct{}) []pubKey {
	out := make([]pubKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].qn.String() != out[j].qn.String() {
			return out[i].qn.String() < out[j].qn.String()
		}
		return out[i].id < out[j].id
	})
	return out
}
