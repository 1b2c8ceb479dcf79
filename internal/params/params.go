// internal/params/params.go
//
// Per-window render parameter store.
//
// Context
// -------
// Every window on an aggregated page owns two partitions of parameters:
//
//   - public   – name → {QName, values}.  The QName is the identifier that
//     other windows on the same page use to share the value.
//   - private  – name → values, scoped strictly to the owning window.
//
// A name is never public and private for the same window at once.  Values
// slices are never nil on the way out.  An empty slice means "present with
// no value", which keeps the name in enumeration but contributes nothing
// to the rendered URL.
//
// Naming contract
// ---------------
// Names beginning with ReservedPrefix belong to the container (generated
// names for render-state-scoped beans).  Public parameters may never use
// the prefix; SetPublic rejects them with ErrReservedName.
//
// Notes
// -----
//   - Store is not safe for concurrent writers.  One window response runs
//     on one goroutine; the portal URL does its own locking.
//   - Oxford commas, two spaces after periods.
package params

import (
	"errors"
	"sort"
	"strings"
)

// ReservedPrefix starts every container-generated parameter name.  U+FE34
// (PRESENTATION FORM FOR VERTICAL WAVY LOW LINE) does not occur in names an
// application would choose.
const ReservedPrefix = "︴"

var (
	// ErrNilValues rejects a nil values slice at the call boundary.
	ErrNilValues = errors.New("params: nil values")
	// ErrPublicName is returned when a private write targets a public name.
	ErrPublicName = errors.New("params: name is public for this window")
	// ErrReservedName is returned for public names using ReservedPrefix.
	ErrReservedName = errors.New("params: name uses the reserved prefix")
	// ErrEmptyName is returned for empty parameter names.
	ErrEmptyName = errors.New("params: empty name")
)

// IsReservedName reports whether name carries the container prefix.
func IsReservedName(name string) bool {
	return strings.HasPrefix(name, ReservedPrefix)
}

//
// QName
//

// QName identifies a public render parameter across windows.
type QName struct {
	Namespace string
	Local     string
}

// String renders the QName as "{namespace}local", or just "local" when the
// namespace is empty.
func (q QName) String() string {
	if q.Namespace == "" {
		return q.Local
	}
	return "{" + q.Namespace + "}" + q.Local
}

// PublicParam is one entry of a window's public partition.
type PublicParam struct {
	QName  QName
	Values []string
}

//
// Set
//

// Set is the parameter state of one window.
type Set struct {
	Public  map[string]PublicParam
	Private map[string][]string
}

func newSet() *Set {
	return &Set{
		Public:  make(map[string]PublicParam),
		Private: make(map[string][]string),
	}
}

// Clone returns a deep copy.
func (s *Set) Clone() *Set {
	out := newSet()
	for k, p := range s.Public {
		out.Public[k] = PublicParam{QName: p.QName, Values: CloneValues(p.Values)}
	}
	for k, v := range s.Private {
		out.Private[k] = CloneValues(v)
	}
	return out
}

//
// Store
//

// Store maps window id → *Set.  The zero value is not usable; call New.
type Store struct {
	windows map[string]*Set
}

// New returns an empty Store.
func New() *Store {
	return &Store{windows: make(map[string]*Set)}
}

func (s *Store) set(win string) *Set {
	ws, ok := s.windows[win]
	if !ok {
		ws = newSet()
		s.windows[win] = ws
	}
	return ws
}

// Window returns the Set for win, or nil when the window is unknown.
func (s *Store) Window(win string) *Set { return s.windows[win] }

// Windows returns the known window ids in sorted order.
func (s *Store) Windows() []string {
	out := make([]string, 0, len(s.windows))
	for w := range s.windows {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// SetPrivate adds or replaces a private parameter.
func (s *Store) SetPrivate(win, name string, values []string) error {
	if name == "" {
		return ErrEmptyName
	}
	if values == nil {
		return ErrNilValues
	}
	ws := s.set(win)
	if _, pub := ws.Public[name]; pub {
		return ErrPublicName
	}
	ws.Private[name] = CloneValues(values)
	return nil
}

// RemovePrivate deletes a private parameter.  Unknown names are ignored.
func (s *Store) RemovePrivate(win, name string) {
	if ws, ok := s.windows[win]; ok {
		delete(ws.Private, name)
	}
}

// SetPublic binds name to qn for win and stores its values.  A private
// parameter with the same name is dropped so the partitions stay disjoint.
func (s *Store) SetPublic(win, name string, qn QName, values []string) error {
	if name == "" {
		return ErrEmptyName
	}
	if IsReservedName(name) || IsReservedName(qn.Local) {
		return ErrReservedName
	}
	if values == nil {
		return ErrNilValues
	}
	ws := s.set(win)
	delete(ws.Private, name)
	ws.Public[name] = PublicParam{QName: qn, Values: CloneValues(values)}
	return nil
}

// RemovePublic deletes the public binding of name for win.
func (s *Store) RemovePublic(win, name string) {
	if ws, ok := s.windows[win]; ok {
		delete(ws.Public, name)
	}
}

// IsPublic reports whether name is in the public partition of win.
func (s *Store) IsPublic(win, name string) bool {
	ws, ok := s.windows[win]
	if !ok {
		return false
	}
	_, pub := ws.Public[name]
	return pub
}

// Names returns the private names of win, sorted.  Never nil.
func (s *Store) Names(win string) []string {
	ws, ok := s.windows[win]
	if !ok {
		return []string{}
	}
	return sortedKeys(ws.Private)
}

// Values returns a copy of the private values for name.  Never nil.
func (s *Store) Values(win, name string) []string {
	ws, ok := s.windows[win]
	if !ok {
		return []string{}
	}
	return CloneValues(ws.Private[name])
}

// PublicNames returns the public names of win, sorted.  Never nil.
func (s *Store) PublicNames(win string) []string {
	ws, ok := s.windows[win]
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(ws.Public))
	for k := range ws.Public {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PublicValues returns a copy of the public values for name.  Never nil.
func (s *Store) PublicValues(win, name string) []string {
	ws, ok := s.windows[win]
	if !ok {
		return []string{}
	}
	return CloneValues(ws.Public[name].Values)
}

// PublicQName returns the identifier bound to name for win.
func (s *Store) PublicQName(win, name string) (QName, bool) {
	ws, ok := s.windows[win]
	if !ok {
		return QName{}, false
	}
	p, ok := ws.Public[name]
	return p.QName, ok
}

//
// helpers
//

// CloneValues copies v, turning nil into an empty slice.
func CloneValues(v []string) []string {
	out := make([]string, len(v))
	copy(out, v)
	return out
}

func sortedKeys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
