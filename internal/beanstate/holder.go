// internal/beanstate/holder.go
//
// Render-state-scoped bean storage.
//
// Context
// -------
// A scoped bean lives in the portal URL.  Holder serializes the bean to JSON
// and stores it as the single value of the private render parameter the
// beanscope registry assigned to its type.  Loading reverses the step and
// validates the result with go-playground/validator, so a hand-edited URL
// cannot smuggle an invalid bean into a portlet.
//
// Writers and readers are small interfaces.  *response.Context satisfies
// all of them during an action; WindowReader adapts a merged portal URL for
// rendering.
//
// Notes
// -----
//   - A bean type the registry does not know yields ErrNotScoped.
//   - Oxford commas, two spaces after periods.
package beanstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yanizio/portlet/internal/beanscope"
	"github.com/yanizio/portlet/internal/portalurl"
)

var (
	ErrNotScoped = errors.New("beanstate: type is not render-state scoped")
	ErrNilBean   = errors.New("beanstate: nil bean")
)

// Writer stores private render parameters.
type Writer interface {
	SetParameter(name string, values []string) error
}

// Remover deletes private render parameters.
type Remover interface {
	RemoveParameter(name string)
}

// Reader reads private render parameters with explicit presence.
type Reader interface {
	Values(name string) ([]string, bool)
}

/*──────────────────────────────── holder ──────────────────────────────────*/

// Holder maps beans to their parameters through an activated registry.
type Holder struct {
	reg      *beanscope.Registry
	validate *validator.Validate
}

// NewHolder returns a Holder over reg.
func NewHolder(reg *beanscope.Registry) *Holder {
	return &Holder{reg: reg, validate: validator.New()}
}

// Registry returns the registry the holder resolves names with.
func (h *Holder) Registry() *beanscope.Registry { return h.reg }

// ParamName returns the parameter name for bean's type.
func (h *Holder) ParamName(bean any) (string, error) {
	if bean == nil {
		return "", ErrNilBean
	}
	t := reflect.TypeOf(bean)
	name, ok := h.reg.ParamNameForType(t)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotScoped, beanscope.CanonicalName(t))
	}
	return name, nil
}

// Save writes bean into w under its parameter name.
func (h *Holder) Save(w Writer, bean any) error {
	name, err := h.ParamName(bean)
	if err != nil {
		return err
	}
	if err := h.check(bean); err != nil {
		return err
	}
	raw, err := json.Marshal(bean)
	if err != nil {
		return fmt.Errorf("beanstate: encode %T: %w", bean, err)
	}
	return w.SetParameter(name, []string{string(raw)})
}

// Load decodes the bean stored in r into into, which must be a pointer.
// It reports false when the parameter is absent or carries no value.
func (h *Holder) Load(r Reader, into any) (bool, error) {
	if into == nil || reflect.TypeOf(into).Kind() != reflect.Pointer {
		return false, fmt.Errorf("beanstate: Load needs a pointer, got %T", into)
	}
	name, err := h.ParamName(into)
	if err != nil {
		return false, err
	}
	vals, ok := r.Values(name)
	if !ok || len(vals) == 0 {
		return false, nil
	}
	if err := json.Unmarshal([]byte(vals[0]), into); err != nil {
		zap.L().Warn("scoped bean decode failed",
			zap.String("param", name),
			zap.Error(err))
		return false, fmt.Errorf("beanstate: decode %T: %w", into, err)
	}
	if err := h.check(into); err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes bean's parameter from w.
func (h *Holder) Clear(w Remover, bean any) error {
	name, err := h.ParamName(bean)
	if err != nil {
		return err
	}
	w.RemoveParameter(name)
	return nil
}

// check validates struct beans; other kinds pass untouched.
func (h *Holder) check(bean any) error {
	t := reflect.TypeOf(bean)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	if err := h.validate.Struct(bean); err != nil {
		return fmt.Errorf("beanstate: invalid %s: %w", beanscope.CanonicalName(t), err)
	}
	return nil
}

/*──────────────────────────────── adapters ────────────────────────────────*/

type windowReader struct {
	u   *portalurl.URL
	win string
}

// WindowReader reads one window's private parameters from u.
func WindowReader(u *portalurl.URL, win string) Reader {
	return windowReader{u: u, win: win}
}

func (w windowReader) Values(name string) ([]string, bool) {
	if !w.u.HasPrivate(w.win, name) {
		return nil, false
	}
	return w.u.Values(w.win, name), true
}
