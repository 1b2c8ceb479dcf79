// components/weather/weather.go
//
// Weather portlet – shows a forecast for the shared "city" public parameter.
//
// The temperature unit is a render-state-scoped bean (Prefs), so the choice
// survives page reloads through the portal URL without any server state.
package weather

import (
	"bytes"
	"errors"
	"fmt"
	"hash/fnv"
	"html/template"
	"reflect"

	"github.com/yanizio/portlet/internal/beanstate"
	"github.com/yanizio/portlet/internal/params"
	"github.com/yanizio/portlet/internal/portalurl"
	"github.com/yanizio/portlet/internal/portlet"
)

// compile-time assertions
var (
	_ portlet.Portlet      = (*Portlet)(nil)
	_ portlet.BeanProvider = (*Portlet)(nil)
	_ portlet.Initializer  = (*Portlet)(nil)
	_ portlet.FormProvider = (*Portlet)(nil)
)

// CityQN is the public parameter this portlet reads as "city".
var CityQN = params.QName{Namespace: "urn:portal:travel", Local: "city"}

// Prefs is the scoped bean holding the display unit.
type Prefs struct {
	Unit string `json:"unit" validate:"oneof=C F"`
}

// Portlet implements portlet.Portlet.
type Portlet struct{}

func (p *Portlet) ID() string { return "weather" }

func (p *Portlet) PublicParams() map[string]params.QName {
	return map[string]params.QName{"city": CityQN}
}

func (p *Portlet) ScopedBeans() []reflect.Type { return []reflect.Type{reflect.TypeOf(Prefs{})} }

func (p *Portlet) Init(env portlet.Env) error {
	if env.Beans == nil {
		return errors.New("weather: no bean holder")
	}
	return nil
}

// ProcessAction handles unit, city, clear_city, and mode fields.
func (p *Portlet) ProcessAction(a *portlet.Action) error {
	rc := a.Response
	if unit := a.Form.Get("unit"); unit != "" {
		if err := a.Beans.Save(rc, &Prefs{Unit: unit}); err != nil {
			return err
		}
	}
	if city := a.Form.Get("city"); city != "" {
		if err := rc.AddPublicParam(CityQN, "city", []string{city}); err != nil {
			return err
		}
	}
	if a.Form.Get("clear_city") != "" {
		rc.RemovePublicParam(CityQN, "city")
	}
	switch m := portalurl.Mode(a.Form.Get("mode")); m {
	case "":
	case portalurl.ModeView, portalurl.ModeEdit, portalurl.ModeHelp:
		rc.SetMode(m)
	default:
		return fmt.Errorf("weather: unknown mode %q", m)
	}
	return nil
}

var viewTpl = template.Must(template.New("weather").Parse(
	`{{ if .City }}<p>{{ .City }}: {{ .Temp }}°{{ .Unit }}</p>{{ else }}<p>Pick a city.</p>{{ end }}` +
		`{{ if eq .Mode "edit" }}<p>Unit: {{ .Unit }}</p>{{ end }}`))

func (p *Portlet) Render(v portlet.View) (string, error) {
	prefs := Prefs{Unit: "C"}
	if v.Beans != nil {
		if _, err := v.Beans.Load(beanstate.WindowReader(v.URL, v.WindowID), &prefs); err != nil {
			return "", err
		}
	}
	city := ""
	if vals := v.Public["city"]; len(vals) > 0 {
		city = vals[0]
	}
	var buf bytes.Buffer
	err := viewTpl.Execute(&buf, map[string]any{
		"City": city,
		"Temp": Temperature(city, prefs.Unit),
		"Unit": prefs.Unit,
		"Mode": string(v.Mode),
	})
	return buf.String(), err
}

func (p *Portlet) FormFields(_ portlet.View) template.HTML {
	return `<input name="city" placeholder="city">` +
		`<select name="unit"><option>C</option><option>F</option></select>` +
		`<button>Update</button>`
}

// Temperature is a stable stand-in forecast derived from the city name.
func Temperature(city, unit string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(city))
	c := int(h.Sum32()%35) - 5
	if unit == "F" {
		return c*9/5 + 32
	}
	return c
}

// Register portlet at package init.
func init() { portlet.Register(&Portlet{}) }
