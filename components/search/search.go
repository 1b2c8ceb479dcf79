// components/search/search.go
//
// Search portlet – keeps its query private and reads the shared city as
// "town".  Setting a town here moves the weather window too.
package search

import (
	"bytes"
	"html/template"
	"reflect"
	"strings"

	"github.com/yanizio/portlet/internal/beanstate"
	"github.com/yanizio/portlet/internal/params"
	"github.com/yanizio/portlet/internal/portalurl"
	"github.com/yanizio/portlet/internal/portlet"
)

// compile-time assertions
var (
	_ portlet.Portlet      = (*Portlet)(nil)
	_ portlet.BeanProvider = (*Portlet)(nil)
	_ portlet.FormProvider = (*Portlet)(nil)
)

// TownQN is shared with the weather portlet's "city".
var TownQN = params.QName{Namespace: "urn:portal:travel", Local: "city"}

const historyLen = 5

// History is the scoped bean with the most recent queries, newest first.
type History struct {
	Last []string `json:"last" validate:"max=5,dive,max=200"`
}

// Push records q at the front, dropping repeats and the oldest entries.
func (h *History) Push(q string) {
	out := []string{q}
	for _, s := range h.Last {
		if s != q && len(out) < historyLen {
			out = append(out, s)
		}
	}
	h.Last = out
}

// Portlet implements portlet.Portlet.
type Portlet struct{}

func (p *Portlet) ID() string { return "search" }

func (p *Portlet) PublicParams() map[string]params.QName {
	return map[string]params.QName{"town": TownQN}
}

func (p *Portlet) ScopedBeans() []reflect.Type { return []reflect.Type{reflect.TypeOf(History{})} }

// ProcessAction handles q, town, and maximize fields.
func (p *Portlet) ProcessAction(a *portlet.Action) error {
	rc := a.Response
	if q := strings.TrimSpace(a.Form.Get("q")); q != "" {
		if err := rc.SetParameter("q", []string{q}); err != nil {
			return err
		}
		var h History
		if _, err := a.Beans.Load(rc, &h); err != nil {
			return err
		}
		h.Push(q)
		if err := a.Beans.Save(rc, &h); err != nil {
			return err
		}
	}
	if town := a.Form.Get("town"); town != "" {
		if err := rc.AddPublicParam(TownQN, "town", []string{town}); err != nil {
			return err
		}
	}
	switch a.Form.Get("maximize") {
	case "1":
		rc.SetWindowState(portalurl.StateMaximized)
	case "0":
		rc.SetWindowState(portalurl.StateNormal)
	}
	return nil
}

var viewTpl = template.Must(template.New("search").Parse(
	`<p>Query: {{ .Q }}{{ with .Town }} near {{ . }}{{ end }}</p>` +
		`{{ if .History }}<ul>{{ range .History }}<li>{{ . }}</li>{{ end }}</ul>{{ end }}`))

func (p *Portlet) Render(v portlet.View) (string, error) {
	var h History
	if v.Beans != nil {
		if _, err := v.Beans.Load(beanstate.WindowReader(v.URL, v.WindowID), &h); err != nil {
			return "", err
		}
	}
	data := map[string]any{
		"Q":       strings.Join(v.Params["q"], " "),
		"Town":    strings.Join(v.Public["town"], ", "),
		"History": h.Last,
	}
	var buf bytes.Buffer
	err := viewTpl.Execute(&buf, data)
	return buf.String(), err
}

func (p *Portlet) FormFields(_ portlet.View) template.HTML {
	return `<input name="q" placeholder="search">` +
		`<input name="town" placeholder="town">` +
		`<button>Search</button>`
}

// Register portlet at package init.
func init() { portlet.Register(&Portlet{}) }
