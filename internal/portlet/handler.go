// internal/portlet/handler.go
//
// HTTP surface for the portlet page.
//
// Routes() mounts two endpoints behind portal.Middleware:
//
//	GET  /                 render every window from the request's portal URL
//	POST /action/{window}  run one window's action, merge, 303 to the page
//
// The action flow is the render-state lifecycle in one request: open a
// response context for the window, let the portlet mutate it, Close() to
// merge into the request URL, and redirect to that URL.  A failing action
// releases its context, so none of its changes reach the page.
package portlet

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/portlet/internal/beanstate"
	"github.com/yanizio/portlet/internal/portal"
	"github.com/yanizio/portlet/internal/response"
)

var pageTpl = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Portal</title></head>
<body>
{{- range .Windows }}
  <section id="{{ .ID }}">
    <h2>{{ .ID }} <small>{{ .Mode }} / {{ .State }}</small></h2>
    {{ .HTML }}
    <form method="post" action="{{ .Action }}">
      {{ .Form }}
    </form>
  </section>
{{- end }}
</body>
</html>`))

// FormProvider is optional.  FormFields returns the inner HTML of the
// window's action form.
type FormProvider interface {
	FormFields(v View) template.HTML
}

type windowData struct {
	ID, Action  string
	Mode, State string
	HTML, Form  template.HTML
}

// Routes returns the page router.  filter vetoes window deltas on Close; nil
// means pass-through.
func Routes(beans *beanstate.Holder, filter response.Filter) chi.Router {
	r := chi.NewRouter()
	r.Use(portal.Middleware(filter))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		rc := portal.FromContext(r.Context())
		if err := BindAll(rc.URL()); err != nil {
			zap.L().Warn("public parameter bind failed", zap.Error(err))
		}

		var wins []windowData
		for _, p := range All() {
			v := NewView(rc.URL(), p.ID(), beans)
			html, err := p.Render(v)
			if err != nil {
				zap.L().Error("portlet render failed",
					zap.String("request", rc.ID),
					zap.String("window", p.ID()),
					zap.Error(err))
				html = "<p>unavailable</p>"
			}
			wd := windowData{
				ID:     p.ID(),
				Action: rc.Href("/action/" + p.ID()),
				Mode:   string(v.Mode),
				State:  string(v.State),
				HTML:   template.HTML(html),
			}
			if fp, ok := p.(FormProvider); ok {
				wd.Form = fp.FormFields(v)
			}
			wins = append(wins, wd)
		}

		var buf bytes.Buffer
		if err := pageTpl.Execute(&buf, map[string]any{"Windows": wins}); err != nil {
			zap.L().Error("page render failed", zap.Error(err))
			http.Error(w, "template error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	})

	r.Post("/action/{window}", func(w http.ResponseWriter, r *http.Request) {
		rc := portal.FromContext(r.Context())
		win := chi.URLParam(r, "window")
		p := Lookup(win)
		if p == nil {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if err := BindAll(rc.URL()); err != nil {
			zap.L().Warn("public parameter bind failed", zap.Error(err))
		}

		c := rc.NewResponse(win)
		if err := p.ProcessAction(&Action{Response: c, Form: r.PostForm, Beans: beans}); err != nil {
			c.Release()
			zap.L().Info("portlet action rejected",
				zap.String("request", rc.ID),
				zap.String("window", win),
				zap.Error(err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c.Close()

		http.Redirect(w, r, rc.Href("/"), http.StatusSeeOther)
	})

	return r
}
