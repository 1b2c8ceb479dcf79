package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/yanizio/portlet/internal/beanstate"
	"github.com/yanizio/portlet/internal/config"
	"github.com/yanizio/portlet/internal/filter"
	"github.com/yanizio/portlet/internal/middleware"
	"github.com/yanizio/portlet/internal/portlet"
	"github.com/yanizio/portlet/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the portal over HTTP until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := boot()
			if err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()
			if addr != "" {
				a.cfg.HTTP.ListenAddr = addr
			}

			beans := beanstate.NewHolder(a.reg)
			if err := portlet.InitAll(portlet.Env{Beans: beans}); err != nil {
				a.log.Errorw("init portlets", "err", err)
				return err
			}
			h, err := newHandler(a.cfg, beans)
			if err != nil {
				a.log.Errorw("build handler", "err", err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := server.Run(ctx, server.New(a.cfg.HTTP.ListenAddr, h)); err != nil {
				a.log.Errorw("http server", "err", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides http.listen_addr")
	return cmd
}

// newHandler mounts the portlet page behind the veto filter, plus
// Prometheus /metrics, all with the portal headers.
func newHandler(cfg *config.Config, beans *beanstate.Holder) (http.Handler, error) {
	veto, err := filter.New(cfg.Filter.DenyPublic, cfg.Filter.DenyPrivate, cfg.Filter.Rules...)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Headers)
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", portlet.Routes(beans, veto))
	return r, nil
}
