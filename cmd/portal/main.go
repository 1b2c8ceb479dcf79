// cmd/portal/main.go
//
// Portal – command-line entry point.
//
// Commands
// --------
//
//	portal serve   start the HTTP portal (default)
//	portal beans   print the scoped-bean parameter names and exit
//
// Start-up shared by both
// -----------------------
//
//  1. Load env vars (system-wide file → .env fallback).
//
//  2. Load config, then start the daily rotating logger.
//
//  3. Scan registered portlets for render-state-scoped beans, apply the
//     declared names from config, and activate the bean registry.  Any
//     registry error is fatal.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/portlet/internal/beanscope"
	"github.com/yanizio/portlet/internal/config"
	"github.com/yanizio/portlet/internal/logger"
	"github.com/yanizio/portlet/internal/portlet"

	_ "github.com/yanizio/portlet/components/search"  // demo portlet
	_ "github.com/yanizio/portlet/components/weather" // demo portlet
)

const serverEnvPath = "/usr/local/etc/portlet/global.env"

// loadEnv prefers the system-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "portal",
		Short:        "Portlet portal with URL-carried render state",
		SilenceUsage: true,
	}
	serve := newServeCmd()
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	root.AddCommand(serve, newBeansCmd())
	return root
}

// app is what every command needs after start-up.
type app struct {
	cfg *config.Config
	log *zap.SugaredLogger
	reg *beanscope.Registry
}

// boot runs start-up steps 2 and 3.
func boot() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logOut, err := logger.New(cfg.Log.Dir, cfg.Log.Tee || runningInTTY(), cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("start logger: %w", err)
	}

	reg, err := activateBeans(cfg)
	if err != nil {
		logOut.Errorw("bean registry", "err", err)
		return nil, err
	}
	logOut.Infow("bean registry active", "beans", reg.Len())
	return &app{cfg: cfg, log: logOut, reg: reg}, nil
}

// activateBeans builds the bean registry from the portlet scan and the
// names declared in config.
func activateBeans(cfg *config.Config) (*beanscope.Registry, error) {
	builder := beanscope.NewBuilder()
	resolver, err := portlet.ScanBeans(builder)
	if err != nil {
		return nil, fmt.Errorf("scan scoped beans: %w", err)
	}
	for _, b := range cfg.Beans {
		if err := builder.Declare(b.Type, b.ParamName); err != nil {
			return nil, fmt.Errorf("declare %s: %w", b.Type, err)
		}
	}
	reg, err := builder.Activate(resolver)
	if err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}
	return reg, nil
}
