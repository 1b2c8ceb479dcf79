package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yanizio/portlet/internal/beanscope"
)

func newBeansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "beans",
		Short: "Print every render-state-scoped bean and its parameter name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := boot()
			if err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()
			return printBeans(cmd.OutOrStdout(), a.reg)
		},
	}
}

// printBeans writes one row per bean in canonical-name order.
func printBeans(w io.Writer, reg *beanscope.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tPARAM\tDECLARED")
	for _, d := range reg.Descriptors() {
		declared := "no"
		if d.DeclaredName != "" {
			declared = "yes"
		}
		fmt.Fprintf(tw, "%s\t%q\t%s\n", d.CanonicalName, d.ParamName, declared)
	}
	return tw.Flush()
}
