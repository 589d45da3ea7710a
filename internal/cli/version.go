package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/mws-orders-client/pkg/orders"
)

func newVersionCommand() *cobra.Command {
	var extended bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "mws-orders %s\n", versionInfo.Version)
			if extended {
				fmt.Fprintf(w, "Commit: %s\n", versionInfo.Commit)
				fmt.Fprintf(w, "Built: %s\n", versionInfo.BuildDate)
				fmt.Fprintf(w, "Go: %s\n", runtime.Version())
				fmt.Fprintf(w, "Orders API: %s\n", orders.ServiceVersion)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
	return cmd
}
