package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"uartbl/driver"
)

func newPortsCmd() *cobra.Command {
	var sim []string

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List candidate serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := driver.NewScanner().Discover(sim...)
			if err != nil {
				return fmt.Errorf("list ports: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(ports) == 0 {
				fmt.Fprintln(out, "No candidate ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&sim, "sim", nil, "also list these simulator addresses (tcp://host:port)")
	return cmd
}
