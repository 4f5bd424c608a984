package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"uartbl/config"
	"uartbl/driver"
	"uartbl/protocol"
)

// NewProbeCmd exercises the firmware's UART receive timeout
func NewProbeCmd() *cobra.Command {
	cfg := config.Load(protocol.ProbeBaudRate)
	var (
		all   bool
		sizes []int
	)

	cmd := &cobra.Command{
		Use:   "probe <port>",
		Short: "Test the UART receive timeout with fixed-size bursts",
		Long: `Send bursts of 0xAA and expect the firmware to echo the burst length
as a single byte. The run stops at the first mismatch unless --all is given.

Examples:
  uartbl probe ` + config.ExamplePort() + `
  uartbl probe ` + config.ExamplePort() + ` --all --sizes 8,16,64`,
		Args: portArg(cfg),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, cfg, sizes, all)
		},
	}
	bindCommon(cmd, cfg)
	cmd.Flags().BoolVar(&all, "all", false, "test every size before reporting")
	cmd.Flags().IntSliceVar(&sizes, "sizes", protocol.ProbeSizes, "burst sizes to test")
	return cmd
}

func runProbe(cmd *cobra.Command, cfg *config.Config, sizes []int, all bool) error {
	for _, n := range sizes {
		if n < 1 || n > 255 {
			return fmt.Errorf("probe size %d out of range 1-255", n)
		}
	}

	port, err := driver.OpenSerial(cfg.Port, cfg.BaudRate, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Port, err)
	}
	defer port.Close()

	out := cmd.OutOrStdout()

	report, err := driver.ProbeTimeouts(driver.NewTransport(port, cfg.Timeout), sizes,
		driver.WithAggregate(all),
		driver.WithProbeHook(func(res driver.ProbeResult) {
			fmt.Fprintln(out, res.String())
		}),
	)

	if all {
		fmt.Fprintf(out, "%d/%d sizes passed\n", len(report.Results)-len(report.Failed()), len(sizes))
	}

	var mismatch *driver.ProbeMismatchError
	switch {
	case errors.As(err, &mismatch):
		return reported(err)
	case err != nil:
		return err
	}
	return nil
}
