package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"uartbl/config"
	"uartbl/driver"
	"uartbl/protocol"
)

// NewBootloaderCmd triggers the ROM bootloader backdoor
func NewBootloaderCmd() *cobra.Command {
	cfg := config.Load(protocol.BootloaderBaudRate)

	cmd := &cobra.Command{
		Use:   "bootloader <port>",
		Short: "Trigger the ROM bootloader through RESET/BOOT",
		Long: `Hold the device in reset, release it with the BOOT strap pin low, send
the baud detection token 55 55 and expect the acknowledgement 00 CC.
RESET is wired to DTR and BOOT to RTS.

Examples:
  uartbl bootloader ` + config.ExamplePort(),
		Args: portArg(cfg),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootloader(cmd, cfg)
		},
	}
	bindCommon(cmd, cfg)
	return cmd
}

func runBootloader(cmd *cobra.Command, cfg *config.Config) error {
	port, err := driver.OpenSerial(cfg.Port, cfg.BaudRate, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Port, err)
	}
	defer port.Close()

	out := cmd.OutOrStdout()

	err = driver.EnterBootloader(driver.NewTransport(port, cfg.Timeout))
	var mismatch *driver.HandshakeMismatchError
	switch {
	case errors.As(err, &mismatch):
		fmt.Fprintf(out, "error: %v\n", mismatch)
		return reported(err)
	case err != nil:
		return err
	}

	fmt.Fprintln(out, "success: received ACK")
	return nil
}
