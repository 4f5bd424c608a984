package cli

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"uartbl/config"
	"uartbl/logger"
	"uartbl/simulator"
)

func newSimulateCmd() *cobra.Command {
	cfg := config.Load(0)
	var (
		listen    string
		imagePath string
		reply     string
		silent    bool
		rxLimit   int
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a simulated device on a TCP port",
		Long: `Emulate the firmware and ROM bootloader on TCP. Open it from the other
commands as tcp://host:port. A frame ends when the line is idle for 20ms.

Examples:
  uartbl simulate --listen :9999
  uartbl simulate --listen :9999 --reply 0099     # Bad bootloader ACK
  uartbl simulate --listen :9999 --rx-buffer 32   # Truncating RX buffer`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(cmd, cfg); err != nil {
				return err
			}

			dev := simulator.NewDevice()
			dev.Silent = silent
			dev.RxLimit = rxLimit

			if reply != "" {
				b, err := hex.DecodeString(reply)
				if err != nil {
					return fmt.Errorf("--reply: %w", err)
				}
				dev.BootloaderReply = b
			}

			if imagePath != "" {
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				if len(data) > simulator.FlashSize {
					return fmt.Errorf("image is %d bytes, flash holds %d", len(data), simulator.FlashSize)
				}
				copy(dev.Flash, data)
			}

			srv, err := simulator.Listen(listen, dev)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			go func() {
				<-ctx.Done()
				srv.Close()
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "Simulated device on %s\n", srv.Addr())
			logger.Info("Simulator started on %s", srv.Addr())
			return srv.Serve()
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	flags := cmd.Flags()
	flags.StringVar(&listen, "listen", ":9999", "TCP listen address")
	flags.StringVar(&imagePath, "image", "", "binary file loaded at the start of flash")
	flags.StringVar(&reply, "reply", "", "bootloader reply to 55 55, hex (default 00cc)")
	flags.BoolVar(&silent, "silent", false, "never reply")
	flags.IntVar(&rxLimit, "rx-buffer", simulator.RxBufferSize, "RX buffer size in bytes")
	flags.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "write logs to this directory")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "debug logs on stderr")
	return cmd
}
