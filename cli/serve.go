package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"uartbl/api"
	"uartbl/config"
	"uartbl/driver"
	"uartbl/logger"
	"uartbl/protocol"
)

func newServeCmd() *cobra.Command {
	cfg := config.Load(protocol.BootloaderBaudRate)

	cmd := &cobra.Command{
		Use:   "serve <port>",
		Short: "Run the drivers from a websocket console",
		Long: `Serve a websocket endpoint at /ws. Clients send {"command": "BOOTLOADER"},
{"command": "DUMP"} or {"command": "PROBE", "all": true}; one command runs at a
time and its output is streamed back. The port is opened per command at the
driver's baud rate.

Examples:
  uartbl serve ` + config.ExamplePort() + ` --ws :8989`,
		Args: portArg(cfg),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, cfg)
		},
	}
	bindCommon(cmd, cfg)
	cmd.Flags().StringVar(&cfg.WSAddr, "ws", cfg.WSAddr, "websocket listen address")
	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	manager := driver.NewSerialManager(cfg.Port, cfg.Timeout, func(baudRate int) (driver.Port, error) {
		return driver.OpenSerial(cfg.Port, baudRate, cfg.Timeout)
	})
	handler := api.NewHandler(manager)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	srv := &http.Server{Addr: cfg.WSAddr, Handler: mux}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on ws://%s/ws\n", cfg.Port, cfg.WSAddr)
	logger.Info("Websocket console for %s on %s", cfg.Port, cfg.WSAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
