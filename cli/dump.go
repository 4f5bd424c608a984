package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"uartbl/config"
	"uartbl/driver"
	"uartbl/logger"
	"uartbl/protocol"
)

// NewDumpCmd dumps the external flash as Intel HEX on stdout
func NewDumpCmd() *cobra.Command {
	cfg := config.Load(protocol.DumpBaudRate)
	var binPath string

	cmd := &cobra.Command{
		Use:   "dump <port>",
		Short: "Dump the external flash as Intel HEX",
		Long: `Send "dump_flash" to the firmware and copy every record it sends to
stdout until the end-of-file record. Status goes to stderr.

Examples:
  uartbl dump ` + config.ExamplePort() + ` > flash.hex
  uartbl dump ` + config.ExamplePort() + ` --bin flash.bin > flash.hex`,
		Args: portArg(cfg),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, cfg, binPath)
		},
	}
	bindCommon(cmd, cfg)
	cmd.Flags().StringVar(&binPath, "bin", "", "also decode the dump into this binary image")
	return cmd
}

func runDump(cmd *cobra.Command, cfg *config.Config, binPath string) error {
	port, err := driver.OpenSerial(cfg.Port, cfg.BaudRate, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Port, err)
	}
	defer port.Close()

	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	var capture bytes.Buffer
	sink := stdout
	if binPath != "" {
		sink = io.MultiWriter(stdout, &capture)
	}

	stats, err := driver.DumpFlash(driver.NewTransport(port, cfg.Timeout), sink)
	if errors.Is(err, driver.ErrReceiveTimeout) {
		fmt.Fprintln(stderr, "Timeout waiting for data")
		return reported(err)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(stderr, "Done")
	logger.Info("Dumped %d records (%d bytes) from %s", stats.Records, stats.Bytes, cfg.Port)

	if binPath == "" {
		return nil
	}
	return writeImage(stderr, &capture, binPath)
}

func writeImage(stderr io.Writer, dump io.Reader, path string) error {
	img, err := protocol.DecodeImage(dump, protocol.FillByte)
	if err != nil {
		return fmt.Errorf("decode dump: %w", err)
	}
	if err := os.WriteFile(path, img.Data, 0644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}

	fmt.Fprintf(stderr, "Image: %d bytes at 0x%08X in %d segments, crc16=0x%04X -> %s\n",
		len(img.Data), img.Base, img.Segments, img.CRC(), path)
	return nil
}
