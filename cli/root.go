package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"uartbl/config"
	"uartbl/logger"
)

// NewRootCmd builds the uartbl command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "uartbl",
		Short: "Serial bootloader and flash dump toolkit",
		Long: `Host-side tools for a device attached over a UART: trigger the ROM
bootloader through the RESET/BOOT lines, dump the external flash as Intel HEX,
and probe the firmware's UART receive timeout.

Examples:
  uartbl bootloader /dev/ttyUSB0                  # Enter the ROM bootloader
  uartbl dump /dev/ttyUSB0 > flash.hex            # Dump external flash
  uartbl probe /dev/ttyUSB0 --all                 # Test every probe size
  uartbl simulate --listen :9999 &                # Start a simulated device
  uartbl dump tcp://localhost:9999 --bin fs.bin   # Dump it and decode`,
		Version:       "0.3.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		NewBootloaderCmd(),
		NewDumpCmd(),
		NewProbeCmd(),
		newPortsCmd(),
		newServeCmd(),
		newSimulateCmd(),
	)
	return root
}

// Execute runs the uartbl command tree and exits
func Execute() {
	ExecuteCommand(NewRootCmd())
}

// ExecuteCommand runs cmd as a standalone program and exits
func ExecuteCommand(cmd *cobra.Command) {
	os.Exit(Run(cmd, os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes cmd with args and returns the process exit status. It is the
// only place where errors become exit codes.
func Run(cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	defer logger.Close()

	// cobra falls back to os.Args on nil
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	return exitCode(cmd.Execute(), stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}

	var rep *reportedError
	switch {
	case errors.As(err, &rep):
		// message already printed by the command
	case errors.Is(err, config.ErrMissingPort):
		fmt.Fprintln(stderr, "Missing argument: serial port")
	default:
		fmt.Fprintln(stderr, "error:", err)
	}
	return 1
}

// reportedError marks an error whose message the command already printed
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	return &reportedError{err: err}
}

// portArg resolves the serial port from the first argument or environment
func portArg(cfg *config.Config) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > 1 {
			return fmt.Errorf("accepts at most 1 arg, received %d", len(args))
		}
		return cfg.ResolvePort(args)
	}
}

// bindCommon registers the flags every driver command shares and sets up
// logging before it runs
func bindCommon(cmd *cobra.Command, cfg *config.Config) {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	flags := cmd.Flags()
	flags.DurationVarP(&cfg.Timeout, "timeout", "t", cfg.Timeout, "read timeout")
	flags.IntVarP(&cfg.BaudRate, "baud", "b", cfg.BaudRate, "baud rate")
	flags.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "write logs to this directory (env "+config.EnvLogDir+")")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "debug logs on stderr")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd, cfg)
	}
}

func setupLogging(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.LogDir != "" {
		return logger.Init(cfg.LogDir)
	}
	if cfg.Verbose {
		logger.SetVerbose(cmd.ErrOrStderr())
	}
	return nil
}
