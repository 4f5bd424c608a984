package main

import "uartbl/cli"

func main() {
	cmd := cli.NewBootloaderCmd()
	cmd.Use = "serial-bl <port>"
	cli.ExecuteCommand(cmd)
}
