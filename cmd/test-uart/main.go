package main

import "uartbl/cli"

func main() {
	cmd := cli.NewProbeCmd()
	cmd.Use = "test-uart <port>"
	cli.ExecuteCommand(cmd)
}
