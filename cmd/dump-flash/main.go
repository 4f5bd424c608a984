package main

import "uartbl/cli"

func main() {
	cmd := cli.NewDumpCmd()
	cmd.Use = "dump-flash <port>"
	cli.ExecuteCommand(cmd)
}
