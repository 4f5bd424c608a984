package main

import "uartbl/cli"

func main() {
	cli.Execute()
}
