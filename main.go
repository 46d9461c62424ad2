// Command attest runs and manages an attest node.
package main

import (
	"os"

	"bazil.org/attest/cli"
)

func main() {
	code := cli.Main()
	os.Exit(code)
}
