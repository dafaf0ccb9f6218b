// confloom is the command-line client for working with network-device
// configurations: parse, fmt, diff, interfaces, template, and an
// interactive workspace shell.
package main

import (
	"os"

	"github.com/confloom/confloom/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
