// Command h2h is the single-peer CLI of spec.md §4, grounded on the
// teacher's cmd/tracker and internal/client/cmd layout: a cobra root
// command with one subcommand per process.
package main

import (
	"fmt"
	"os"

	"github.com/hive2hive/h2h/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
