// Command vetpain is the command-line front end for the pain assessment engine
// and the analgesic calculators.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand(os.Stdin).Execute(); err != nil {
		os.Exit(1)
	}
}
