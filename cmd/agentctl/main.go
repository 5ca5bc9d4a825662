// Command agentctl is operational tooling around the actorrt library:
// it boots a Runtime over a chosen transport and runs a small
// producer/consumer pipeline so the wiring can be exercised end to end.
package main

import (
	"fmt"
	"os"

	"github.com/tenzoki/actorrt/cmd/agentctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
