// Command meritctl is the operator tool of the selection board service:
// it checks rubric catalogs, scores a round offline and drives simulations
// against a running server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
