// Command shopit is the terminal session client for the ShopIT API:
// it logs in, registers, and manages the locally persisted session.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
