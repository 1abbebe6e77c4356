// Command rentshare keeps the fractional-ownership ledger of one rental
// property: 100 shares, rent deposited to a custody address and paid out to
// holders on withdrawal or share transfer.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
