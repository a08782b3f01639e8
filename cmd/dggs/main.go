// Command dggs converts between DGGS cell identifiers and geographic
// coordinates, and inspects cell identifier variables stored in zarr groups.
package main

import (
	"fmt"
	"os"

	_ "github.com/qri-io/dggs-go/healpix"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
