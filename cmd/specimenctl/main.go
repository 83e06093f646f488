// Command specimenctl drives the specimen collection workflow from a terminal:
// collections, specimens, workflow steps, export and search.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
