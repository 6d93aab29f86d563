// Command ctingest ingests CloudTrail log archives from S3 into a local
// data directory and writes a per-run integrity report.
package main

import (
	"fmt"
	"os"

	"github.com/mfaulds/ct-ingest/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
