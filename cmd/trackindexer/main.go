// Command trackindexer ingests tracks into the hybrid index and queries it.
//
//	trackindexer serve --config config.yaml
//	trackindexer ingest USRC17607839 --wait
//	trackindexer query "melancholic piano ballad" --top-k 5
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
