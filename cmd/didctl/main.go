// Command didctl generates, resolves, signs with and verifies DIDs, and
// serves the same operations over HTTP.
package main

import (
	"os"

	"github.com/pilacorp/go-did-sdk/cmd/didctl/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
