package main

import (
	"fmt"
	"os"

	"github.com/revenue-reconciliation/cmd/reconctl/cmd"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	root := cmd.NewRootCommand(cmd.OpenStoreBackend)
	root.Version = fmt.Sprintf("%s (commit %s)", version, commit)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
