// Command docrag is the entry point for the document question-answering
// service. It runs the HTTP API (`docrag serve`) and offers CLI commands for
// ingesting, querying, summarising and exporting documents locally.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/docrag-go/cmd/docrag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
