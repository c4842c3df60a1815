// Package main is the entry point for the resultstore CLI.
//
// Usage:
//
//	resultstore [flags] <command> [args]
//
// Commands:
//
//	store    - Validate and store result documents
//	get      - Print a stored document
//	list     - List document ids
//	iterate  - Print every stored document as JSON lines
//	exists   - Report whether a document is stored
//	delete   - Delete a stored document
package main

import (
	"os"

	"github.com/thoth-station/resultstore/cmd/resultstore/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
