// Package main provides the filecarver CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/caseforge/filecarver/cmd/filecarver/commands"
)

var version = "dev"

func main() {
	if err := commands.Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
