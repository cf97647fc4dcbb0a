// Package main is the entry point for the tonie-app CLI.
package main

import (
	"fmt"
	"os"

	"github.com/FalkoBaeker/tonie-app/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
