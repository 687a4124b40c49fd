// Package main provides the entry point for the akin CLI.
package main

import (
	"os"

	"github.com/vimo-dev/akin/cmd/akin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
