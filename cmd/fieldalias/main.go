// Package main provides the fieldalias CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/fieldalias/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
