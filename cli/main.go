package main

import (
	"os"

	"github.com/hookline-systems/hookline/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
