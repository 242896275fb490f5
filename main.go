package main

import (
	"os"

	"github.com/spigell/matchning/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
