package main

import (
	"os"

	"github.com/joseph-ayodele/docbatch/cmd/docbatch/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
