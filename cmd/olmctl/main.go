package main

import (
	"os"

	"olm/cmd/olmctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
