package main

import (
	"os"

	"example.com/amadvs/cmd/amadvs/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
