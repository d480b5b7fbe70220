package main

import (
	"os"
	"overrides/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
