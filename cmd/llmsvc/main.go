package main

import (
	"os"

	"llmsvc/internal/cli"
)

func main() { os.Exit(cli.Main()) }
