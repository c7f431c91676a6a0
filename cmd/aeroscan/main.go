package main

import (
	"os"

	"github.com/aeroscan/aeroscan/cmd/aeroscan/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
