package main

import (
	"github.com/chucky-1/stockledger/internal/cli"

	"os"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
