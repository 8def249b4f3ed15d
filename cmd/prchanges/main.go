package main

import (
	"os"

	"github.com/dshills/prchanges/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
