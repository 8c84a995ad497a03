package main

import (
	"os"

	"github.com/finsight/fingraph/cmd/fingraph"
)

func main() {
	if err := fingraph.Execute(); err != nil {
		os.Exit(1)
	}
}
