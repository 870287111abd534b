package main

import (
	"os"

	"github.com/bimdev1/Cortex/cmd/cortex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
