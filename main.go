package main

import (
	"os"

	"github.com/specloom/specloom/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
