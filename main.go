package main

import (
	"os"

	"github.com/arong/lmsengine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
