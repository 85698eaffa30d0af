package main

import (
	"os"

	"github.com/aurelia/sfc-vite/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
