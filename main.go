package main

import (
	"os"

	"github.com/sikenali/DTOLPK/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
