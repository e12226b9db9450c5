package main

import (
	"fmt"
	"os"

	"github.com/metaproteo/termquant/cmd/termquant/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
