package main

import (
	"fmt"
	"os"

	"github.com/adityasinghania3802/pub-sub-plivo/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
