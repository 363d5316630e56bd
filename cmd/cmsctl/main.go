package main

import (
	"os"

	"github.com/incubrix/cms/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
