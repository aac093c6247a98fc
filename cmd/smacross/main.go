package main

import (
	"os"

	"github.com/rustyeddy/smacross/cmd/smacross/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
