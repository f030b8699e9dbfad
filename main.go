package main

import (
	"os"

	"github.com/muonblog/mycoserve/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
