package main

import (
	"os"

	"github.com/AaronLay10/zbxport/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
