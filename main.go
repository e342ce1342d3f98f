package main

import (
	"os"

	"github.com/Mikepicker/mailslot/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
