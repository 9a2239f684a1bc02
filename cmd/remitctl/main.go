package main

import (
	"os"

	"github.com/remitflow/remitflow-backend/cmd/remitctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
