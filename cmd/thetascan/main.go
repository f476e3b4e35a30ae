package main

import (
	"os"

	"github.com/wonny/thetascan/cmd/thetascan/commands"
)

// main is the entry point for the thetascan CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/thetascan [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
