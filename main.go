package main

import (
	"os"

	"codescope/cmd"
	"codescope/pkg/logging"
)

func main() {
	defer logging.Sync()

	if err := cmd.Execute(); err != nil {
		logging.Sugar().Errorf("command failed: %v", err)
		os.Exit(1)
	}
}
