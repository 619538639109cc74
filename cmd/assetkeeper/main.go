package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/harrison/assetkeeper/internal/cmd"
)

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
