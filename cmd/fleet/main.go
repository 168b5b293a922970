package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/Iron-Ham/fleet/internal/cmd"
)

func main() {
	os.Exit(run())
}

func run() int {
	// A .env file in the working directory may supply FLEET_* settings.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}
