package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/cli/commands"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Falling back to OS environment variables.")
	}

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
