package main

import (
	"github.com/joho/godotenv"

	"github.com/nextlevelbuilder/openclaw/cmd"
)

func main() {
	// Best effort. Env already set in the shell wins over .env values.
	_ = godotenv.Load()
	cmd.Execute()
}
