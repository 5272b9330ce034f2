package main

import (
	"github.com/joho/godotenv"

	"github.com/mcoot/caseclicker-orchestrator/internal/cli"
)

func main() {
	// A missing .env is fine; the environment and flags still apply
	_ = godotenv.Load()

	cli.Execute()
}
