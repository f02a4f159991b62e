package main

import (
	"os"

	"spendcycle/internal/cli"
	"spendcycle/internal/logger"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	code := cli.Execute()
	logger.Sync()
	os.Exit(code)
}
