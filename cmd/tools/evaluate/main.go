package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/convo-eval/internal/observability"
)

func main() {
	if err := godotenv.Load(); err != nil {
		observability.WithComponent("cli").Debugf("no .env file loaded: %v", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
