package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"binswap/internal/cli"
)

func main() {
	// Remote store credentials may live in a local .env; absence is fine.
	_ = godotenv.Load()

	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
