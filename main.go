package main

import (
	"fmt"
	"os"

	"github.com/vzahanych/styleai/internal/commands"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if err := commands.NewApp(version, buildTime, gitCommit).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
