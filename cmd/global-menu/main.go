package main

import (
	"context"
	"os"

	"global-menu/cmd/global-menu/commands"
)

func main() {
	if err := commands.Root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
