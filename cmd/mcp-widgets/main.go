package main

import (
	"context"
	"os"

	"github.com/docker/mcp-widgets/cmd/mcp-widgets/commands"
)

// version is set at link time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := commands.Root(version).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
