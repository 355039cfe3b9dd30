// Command legifrance-mcp serves Legifrance legal research tools to MCP
// clients over stdio or streamable HTTP.
package main

import (
	"context"
	"log/slog"
	"os"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("legifrance-mcp failed", "error", err)
		os.Exit(1)
	}
}
