package main

import (
	"fmt"
	"os"

	mcpadapter "github.com/acekavi/docqa/internal/adapters/mcp"
	"github.com/acekavi/docqa/internal/bootstrap"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// stdout carries the MCP protocol; everything else goes to stderr.
	container, cleanup, err := bootstrap.NewWithOptions("docqa-mcp", bootstrap.Options{
		LogWriter: os.Stderr,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	server := mcpadapter.NewServer(container.Log, container.Questions, container.Extraction, version)
	container.Log.Info("mcp server on stdio")
	return server.ServeStdio()
}
