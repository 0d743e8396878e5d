package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcppkg "embedd/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio mode)",
	Long: `Start the Model Context Protocol server for agent integration.

Tools: embed_text generates an embedding, model_info reports the model
state. Logs go to stderr; stdout carries the protocol.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := buildApp(globalConfig, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server, err := mcppkg.NewServer(a.svc, version, mcppkg.WithLogger(logger))
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}
