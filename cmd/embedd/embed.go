package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var embedCmd = &cobra.Command{
	Use:   "embed [text]",
	Short: "Embed one text and print the JSON response",
	Long: `Embed a single text and print the same JSON the HTTP API returns.

With no argument, or with "-", the text is read from stdin.`,
	Example: `  embedd embed "the quick brown fox"
  echo "hello" | embedd embed`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	text, err := embedInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	a, err := buildApp(globalConfig, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	resp, err := a.svc.Embed(ctx, text)
	if err != nil {
		return err
	}
	resp.RequestID = uuid.NewString()
	return printJSON(cmd.OutOrStdout(), resp)
}

func embedInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// commandContext returns cmd's context or Background when run outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
