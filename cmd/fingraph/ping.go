package fingraph

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finsight/fingraph/pkg/config"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Probe the LLM service and the graph database",
	Long: `Probe the configured LLM service and graph database and report what
is wrong when either is unreachable. Exits non-zero if the LLM service is
down; a downed graph store is reported but only degrades ingestion.`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := buildLogger(cfg)
	client, err := buildClient(cfg, log)
	if err != nil {
		return err
	}
	ctx := context.Background()
	defer client.Close(ctx)

	statuses := client.PingDependencies(ctx)
	failed := false
	for _, name := range []string{"llm", "graph"} {
		status := statuses[name]
		if status.Healthy() {
			fmt.Printf("%-6s ok     %s\n", name, status.Endpoint)
			continue
		}
		fmt.Printf("%-6s %s  %s\n", name, status.State, status.Message)
		if status.Suggestion != "" {
			fmt.Printf("       hint: %s\n", status.Suggestion)
		}
		if name == "llm" {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("LLM service unavailable")
	}
	return nil
}
