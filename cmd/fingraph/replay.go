package fingraph

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/finsight/fingraph/pkg/config"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay journaled statements from degraded runs",
	Long: `Drain the replay journal into the graph database. Statements were
journaled during degraded runs when the database was unreachable; because
every statement is an idempotent upsert, replaying is safe to repeat.`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Replay.Path == "" {
		return fmt.Errorf("no replay journal configured (set replay.path)")
	}

	log := buildLogger(cfg)
	client, err := buildClient(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer client.Close(context.Background())

	stats, err := client.ReplayJournal(ctx)
	if stats != nil {
		fmt.Printf("Replayed %d entries (%d statements)", stats.EntriesReplayed, stats.StatementsExecuted)
		if stats.EntriesFailed > 0 {
			fmt.Printf(", %d failed", stats.EntriesFailed)
		}
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("replay stopped: %w", err)
	}
	return nil
}
