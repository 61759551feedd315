package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Amaayu/Social-media-automaton/internal/core/config"
	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
	"github.com/Amaayu/Social-media-automaton/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show persisted run state per account",
	RunE:  runStatus,
}

var resetStatsCmd = &cobra.Command{
	Use:   "reset-stats [account-id]",
	Short: "Reset the cumulative counters of an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runResetStats,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetStatsCmd)
}

func openStorage(ctx context.Context) (*config.AppConfig, *postgres.DB, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("status commands need a configured database")
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	runStates := postgres.NewRunStateRepo(db)
	processed := postgres.NewProcessedRepo(db)

	for _, acc := range cfg.Accounts {
		state, err := runStates.Load(ctx, acc.ID)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Account %s\n", acc.ID)
		if state == nil {
			fmt.Fprintln(os.Stdout, "  no run state recorded")
			continue
		}

		active := "inactive"
		if state.IsActive {
			active = "active"
		}
		lastCheck := "never"
		if state.LastCheckTime != nil {
			lastCheck = state.LastCheckTime.Format(time.RFC3339)
		}
		fmt.Fprintf(os.Stdout, "  %s, last check %s\n", active, lastCheck)
		fmt.Fprintf(os.Stdout, "  detected=%d generated=%d published=%d errors=%d\n",
			state.Stats.Detected, state.Stats.Generated, state.Stats.Published, state.Stats.Errors)

		counts, err := processed.CountByStatus(ctx, acc.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "  comments: posted=%d failed=%d skipped=%d\n",
			counts[domain.StatusReplyPosted], counts[domain.StatusFailed], counts[domain.StatusSkipped])
	}
	return nil
}

func runResetStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	accountID := args[0]
	runStates := postgres.NewRunStateRepo(db)
	state, err := runStates.Load(ctx, accountID)
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("no run state for account %s", accountID)
	}

	state.Stats = domain.Stats{}
	if err := runStates.Save(ctx, state); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Stats reset for account %s\n", accountID)
	return nil
}
