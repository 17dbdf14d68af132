package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/vidharvest/internal/app"
	"github.com/yourusername/vidharvest/internal/infrastructure"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger size and recent runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := app.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		limit, _ := cmd.Flags().GetInt("limit")

		ledger, err := infrastructure.OpenLedger(config.Ledger)
		if err != nil {
			return fmt.Errorf("failed to open ledger: %w", err)
		}
		defer ledger.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Ledger (%s): %d completed items\n", config.Ledger.Backend, ledger.Len())

		if !config.History.Enabled {
			fmt.Fprintln(out, "Run history disabled")
			return nil
		}

		store, err := infrastructure.NewSQLiteStore(config.History.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		defer store.Close()

		runs, err := store.RecentRuns(limit)
		if err != nil {
			return fmt.Errorf("failed to load run history: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTARTED\tDURATION\tTOTAL\tCOMPLETED\tFAILED\tUNPROCESSED\tINTERRUPTED")
		for _, run := range runs {
			duration := "running"
			if run.FinishedAt != nil {
				duration = run.Duration().Round(time.Second).String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%t\n",
				truncate(run.RunID, 8),
				run.StartedAt.Local().Format("2006-01-02 15:04:05"),
				duration,
				run.Total,
				run.Succeeded,
				run.Failed,
				run.Unprocessed,
				run.Interrupted)
		}
		return w.Flush()
	},
}

func init() {
	statsCmd.Flags().IntP("limit", "n", 10, "Number of recent runs to show")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
