package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/vidharvest/internal/app"
	"github.com/yourusername/vidharvest/pkg/logger"
)

var logsCmd = &cobra.Command{
	Use:   "logs [category]",
	Short: "View pipeline or error event logs",
	Long:  `Print entries from the daily JSON event logs. Categories: pipeline (default), error.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := app.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		category := logger.CategoryPipeline
		if len(args) == 1 {
			category = logger.LogCategory(args[0])
		}
		if !logger.ValidCategory(category) {
			return fmt.Errorf("invalid category %q", category)
		}

		limit, _ := cmd.Flags().GetInt("limit")
		query, _ := cmd.Flags().GetString("search")
		dateStr, _ := cmd.Flags().GetString("date")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		date := time.Now()
		if dateStr != "" {
			date, err = time.Parse("2006-01-02", dateStr)
			if err != nil {
				return fmt.Errorf("invalid date %q, use YYYY-MM-DD", dateStr)
			}
		}

		reader := logger.NewLogReader(config.Logging.LogsDir)
		var entries []logger.LogEntry
		if query != "" {
			entries, err = reader.SearchLogs(category, date, query, limit)
		} else {
			entries, err = reader.ReadLogs(category, date, limit)
		}
		if err != nil {
			return fmt.Errorf("failed to read logs: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, entry := range entries {
			if jsonOutput {
				data, _ := json.Marshal(entry)
				fmt.Fprintln(out, string(data))
				continue
			}
			fmt.Fprintf(out, "%s %-5s %s%s\n", entry.Timestamp, strings.ToUpper(entry.Level), entry.Message, formatFields(entry.Fields))
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().IntP("limit", "n", 100, "Maximum number of entries (0 for all)")
	logsCmd.Flags().StringP("search", "s", "", "Only show entries containing this text")
	logsCmd.Flags().StringP("date", "d", "", "Log date (YYYY-MM-DD), defaults to today")
	logsCmd.Flags().BoolP("json", "j", false, "Output raw JSON entries")
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}
