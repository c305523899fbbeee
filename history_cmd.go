package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cloudvault/cloudvault-go/internal/journal"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transfers from the local journal",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	cmd.Flags().Int("limit", 20, "number of entries to show")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	store, err := journal.Open(resolvedCfg.JournalPath, logger)
	if err != nil {
		return fmt.Errorf("opening transfer journal: %w", err)
	}
	defer store.Close()

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("reading transfer journal: %w", err)
	}

	if flagJSON {
		return printHistoryJSON(entries)
	}

	headers := []string{"ID", "WHEN", "DIRECTION", "NAME", "SIZE", "STATUS"}
	rows := make([][]string, 0, len(entries))

	for i := range entries {
		status := entries[i].Status
		if entries[i].Detail != "" {
			status += " (" + entries[i].Detail + ")"
		}

		rows = append(rows, []string{
			strconv.FormatInt(entries[i].ID, 10),
			formatTime(entries[i].CreatedAt),
			entries[i].Direction,
			entries[i].FileName,
			formatSize(entries[i].Size),
			status,
		})
	}

	printTable(os.Stdout, headers, rows)

	return nil
}

// historyJSONItem is the JSON output schema for a single journal entry.
type historyJSONItem struct {
	ID        int64  `json:"id"`
	Direction string `json:"direction"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

func printHistoryJSON(entries []journal.Entry) error {
	out := make([]historyJSONItem, 0, len(entries))
	for i := range entries {
		out = append(out, historyJSONItem{
			ID:        entries[i].ID,
			Direction: entries[i].Direction,
			Name:      entries[i].FileName,
			Size:      entries[i].Size,
			Status:    entries[i].Status,
			Detail:    entries[i].Detail,
			CreatedAt: entries[i].CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	return printJSON(out)
}
