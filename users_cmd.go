package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStorageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "storage",
		Short: "Show storage quota and usage",
		RunE:  runStorage,
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show account statistics",
		RunE:  runStats,
	}
}

// storageOutput is the JSON schema for `storage --json`.
type storageOutput struct {
	StorageUsed  int64   `json:"storage_used"`
	StorageLimit int64   `json:"storage_limit"`
	UsedPercent  float64 `json:"used_percent"`
}

func runStorage(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	info, err := client.StorageInfo(ctx)
	if err != nil {
		return fmt.Errorf("fetching storage info: %w", err)
	}

	var pct float64
	if info.StorageLimit > 0 {
		pct = float64(info.StorageUsed) / float64(info.StorageLimit) * 100
	}

	if flagJSON {
		return printJSON(storageOutput{
			StorageUsed:  info.StorageUsed,
			StorageLimit: info.StorageLimit,
			UsedPercent:  pct,
		})
	}

	fmt.Printf("Used:  %s / %s (%.1f%%)\n", formatSize(info.StorageUsed), formatSize(info.StorageLimit), pct)
	fmt.Printf("Free:  %s\n", formatSize(info.StorageLimit-info.StorageUsed))

	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	stats, err := client.DashboardStats(ctx)
	if err != nil {
		return fmt.Errorf("fetching stats: %w", err)
	}

	if flagJSON {
		return printJSON(stats)
	}

	fmt.Printf("Files:   %d\n", stats.TotalFiles)
	fmt.Printf("Folders: %d\n", stats.TotalFolders)
	fmt.Printf("Storage: %s / %s (%.1f%%)\n",
		formatSize(stats.StorageUsed), formatSize(stats.StorageLimit), stats.StoragePercentage)

	return nil
}
