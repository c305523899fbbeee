package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudvault/cloudvault-go/internal/api"
	"github.com/cloudvault/cloudvault-go/internal/journal"
	"github.com/cloudvault/cloudvault-go/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and upload new or changed files",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}

	cmd.Flags().Int64("folder", 0, "destination folder ID (omit for top level)")
	cmd.Flags().Duration("debounce", watcher.DefaultDebounce, "quiet period before a changed file is uploaded")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	logger := buildLogger()

	fi, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stating %q: %w", dir, err)
	}

	if !fi.IsDir() {
		return fmt.Errorf("%q is not a directory", dir)
	}

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	folderID, err := folderIDFlag(cmd, "folder")
	if err != nil {
		return err
	}

	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return err
	}

	jstore := openJournal(logger)
	if jstore != nil {
		defer jstore.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle := func(ctx context.Context, path string) {
		uploadWatched(ctx, client, jstore, logger, path, folderID)
	}

	statusf("Watching %s — press Ctrl-C to stop\n", dir)

	return watcher.New(dir, debounce, handle, logger).Watch(ctx)
}

// uploadWatched uploads a single settled file from the watched directory.
// Errors are logged, not fatal — the watch keeps running.
func uploadWatched(
	ctx context.Context, client *api.Client, jstore *journal.Store,
	logger *slog.Logger, path string, folderID *int64,
) {
	fi, err := os.Stat(path)
	if err != nil {
		logger.Warn("watched file vanished before upload",
			slog.String("path", path), slog.String("error", err.Error()))

		return
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("opening watched file failed",
			slog.String("path", path), slog.String("error", err.Error()))

		return
	}
	defer f.Close()

	name := filepath.Base(path)

	fields := map[string]string{}
	if folderID != nil {
		fields["folderId"] = fmt.Sprintf("%d", *folderID)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, uploadTimeout(fi.Size()))
	defer cancel()

	_, err = client.UploadInChunks(uploadCtx, api.UploadEndpoint, name, f, fi.Size(), fields, nil)

	recordTransfer(ctx, jstore, logger, journal.DirectionUpload, name, fi.Size(), err)

	if err != nil {
		logger.Warn("watched upload failed",
			slog.String("file_name", name), slog.String("error", api.ErrorMessage(err)))

		return
	}

	statusf("Uploaded %s (%s)\n", name, formatSize(fi.Size()))
}

// uploadTimeout scales the per-upload deadline with file size so large
// files on slow links are not cut off by a fixed timeout.
func uploadTimeout(size int64) time.Duration {
	const perMiB = 30 * time.Second

	mib := size/(1<<20) + 1

	timeout := time.Duration(mib) * perMiB
	if timeout < 5*time.Minute {
		timeout = 5 * time.Minute
	}

	return timeout
}
