package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cloudvault/cloudvault-go/internal/api"
	"github.com/cloudvault/cloudvault-go/internal/journal"
)

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List files",
		Args:  cobra.NoArgs,
		RunE:  runLs,
	}

	cmd.Flags().Int64("folder", 0, "list only files in this folder")
	cmd.Flags().Bool("folders", false, "list folders instead of files")

	return cmd
}

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree [folder-id]",
		Short: "Display the folder hierarchy",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTree,
	}
}

func newContentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contents <folder-id>",
		Short: "List a folder's subfolders and files",
		Args:  cobra.ExactArgs(1),
		RunE:  runContents,
	}
}

func newMkdirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runMkdir,
	}

	cmd.Flags().Int64("parent", 0, "parent folder ID (omit for top level)")

	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <file-id> [local-path]",
		Short: "Download a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runGet,
	}
}

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <local-path>...",
		Short: "Upload one or more files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPut,
	}

	cmd.Flags().Int64("folder", 0, "destination folder ID (omit for top level)")
	cmd.Flags().String("visibility", "", "file visibility: private, shared or public")
	cmd.Flags().Bool("no-chunks", false, "upload whole files in a single request")
	cmd.Flags().IntP("parallel", "p", 0, "concurrent uploads (default from config)")

	return cmd
}

func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a file or folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runRm,
	}

	cmd.Flags().Bool("folder", false, "the ID names a folder, not a file")

	return cmd
}

func newMvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mv <id> [target-folder-id]",
		Short: "Move a file or folder (omit target for top level)",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runMv,
	}

	cmd.Flags().Bool("folder", false, "the ID names a folder, not a file")

	return cmd
}

func newRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <id> <new-name>",
		Short: "Rename a file or folder",
		Args:  cobra.ExactArgs(2),
		RunE:  runRename,
	}

	cmd.Flags().Bool("folder", false, "the ID names a folder, not a file")
	cmd.Flags().String("visibility", "", "also change file visibility: private, shared or public")

	return cmd
}

func newBulkMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk-move <file-id>...",
		Short: "Move several files in one request",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBulkMove,
	}

	cmd.Flags().Int64("to", 0, "target folder ID (omit for top level)")

	return cmd
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search files by name",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
}

func newRecentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently uploaded files",
		Args:  cobra.NoArgs,
		RunE:  runRecent,
	}

	cmd.Flags().Int("limit", 10, "number of files to show")

	return cmd
}

// parseID parses a numeric ID argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID %q", arg)
	}

	return id, nil
}

// folderIDFlag reads an optional int64 folder flag, returning nil when the
// flag was not set. Nil means the top level on the wire.
func folderIDFlag(cmd *cobra.Command, name string) (*int64, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}

	id, err := cmd.Flags().GetInt64(name)
	if err != nil {
		return nil, err
	}

	return &id, nil
}

// openJournal opens the transfer journal. Journal failures never fail the
// transfer itself; a nil store is returned and recording becomes a no-op.
func openJournal(logger *slog.Logger) *journal.Store {
	store, err := journal.Open(resolvedCfg.JournalPath, logger)
	if err != nil {
		logger.Warn("transfer journal unavailable", slog.String("error", err.Error()))
		return nil
	}

	return store
}

// recordTransfer writes a journal entry, tolerating a nil store.
func recordTransfer(ctx context.Context, store *journal.Store, logger *slog.Logger, direction, fileName string, size int64, err error) {
	if store == nil {
		return
	}

	status := journal.StatusCompleted
	detail := ""

	if err != nil {
		status = journal.StatusFailed
		detail = api.ErrorMessage(err)
	}

	if recErr := store.Record(ctx, direction, fileName, size, status, detail); recErr != nil {
		logger.Warn("recording transfer failed", slog.String("error", recErr.Error()))
	}
}

// lsJSONItem is the JSON output schema for a single file in ls output.
type lsJSONItem struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Visibility string `json:"visibility"`
	Folder     string `json:"folder,omitempty"`
	UploadedAt string `json:"uploaded_at"`
}

func printFilesJSON(files []api.FileInfo) error {
	out := make([]lsJSONItem, 0, len(files))
	for i := range files {
		out = append(out, lsJSONItem{
			ID:         files[i].ID,
			Name:       files[i].FileName,
			Size:       files[i].FileSize,
			Visibility: files[i].Visibility,
			Folder:     files[i].FolderName,
			UploadedAt: files[i].UploadDate.Format("2006-01-02T15:04:05Z"),
		})
	}

	return printJSON(out)
}

func printFilesTable(files []api.FileInfo) {
	sort.Slice(files, func(i, j int) bool {
		return files[i].FileName < files[j].FileName
	})

	headers := []string{"ID", "NAME", "SIZE", "VISIBILITY", "UPLOADED"}
	rows := make([][]string, 0, len(files))

	for i := range files {
		rows = append(rows, []string{
			strconv.FormatInt(files[i].ID, 10),
			files[i].FileName,
			formatSize(files[i].FileSize),
			files[i].Visibility,
			formatTime(files[i].UploadDate),
		})
	}

	printTable(os.Stdout, headers, rows)
}

func runLs(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	if foldersOnly, flagErr := cmd.Flags().GetBool("folders"); flagErr != nil {
		return flagErr
	} else if foldersOnly {
		return listFolders(ctx, client)
	}

	var files []api.FileInfo

	if cmd.Flags().Changed("folder") {
		folderID, flagErr := cmd.Flags().GetInt64("folder")
		if flagErr != nil {
			return flagErr
		}

		logger.Debug("ls", "folder_id", folderID)

		files, err = client.ListFilesByFolder(ctx, folderID)
	} else {
		logger.Debug("ls")

		files, err = client.ListFiles(ctx)
	}

	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}

	if flagJSON {
		return printFilesJSON(files)
	}

	printFilesTable(files)

	return nil
}

func listFolders(ctx context.Context, client *api.Client) error {
	folders, err := client.ListFolders(ctx)
	if err != nil {
		return fmt.Errorf("listing folders: %w", err)
	}

	if flagJSON {
		return printJSON(folders)
	}

	sort.Slice(folders, func(i, j int) bool {
		return folders[i].Name < folders[j].Name
	})

	rows := make([][]string, 0, len(folders))
	for i := range folders {
		parent := "-"
		if folders[i].ParentFolderID != nil {
			parent = strconv.FormatInt(*folders[i].ParentFolderID, 10)
		}

		rows = append(rows, []string{
			strconv.FormatInt(folders[i].ID, 10),
			folders[i].Name,
			parent,
			strconv.Itoa(folders[i].FileCount),
		})
	}

	printTable(os.Stdout, []string{"ID", "NAME", "PARENT", "FILES"}, rows)

	return nil
}

func runTree(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	// Without an argument, show each top-level folder as its own tree.
	if len(args) == 0 {
		roots, rootErr := client.RootFolders(ctx)
		if rootErr != nil {
			return fmt.Errorf("listing folders: %w", rootErr)
		}

		if flagJSON {
			return printJSON(roots)
		}

		for i := range roots {
			printFolderLine(roots[i], 0)
		}

		return nil
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	logger.Debug("tree", "folder_id", id)

	tree, err := client.FolderTree(ctx, id)
	if err != nil {
		return fmt.Errorf("fetching folder tree: %w", err)
	}

	if flagJSON {
		return printJSON(tree)
	}

	printTree(*tree, 0)

	return nil
}

func printFolderLine(f api.Folder, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Printf("%s%s/  (id %d, %d files)\n", indent, f.Name, f.ID, f.FileCount)
}

func printTree(t api.FolderTree, depth int) {
	printFolderLine(t.Folder, depth)

	for i := range t.SubFolders {
		printTree(t.SubFolders[i], depth+1)
	}
}

func runContents(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	logger.Debug("contents", "folder_id", id)

	contents, err := client.FolderContents(ctx, id)
	if err != nil {
		return fmt.Errorf("fetching folder contents: %w", err)
	}

	if flagJSON {
		return printJSON(contents)
	}

	for i := range contents.SubFolders {
		printFolderLine(contents.SubFolders[i], 0)
	}

	printFilesTable(contents.Files)

	return nil
}

// mkdirJSONOutput is the JSON output schema for the mkdir command.
type mkdirJSONOutput struct {
	Created string `json:"created"`
	ID      int64  `json:"id"`
}

func runMkdir(cmd *cobra.Command, args []string) error {
	name := args[0]
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	parentID, err := folderIDFlag(cmd, "parent")
	if err != nil {
		return err
	}

	logger.Debug("mkdir", "name", name)

	folder, err := client.CreateFolder(ctx, name, parentID)
	if err != nil {
		return fmt.Errorf("creating folder %q: %w", name, err)
	}

	if flagJSON {
		return printJSON(mkdirJSONOutput{Created: folder.Name, ID: folder.ID})
	}

	statusf("Created %s (id %d)\n", folder.Name, folder.ID)

	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	info, err := client.GetFile(ctx, id)
	if err != nil {
		return fmt.Errorf("resolving file %d: %w", id, err)
	}

	localPath := info.FileName
	if len(args) > 1 {
		localPath = args[1]
	}

	logger.Debug("get", "file_id", id, "local_path", localPath)

	jstore := openJournal(logger)
	if jstore != nil {
		defer jstore.Close()
	}

	// Download to a partial file, then rename into place so an interrupted
	// download never leaves a truncated target.
	partialPath := localPath + ".partial"

	f, err := os.Create(partialPath)
	if err != nil {
		return fmt.Errorf("creating %q: %w", partialPath, err)
	}

	n, dlErr := client.DownloadFile(ctx, id, f)
	f.Close()

	recordTransfer(ctx, jstore, logger, journal.DirectionDownload, info.FileName, n, dlErr)

	if dlErr != nil {
		os.Remove(partialPath)
		return fmt.Errorf("downloading %q: %w", info.FileName, dlErr)
	}

	if err := os.Rename(partialPath, localPath); err != nil {
		return fmt.Errorf("renaming download to %q: %w", localPath, err)
	}

	logger.Debug("download complete", "local_path", localPath, "bytes", n)
	statusf("Downloaded %s (%s)\n", localPath, formatSize(n))

	return nil
}

// putOptions gathers the flags and config that shape an upload.
type putOptions struct {
	folderID   *int64
	visibility string
	chunked    bool
	parallel   int
}

func putOptionsFromFlags(cmd *cobra.Command) (*putOptions, error) {
	folderID, err := folderIDFlag(cmd, "folder")
	if err != nil {
		return nil, err
	}

	visibility, err := cmd.Flags().GetString("visibility")
	if err != nil {
		return nil, err
	}

	switch visibility {
	case "", api.VisibilityPrivate, api.VisibilityShared, api.VisibilityPublic:
	default:
		return nil, fmt.Errorf("invalid visibility %q", visibility)
	}

	noChunks, err := cmd.Flags().GetBool("no-chunks")
	if err != nil {
		return nil, err
	}

	parallel, err := cmd.Flags().GetInt("parallel")
	if err != nil {
		return nil, err
	}

	if parallel <= 0 {
		parallel = resolvedCfg.ParallelUploads
	}

	return &putOptions{
		folderID:   folderID,
		visibility: visibility,
		chunked:    !noChunks && !resolvedCfg.DisableChunkedUpload,
		parallel:   parallel,
	}, nil
}

// uploadFields builds the extra multipart fields for an upload.
func (o *putOptions) uploadFields() map[string]string {
	fields := map[string]string{}

	if o.folderID != nil {
		fields["folderId"] = strconv.FormatInt(*o.folderID, 10)
	}

	if o.visibility != "" {
		fields["visibility"] = o.visibility
	}

	return fields
}

func runPut(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	opts, err := putOptionsFromFlags(cmd)
	if err != nil {
		return err
	}

	jstore := openJournal(logger)
	if jstore != nil {
		defer jstore.Close()
	}

	// Per-file progress lines interleave under concurrency, so a live
	// progress bar is only shown for a single upload.
	showProgress := len(args) == 1

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.parallel)

	for _, localPath := range args {
		g.Go(func() error {
			return uploadOne(gctx, client, jstore, logger, localPath, opts, showProgress)
		})
	}

	return g.Wait()
}

// uploadOne uploads a single local file, chunked or whole per opts.
func uploadOne(
	ctx context.Context, client *api.Client, jstore *journal.Store,
	logger *slog.Logger, localPath string, opts *putOptions, showProgress bool,
) error {
	fi, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stating local file: %w", err)
	}

	if fi.IsDir() {
		return fmt.Errorf("%q is a directory, not a file", localPath)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening local file: %w", err)
	}
	defer f.Close()

	name := filepath.Base(localPath)
	fields := opts.uploadFields()

	var progress api.ProgressFunc
	if showProgress {
		render := progressPrinter("Uploading " + name)
		progress = func(p api.UploadProgress) {
			render(p.LoadedBytes, p.TotalBytes)
		}
	}

	logger.Debug("put", "local_path", localPath, "size", fi.Size(), "chunked", opts.chunked)

	if opts.chunked {
		_, err = client.UploadInChunks(ctx, api.UploadEndpoint, name, f, fi.Size(), fields, progress)
	} else {
		_, err = client.UploadFile(ctx, api.UploadEndpoint, name, f, fi.Size(), fields, progress)
	}

	recordTransfer(ctx, jstore, logger, journal.DirectionUpload, name, fi.Size(), err)

	if err != nil {
		return fmt.Errorf("uploading %q: %s", name, api.ErrorMessage(err))
	}

	logger.Debug("upload complete", "file_name", name, "size", fi.Size())
	statusf("Uploaded %s (%s)\n", name, formatSize(fi.Size()))

	return nil
}

// rmJSONOutput is the JSON output schema for the rm command.
type rmJSONOutput struct {
	Deleted int64  `json:"deleted"`
	Kind    string `json:"kind"`
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	isFolder, err := cmd.Flags().GetBool("folder")
	if err != nil {
		return err
	}

	kind := "file"
	if isFolder {
		kind = "folder"
		err = client.DeleteFolder(ctx, id)
	} else {
		err = client.DeleteFile(ctx, id)
	}

	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", kind, id, err)
	}

	logger.Debug("delete complete", "kind", kind, "id", id)

	if flagJSON {
		return printJSON(rmJSONOutput{Deleted: id, Kind: kind})
	}

	statusf("Deleted %s %d\n", kind, id)

	return nil
}

func runMv(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	// A missing target means the top level.
	var target *int64

	if len(args) > 1 {
		t, parseErr := parseID(args[1])
		if parseErr != nil {
			return parseErr
		}

		target = &t
	}

	isFolder, err := cmd.Flags().GetBool("folder")
	if err != nil {
		return err
	}

	if isFolder {
		folder, mvErr := client.MoveFolder(ctx, id, target)
		if mvErr != nil {
			return fmt.Errorf("moving folder %d: %w", id, mvErr)
		}

		if flagJSON {
			return printJSON(folder)
		}

		statusf("Moved folder %s\n", folder.Name)

		return nil
	}

	file, err := client.MoveFile(ctx, id, target)
	if err != nil {
		return fmt.Errorf("moving file %d: %w", id, err)
	}

	logger.Debug("move complete", "file_id", id)

	if flagJSON {
		return printJSON(file)
	}

	statusf("Moved %s\n", file.FileName)

	return nil
}

func runRename(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	name := args[1]
	if name == "" {
		return fmt.Errorf("new name must not be empty")
	}

	isFolder, err := cmd.Flags().GetBool("folder")
	if err != nil {
		return err
	}

	visibility, err := cmd.Flags().GetString("visibility")
	if err != nil {
		return err
	}

	switch visibility {
	case "", api.VisibilityPrivate, api.VisibilityShared, api.VisibilityPublic:
	default:
		return fmt.Errorf("invalid visibility %q", visibility)
	}

	if isFolder {
		if visibility != "" {
			return fmt.Errorf("folders have no visibility")
		}

		folder, upErr := client.UpdateFolder(ctx, id, api.FolderUpdateRequest{Name: &name})
		if upErr != nil {
			return fmt.Errorf("renaming folder %d: %w", id, upErr)
		}

		if flagJSON {
			return printJSON(folder)
		}

		statusf("Renamed folder to %s\n", folder.Name)

		return nil
	}

	req := api.FileUpdateRequest{FileName: &name}
	if visibility != "" {
		req.Visibility = &visibility
	}

	file, err := client.UpdateFile(ctx, id, req)
	if err != nil {
		return fmt.Errorf("renaming file %d: %w", id, err)
	}

	logger.Debug("rename complete", "file_id", id)

	if flagJSON {
		return printJSON(file)
	}

	statusf("Renamed to %s\n", file.FileName)

	return nil
}

func runBulkMove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	fileIDs := make([]int64, 0, len(args))

	for _, arg := range args {
		id, parseErr := parseID(arg)
		if parseErr != nil {
			return parseErr
		}

		fileIDs = append(fileIDs, id)
	}

	target, err := folderIDFlag(cmd, "to")
	if err != nil {
		return err
	}

	logger.Debug("bulk-move", "count", len(fileIDs))

	resp, err := client.BulkMoveFiles(ctx, fileIDs, target)
	if err != nil {
		return fmt.Errorf("moving %d files: %w", len(fileIDs), err)
	}

	if flagJSON {
		return printJSON(resp)
	}

	statusf("Moved %d files\n", resp.MovedCount)

	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	logger.Debug("search", "query", query)

	files, err := client.SearchFiles(ctx, query)
	if err != nil {
		return fmt.Errorf("searching for %q: %w", query, err)
	}

	if flagJSON {
		return printFilesJSON(files)
	}

	printFilesTable(files)

	return nil
}

func runRecent(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	client, err := requireLogin(logger)
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	files, err := client.RecentFiles(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing recent files: %w", err)
	}

	if flagJSON {
		return printFilesJSON(files)
	}

	printFilesTable(files)

	return nil
}
