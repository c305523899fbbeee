package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

// UploadEndpoint is where both upload paths post their multipart forms.
const UploadEndpoint = "/files/upload"

// FileVisibility values accepted by the backend.
const (
	VisibilityPrivate = "private"
	VisibilityShared  = "shared"
	VisibilityPublic  = "public"
)

// ListFiles returns every file the user owns.
func (c *Client) ListFiles(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo
	if err := c.getJSON(ctx, "/files", &files); err != nil {
		return nil, err
	}

	return files, nil
}

// ListFilesByFolder returns the files directly inside a folder.
func (c *Client) ListFilesByFolder(ctx context.Context, folderID int64) ([]FileInfo, error) {
	var files []FileInfo
	if err := c.getJSON(ctx, fmt.Sprintf("/files/folder/%d", folderID), &files); err != nil {
		return nil, err
	}

	return files, nil
}

// GetFile retrieves one file's metadata.
func (c *Client) GetFile(ctx context.Context, id int64) (*FileInfo, error) {
	var f FileInfo
	if err := c.getJSON(ctx, fmt.Sprintf("/files/%d", id), &f); err != nil {
		return nil, err
	}

	return &f, nil
}

// DownloadFile streams a file's content into w and returns the byte count.
func (c *Client) DownloadFile(ctx context.Context, id int64, w io.Writer) (int64, error) {
	c.logger.Info("downloading file", slog.Int64("file_id", id))

	resp, err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/files/%d/download", id), nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("api: downloading file %d: %w", id, err)
	}

	c.logger.Info("download complete",
		slog.Int64("file_id", id),
		slog.Int64("bytes", n),
	)

	return n, nil
}

// UpdateFile renames a file, changes its visibility, or moves it.
func (c *Client) UpdateFile(ctx context.Context, id int64, req FileUpdateRequest) (*FileInfo, error) {
	var f FileInfo
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/files/%d", id), req, &f); err != nil {
		return nil, err
	}

	return &f, nil
}

// DeleteFile soft-deletes a file.
func (c *Client) DeleteFile(ctx context.Context, id int64) error {
	c.logger.Info("deleting file", slog.Int64("file_id", id))

	return c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/files/%d", id), nil, nil)
}

// SearchFiles searches the user's files by name.
func (c *Client) SearchFiles(ctx context.Context, query string) ([]FileInfo, error) {
	var files []FileInfo

	path := "/files/search?query=" + url.QueryEscape(query)
	if err := c.getJSON(ctx, path, &files); err != nil {
		return nil, err
	}

	return files, nil
}

type fileMoveRequest struct {
	TargetFolderID *int64 `json:"targetFolderId"`
}

// MoveFile moves a file into targetFolderID; nil moves it to the top level.
func (c *Client) MoveFile(ctx context.Context, id int64, targetFolderID *int64) (*FileInfo, error) {
	var f FileInfo

	req := fileMoveRequest{TargetFolderID: targetFolderID}
	if err := c.sendJSON(ctx, http.MethodPatch, fmt.Sprintf("/files/%d/move", id), req, &f); err != nil {
		return nil, err
	}

	return &f, nil
}

type bulkMoveRequest struct {
	FileIDs        []int64 `json:"fileIds"`
	TargetFolderID *int64  `json:"targetFolderId"`
}

// BulkMoveFiles moves several files into a folder in one request.
func (c *Client) BulkMoveFiles(ctx context.Context, fileIDs []int64, targetFolderID *int64) (*BulkMoveResponse, error) {
	c.logger.Info("bulk moving files", slog.Int("count", len(fileIDs)))

	var out BulkMoveResponse

	req := bulkMoveRequest{FileIDs: fileIDs, TargetFolderID: targetFolderID}
	if err := c.sendJSON(ctx, http.MethodPost, "/files/bulk-move", req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// RecentFiles returns the most recently uploaded files, newest first.
func (c *Client) RecentFiles(ctx context.Context, limit int) ([]FileInfo, error) {
	var files []FileInfo

	path := "/files/recent?limit=" + strconv.Itoa(limit)
	if err := c.getJSON(ctx, path, &files); err != nil {
		return nil, err
	}

	return files, nil
}
