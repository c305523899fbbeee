package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// ListFolders returns every folder the user owns.
func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	var folders []Folder
	if err := c.getJSON(ctx, "/folders", &folders); err != nil {
		return nil, err
	}

	return folders, nil
}

// RootFolders returns the user's top-level folders.
func (c *Client) RootFolders(ctx context.Context) ([]Folder, error) {
	var folders []Folder
	if err := c.getJSON(ctx, "/folders/root", &folders); err != nil {
		return nil, err
	}

	return folders, nil
}

// GetFolder retrieves one folder's metadata.
func (c *Client) GetFolder(ctx context.Context, id int64) (*Folder, error) {
	var f Folder
	if err := c.getJSON(ctx, fmt.Sprintf("/folders/%d", id), &f); err != nil {
		return nil, err
	}

	return &f, nil
}

// FolderTree returns a folder with its sub-tree expanded recursively.
func (c *Client) FolderTree(ctx context.Context, id int64) (*FolderTree, error) {
	var t FolderTree
	if err := c.getJSON(ctx, fmt.Sprintf("/folders/%d/tree", id), &t); err != nil {
		return nil, err
	}

	return &t, nil
}

// FolderContents returns a folder's direct sub-folders and files.
func (c *Client) FolderContents(ctx context.Context, id int64) (*FolderContents, error) {
	var fc FolderContents
	if err := c.getJSON(ctx, fmt.Sprintf("/folders/%d/contents", id), &fc); err != nil {
		return nil, err
	}

	return &fc, nil
}

// CreateFolder creates a folder under the given parent (nil = top level).
func (c *Client) CreateFolder(ctx context.Context, name string, parentFolderID *int64) (*Folder, error) {
	c.logger.Info("creating folder", slog.String("name", name))

	var f Folder

	req := FolderCreateRequest{Name: name, ParentFolderID: parentFolderID}
	if err := c.sendJSON(ctx, http.MethodPost, "/folders", req, &f); err != nil {
		return nil, err
	}

	return &f, nil
}

// UpdateFolder renames or reparents a folder.
func (c *Client) UpdateFolder(ctx context.Context, id int64, req FolderUpdateRequest) (*Folder, error) {
	var f Folder
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/folders/%d", id), req, &f); err != nil {
		return nil, err
	}

	return &f, nil
}

// DeleteFolder deletes a folder and its contents.
func (c *Client) DeleteFolder(ctx context.Context, id int64) error {
	c.logger.Info("deleting folder", slog.Int64("folder_id", id))

	return c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/folders/%d", id), nil, nil)
}

type folderMoveRequest struct {
	TargetParentFolderID *int64 `json:"targetParentFolderId"`
}

// MoveFolder reparents a folder; nil moves it to the top level.
func (c *Client) MoveFolder(ctx context.Context, id int64, targetParentFolderID *int64) (*Folder, error) {
	var f Folder

	req := folderMoveRequest{TargetParentFolderID: targetParentFolderID}
	if err := c.sendJSON(ctx, http.MethodPatch, fmt.Sprintf("/folders/%d/move", id), req, &f); err != nil {
		return nil, err
	}

	return &f, nil
}
