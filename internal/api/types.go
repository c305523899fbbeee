package api

import "time"

// Wire types mirror the backend's JSON shapes. Field names are camelCase on
// the wire; timestamps are RFC3339.

// FileInfo describes a stored file.
type FileInfo struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"fileName"`
	FileSize   int64     `json:"fileSize"`
	MimeType   string    `json:"mimeType"`
	UploadDate time.Time `json:"uploadDate"`
	Visibility string    `json:"visibility"` // "private", "shared" or "public"
	FolderID   *int64    `json:"folderId"`
	FolderName string    `json:"folderName,omitempty"`
	IsDeleted  bool      `json:"isDeleted,omitempty"`
}

// Folder describes a folder and its direct counts.
type Folder struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	ParentFolderID *int64    `json:"parentFolderId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	FileCount      int       `json:"fileCount"`
	SubFolderCount int       `json:"subFolderCount"`
}

// FolderTree is a folder with its sub-tree expanded recursively.
type FolderTree struct {
	Folder

	SubFolders []FolderTree `json:"subFolders"`
}

// FolderContents is a folder with its direct children.
type FolderContents struct {
	Folder

	SubFolders []Folder   `json:"subFolders"`
	Files      []FileInfo `json:"files"`
}

// Plan is a subscription plan from the catalogue.
type Plan struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	StorageLimit int64   `json:"storageLimit"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	Features     string  `json:"features"`
}

// Subscription is a user's plan subscription.
type Subscription struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	PlanID    int64     `json:"planId"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	IsActive  bool      `json:"isActive"`
	AutoRenew bool      `json:"autoRenew"`
	Plan      *Plan     `json:"plan,omitempty"`
}

// UserProfile is the authenticated user's profile.
type UserProfile struct {
	ID           int64     `json:"id"`
	UserName     string    `json:"userName"`
	Email        string    `json:"email"`
	StorageUsed  int64     `json:"storageUsed"`
	StorageLimit int64     `json:"storageLimit"`
	CreatedAt    time.Time `json:"createdAt"`
	RootFolderID int64     `json:"rootFolderId"`
}

// StorageInfo is the user's quota usage.
type StorageInfo struct {
	StorageUsed  int64 `json:"storageUsed"`
	StorageLimit int64 `json:"storageLimit"`
}

// DashboardStats aggregates usage counters for the dashboard view.
type DashboardStats struct {
	StorageUsed       int64   `json:"storageUsed"`
	StorageLimit      int64   `json:"storageLimit"`
	StoragePercentage float64 `json:"storagePercentage"`
	TotalFiles        int     `json:"totalFiles"`
	TotalFolders      int     `json:"totalFolders"`
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the successful login payload. RefreshToken is optional —
// servers without rotation omit it.
type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Email        string `json:"email"`
	UserName     string `json:"userName"`
	StorageUsed  int64  `json:"storageUsed"`
	StorageLimit int64  `json:"storageLimit"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserName string `json:"userName"`
}

// ChangePasswordRequest rotates the account password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// MessageResponse is the generic acknowledgement payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// FileUpdateRequest renames a file, changes visibility, or moves it.
// Nil fields are left unchanged by the server.
type FileUpdateRequest struct {
	FileName   *string `json:"fileName,omitempty"`
	Visibility *string `json:"visibility,omitempty"`
	FolderID   *int64  `json:"folderId,omitempty"`
}

// BulkMoveResponse reports how many files a bulk move affected.
type BulkMoveResponse struct {
	Message    string `json:"message"`
	MovedCount int    `json:"movedCount"`
}

// FolderCreateRequest creates a folder. A nil parent means top level.
type FolderCreateRequest struct {
	Name           string `json:"name"`
	ParentFolderID *int64 `json:"parentFolderId,omitempty"`
}

// FolderUpdateRequest renames or reparents a folder.
type FolderUpdateRequest struct {
	Name           *string `json:"name,omitempty"`
	ParentFolderID *int64  `json:"parentFolderId,omitempty"`
}

// ProfileUpdateRequest changes the user's name or email.
type ProfileUpdateRequest struct {
	UserName *string `json:"userName,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// SubscriptionCreateRequest subscribes the user to a plan.
type SubscriptionCreateRequest struct {
	PlanID    int64 `json:"planId"`
	AutoRenew bool  `json:"autoRenew,omitempty"`
}
