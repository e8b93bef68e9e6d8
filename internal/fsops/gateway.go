package fsops

import (
	"context"
	"time"
)

// Entry is a single child of a listed directory.
type Entry struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	IsDir        bool      `json:"is_dir"`
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modified_time"`
}

// Metadata describes a file or directory on disk.
type Metadata struct {
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modified_time"`
	CreatedTime  time.Time `json:"created_time"`
	IsDir        bool      `json:"is_dir"`
	Checksum     string    `json:"checksum,omitempty"`
}

// Gateway is the only way the rest of the system touches the filesystem.
// Implementations must be safe for concurrent use.
type Gateway interface {
	// Rename changes the base name of a file in place. The original
	// extension is preserved; newName must not carry one. Fails if the
	// destination already exists.
	Rename(ctx context.Context, path, newName string) (string, error)

	// Move relocates a file or directory, creating missing parents of
	// the destination. Moving a directory onto an existing directory
	// merges its contents only when merge is set; any other occupied
	// destination is an error.
	Move(ctx context.Context, src, dst string, merge bool) error

	// CreateFolder makes the directory and any missing parents. An
	// already existing directory is not an error.
	CreateFolder(ctx context.Context, path string) error

	Delete(ctx context.Context, path string) error

	// ListDirectory returns children sorted directories first, then by
	// name case-insensitively.
	ListDirectory(ctx context.Context, path string) ([]Entry, error)

	PathExists(ctx context.Context, path string) (bool, error)

	// Stat returns metadata for path. When checksum is true and path is
	// a regular file, a SHA-256 digest of the contents is included.
	Stat(ctx context.Context, path string, checksum bool) (*Metadata, error)
}
