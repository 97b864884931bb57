package storage

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned by Download when the object does not exist.
var ErrNotFound = errors.New("object not found")

// FileInfo contains metadata about an object in storage
type FileInfo struct {
	Key         string
	Size        int64
	ModifiedAt  time.Time
	ContentHash string // Provider-specific content hash (if available)
}

// Client defines the interface for object storage operations
type Client interface {
	// List returns the objects whose keys start with prefix
	List(ctx context.Context, prefix string) ([]FileInfo, error)

	// Download retrieves the contents of an object
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Upload writes content under key
	Upload(ctx context.Context, key string, content io.Reader, contentType string) error

	// Delete removes an object
	Delete(ctx context.Context, key string) error
}

// JoinKey joins key segments with single slashes, ignoring empty segments.
func JoinKey(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, "/")
}

// FilterFiles filters file list by a predicate function
func FilterFiles(files []FileInfo, predicate func(FileInfo) bool) []FileInfo {
	var filtered []FileInfo
	for _, f := range files {
		if predicate(f) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// FindLatest returns the most recently modified file from a list
func FindLatest(files []FileInfo) *FileInfo {
	if len(files) == 0 {
		return nil
	}

	latest := &files[0]
	for i := 1; i < len(files); i++ {
		if files[i].ModifiedAt.After(latest.ModifiedAt) {
			latest = &files[i]
		}
	}
	return latest
}

// Prune deletes all but the newest keep objects under prefix and returns the deleted keys.
func Prune(ctx context.Context, client Client, prefix string, keep int) ([]string, error) {
	files, err := client.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(files) <= keep {
		return nil, nil
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModifiedAt.After(files[j].ModifiedAt)
	})

	var deleted []string
	for _, f := range files[keep:] {
		if err := client.Delete(ctx, f.Key); err != nil {
			return deleted, err
		}
		deleted = append(deleted, f.Key)
	}
	return deleted, nil
}
