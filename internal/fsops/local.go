package fsops

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Local is the os-backed Gateway.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

var _ Gateway = (*Local)(nil)

func (l *Local) Rename(ctx context.Context, path, newName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateName(newName); err != nil {
		return "", fmt.Errorf("invalid name: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	// Keep the original extension for files; callers rename the title
	// part only.
	if !info.IsDir() {
		if ext := filepath.Ext(path); ext != "" && !strings.EqualFold(filepath.Ext(newName), ext) {
			newName += ext
		}
	}
	dst := filepath.Join(filepath.Dir(path), newName)
	if dst == path {
		return path, nil
	}
	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("destination already exists: %s", dst)
	}
	if err := os.Rename(path, dst); err != nil {
		return "", fmt.Errorf("failed to rename %s: %w", path, err)
	}
	return dst, nil
}

func (l *Local) Move(ctx context.Context, src, dst string, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", dst, err)
	}
	dstInfo, err := os.Stat(dst)
	switch {
	case err == nil && srcInfo.IsDir() && dstInfo.IsDir():
		if !merge {
			return fmt.Errorf("destination already exists: %s", dst)
		}
		return l.mergeContents(ctx, src, dst)
	case err == nil:
		return fmt.Errorf("destination already exists: %s", dst)
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("failed to stat %s: %w", dst, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move %s: %w", src, err)
	}
	return nil
}

// mergeContents moves each child of src into dst, recursing into
// directories that exist on both sides, then removes src if emptied.
func (l *Local) mergeContents(ctx context.Context, src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.Move(ctx, filepath.Join(src, e.Name()), filepath.Join(dst, e.Name()), true); err != nil {
			return err
		}
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove merged directory %s: %w", src, err)
	}
	return nil
}

func (l *Local) CreateFolder(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

func (l *Local) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

func (l *Local) ListDirectory(ctx context.Context, path string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:         de.Name(),
			Path:         filepath.Join(path, de.Name()),
			IsDir:        de.IsDir(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

func (l *Local) PathExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

func (l *Local) Stat(ctx context.Context, path string, checksum bool) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	md := &Metadata{
		Size:         info.Size(),
		ModifiedTime: info.ModTime(),
		CreatedTime:  info.ModTime(),
		IsDir:        info.IsDir(),
	}
	if checksum && !info.IsDir() {
		sum, err := fileChecksum(path)
		if err != nil {
			return nil, err
		}
		md.Checksum = sum
	}
	return md, nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
