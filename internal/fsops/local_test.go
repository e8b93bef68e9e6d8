package fsops

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRenamePreservesExtension(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "old.name.mkv")
	writeFile(t, src, "x")

	got, err := NewLocal().Rename(ctx, src, "New Name")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	want := filepath.Join(dir, "New Name.mkv")
	if got != want {
		t.Errorf("Rename returned %q, want %q", got, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("renamed file missing: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still exists")
	}
}

func TestRenameRejectsExistingDestination(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mkv"), "a")
	writeFile(t, filepath.Join(dir, "b.mkv"), "b")

	if _, err := NewLocal().Rename(ctx, filepath.Join(dir, "a.mkv"), "b"); err == nil {
		t.Fatal("expected error for existing destination")
	}
}

func TestRenameRejectsInvalidName(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mkv")
	writeFile(t, src, "a")

	if _, err := NewLocal().Rename(ctx, src, "bad:name"); err == nil {
		t.Fatal("expected error for invalid name")
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source should be untouched: %v", err)
	}
}

func TestMoveCreatesParents(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mkv")
	dst := filepath.Join(dir, "Movies", "A (2020)", "a.mkv")
	writeFile(t, src, "a")

	if err := NewLocal().Move(ctx, src, dst, false); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("moved file missing: %v", err)
	}
}

func TestMoveMergesDirectories(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "Season 01", "e1.mkv"), "1")
	writeFile(t, filepath.Join(dir, "src", "e2.mkv"), "2")
	writeFile(t, filepath.Join(dir, "dst", "Season 01", "e0.mkv"), "0")

	if err := NewLocal().Move(ctx, filepath.Join(dir, "src"), filepath.Join(dir, "dst"), true); err != nil {
		t.Fatalf("Move: %v", err)
	}
	for _, p := range []string{
		filepath.Join(dir, "dst", "Season 01", "e0.mkv"),
		filepath.Join(dir, "dst", "Season 01", "e1.mkv"),
		filepath.Join(dir, "dst", "e2.mkv"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing %s after merge: %v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "src")); !os.IsNotExist(err) {
		t.Errorf("source directory should be removed after merge")
	}
}

func TestMoveWithoutMergeRejectsExistingDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "e1.mkv"), "1")
	writeFile(t, filepath.Join(dir, "dst", "e0.mkv"), "0")

	if err := NewLocal().Move(ctx, filepath.Join(dir, "src"), filepath.Join(dir, "dst"), false); err == nil {
		t.Fatal("expected error for occupied destination without merge")
	}
	if _, err := os.Stat(filepath.Join(dir, "src", "e1.mkv")); err != nil {
		t.Errorf("source should be untouched: %v", err)
	}
}

func TestMoveRejectsExistingFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mkv"), "a")
	writeFile(t, filepath.Join(dir, "b.mkv"), "b")

	if err := NewLocal().Move(ctx, filepath.Join(dir, "a.mkv"), filepath.Join(dir, "b.mkv"), true); err == nil {
		t.Fatal("expected error for existing file destination")
	}
}

func TestCreateFolderIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "Movies", "A (2020)")
	l := NewLocal()
	if err := l.CreateFolder(ctx, path); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if err := l.CreateFolder(ctx, path); err != nil {
		t.Fatalf("CreateFolder twice: %v", err)
	}
}

func TestListDirectorySortsDirsFirst(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zz.mkv"), "z")
	writeFile(t, filepath.Join(dir, "aa.mkv"), "a")
	if err := os.Mkdir(filepath.Join(dir, "Zeta"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "alpha"), 0o755); err != nil {
		t.Fatal(err)
	}

	entries, err := NewLocal().ListDirectory(ctx, dir)
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name)
	}
	want := []string{"alpha", "Zeta", "aa.mkv", "zz.mkv"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStatChecksum(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "a.mkv")
	writeFile(t, path, "hello")

	md, err := NewLocal().Stat(ctx, path, true)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if md.Size != 5 {
		t.Errorf("Size = %d, want 5", md.Size)
	}
	// sha256("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if md.Checksum != want {
		t.Errorf("Checksum = %s, want %s", md.Checksum, want)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocal().ListDirectory(ctx, t.TempDir()); err == nil {
		t.Fatal("expected context error")
	}
}
