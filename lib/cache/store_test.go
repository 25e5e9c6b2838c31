package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvlled/gifburst/lib/failure"
)

var fixedTime = time.Date(2023, time.February, 3, 4, 5, 6, 789, time.UTC)

func fixedClock() time.Time { return fixedTime }

func TestBuildFileName(t *testing.T) {
	expected := "2023_02_03_6_789"
	if actual := BuildFileName(fixedTime); actual != expected {
		t.Errorf("expected: %v | got %v", expected, actual)
	}
}

func TestNumbered(t *testing.T) {
	for _, entry := range []struct {
		name     string
		counter  int
		expected string
	}{
		{"a.gif", 1, "a-1.gif"},
		{"a-1.gif", 2, "a-2.gif"},
		{"2023_02_03_6_789.gif", 1, "2023_02_03_6_789-1.gif"},
		{"2023_02_03_6_789-4.gif", 5, "2023_02_03_6_789-5.gif"},
		{"noext", 3, "noext-3"},
		{"123.gif", 1, "123-1.gif"},
		{"filename-.png", 1, "filename-1.png"},
		{"filename-x.png", 1, "filename-x-1.png"},
		{".file", 1, ".file-1"},
		{"-.file", 1, "-1.file"},
		{"/home/nvlled/screen-1.gif", 2, "/home/nvlled/screen-2.gif"},
	} {
		if actual := Numbered(entry.name, entry.counter); actual != entry.expected {
			t.Errorf("expected: %v | got %v", entry.expected, actual)
		}
	}
}

func TestPersist(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache", "gif")
	store := NewStore(dir, WithClock(fixedClock))
	data := []byte("GIF89a-payload;")

	handle, err := store.Persist(data)
	if err != nil {
		t.Fatal(err)
	}
	if handle.Size != int64(len(data)) {
		t.Errorf("expected: %v | got %v", len(data), handle.Size)
	}
	if handle.Name() != "2023_02_03_6_789.gif" {
		t.Errorf("unexpected name %v", handle.Name())
	}
	stored, err := os.ReadFile(handle.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(stored, data) {
		t.Errorf("expected: %q | got %q", data, stored)
	}
	if !strings.HasPrefix(handle.URI(), "file://") || !strings.HasSuffix(handle.URI(), "/2023_02_03_6_789.gif") {
		t.Errorf("unexpected uri %v", handle.URI())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected exactly one file, got %v", len(entries))
	}
}

func TestPersistCollision(t *testing.T) {
	store := NewStore(t.TempDir(), WithClock(fixedClock))

	var names []string
	for i := 0; i < 3; i++ {
		handle, err := store.Persist([]byte{byte(i + 1)})
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, handle.Name())
	}
	expected := []string{"2023_02_03_6_789.gif", "2023_02_03_6_789-1.gif", "2023_02_03_6_789-2.gif"}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("expected: %v | got %v", expected, names)
			break
		}
	}
}

func TestPersistEmpty(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	handle, err := store.Persist(nil)
	if !errors.Is(err, ErrPersist) {
		t.Errorf("expected: %v | got %v", ErrPersist, err)
	}
	if handle != (Handle{}) {
		t.Errorf("no handle expected, got %v", handle)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("no file expected, got %v", len(entries))
	}
}

func TestPersistUnwritableDir(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewStore(filepath.Join(blocker, "gif"))

	_, err := store.Persist([]byte("data"))
	if failure.KindOf(err) != failure.PersistFailure {
		t.Errorf("expected persist failure, got %v", err)
	}
	if err.Error() != "An error occurred while trying to save the gif to the cache." {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, WithClock(fixedClock))

	if handles, err := store.List(); err != nil || len(handles) != 0 {
		t.Errorf("expected empty list, got %v %v", handles, err)
	}
	if _, err := store.Persist([]byte("abc")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	handles, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(handles) != 1 || handles[0].Size != 3 {
		t.Errorf("expected one 3 byte artifact, got %v", handles)
	}

	missing := NewStore(filepath.Join(dir, "missing"))
	if handles, err := missing.List(); err != nil || handles != nil {
		t.Errorf("missing dir: expected no handles, got %v %v", handles, err)
	}
}

func TestPurge(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store := NewStore(dir)

	removed, err := store.Purge()
	if err != nil {
		t.Fatal(err)
	}
	if removed != 3 {
		t.Errorf("expected: %v | got %v", 3, removed)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("expected empty dir, got %v entries", len(entries))
	}

	removed, err = store.Purge()
	if err != nil || removed != 0 {
		t.Errorf("empty purge: expected: 0 <nil> | got %v %v", removed, err)
	}
}

func TestPurgeMissingDir(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-created"))
	if removed, err := store.Purge(); err != nil || removed != 0 {
		t.Errorf("expected: 0 <nil> | got %v %v", removed, err)
	}
}

func TestPurgeKeepsLockFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "gif")
	store := NewStore(dir, WithClock(fixedClock))

	if _, err := store.Persist([]byte("abc")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Purge(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir + ".lock"); err != nil {
		t.Errorf("lock file must live outside the cache dir: %v", err)
	}
	if _, err := store.Persist([]byte("def")); err != nil {
		t.Errorf("persist after purge: %v", err)
	}
}
