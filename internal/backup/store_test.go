package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	testsRoot := filepath.Join(root, "tests", "api")
	if err := os.MkdirAll(testsRoot, 0755); err != nil {
		t.Fatal(err)
	}
	return NewStore(filepath.Join(root, "failures", ".backups"), testsRoot), testsRoot
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStore_Create(t *testing.T) {
	store, testsRoot := newTestStore(t)
	original := writeTestFile(t, testsRoot, "test_users.py", "def test_a(): pass\n")

	backupPath, err := store.Create(original)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	content, err := os.ReadFile(backupPath)
	if err != nil {
		t.Fatalf("backup not readable: %v", err)
	}
	if string(content) != "def test_a(): pass\n" {
		t.Error("backup content does not match source at time of backup")
	}

	name := filepath.Base(backupPath)
	if !strings.HasPrefix(name, "test_users.backup.") || !strings.HasSuffix(name, ".py") {
		t.Errorf("unexpected backup name: %s", name)
	}
}

func TestStore_CreateMissingSource(t *testing.T) {
	store, testsRoot := newTestStore(t)

	_, err := store.Create(filepath.Join(testsRoot, "nope.py"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}

	// No backup file may be created on failure.
	if backups := store.List(""); len(backups) != 0 {
		t.Errorf("expected no backups, got %d", len(backups))
	}
}

func TestStore_CreateNeverOverwrites(t *testing.T) {
	store, testsRoot := newTestStore(t)
	original := writeTestFile(t, testsRoot, "test_users.py", "v1\n")

	first, err := store.Create(original)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(original, []byte("v2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	second, err := store.Create(original)
	if err != nil {
		t.Fatal(err)
	}

	if first == second {
		t.Fatal("rapid successive backups collided on the same path")
	}
	content, _ := os.ReadFile(first)
	if string(content) != "v1\n" {
		t.Error("existing backup was overwritten")
	}
}

func TestStore_List(t *testing.T) {
	store, testsRoot := newTestStore(t)
	users := writeTestFile(t, testsRoot, "test_users.py", "u\n")
	posts := writeTestFile(t, testsRoot, "test_posts.py", "p\n")

	if _, err := store.Create(users); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(posts); err != nil {
		t.Fatal(err)
	}

	// Nonconforming files in the backup directory are ignored.
	writeTestFile(t, store.dir, "notes.txt", "x")
	writeTestFile(t, store.dir, "test_users.backup.garbage.py", "x")

	all := store.List("")
	if len(all) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(all))
	}

	filtered := store.List("test_users")
	if len(filtered) != 1 {
		t.Fatalf("expected 1 filtered backup, got %d", len(filtered))
	}
	if filtered[0].OriginalName != "test_users.py" {
		t.Errorf("unexpected original name: %s", filtered[0].OriginalName)
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	store, testsRoot := newTestStore(t)
	original := writeTestFile(t, testsRoot, "test_users.py", "v1\n")

	if _, err := store.Create(original); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(original); err != nil {
		t.Fatal(err)
	}

	backups := store.List("test_users")
	if len(backups) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(backups))
	}
	if backups[0].Timestamp < backups[1].Timestamp {
		t.Error("backups not sorted newest-first")
	}
}

func TestStore_Restore(t *testing.T) {
	store, testsRoot := newTestStore(t)
	original := writeTestFile(t, testsRoot, "test_users.py", "good\n")

	backupPath, err := store.Create(original)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(original, []byte("broken\n"), 0644); err != nil {
		t.Fatal(err)
	}

	result := store.Restore(backupPath, "")
	if !result.Success {
		t.Fatalf("restore failed: %s", result.Error)
	}
	if result.RestoredFile != original {
		t.Errorf("restored to %s, want %s", result.RestoredFile, original)
	}

	content, _ := os.ReadFile(original)
	if string(content) != "good\n" {
		t.Error("restored content does not equal backup content")
	}
}

func TestStore_RestoreRejectsEscapingTarget(t *testing.T) {
	store, testsRoot := newTestStore(t)
	original := writeTestFile(t, testsRoot, "test_users.py", "v\n")
	backupPath, err := store.Create(original)
	if err != nil {
		t.Fatal(err)
	}

	targets := []string{
		filepath.Join(testsRoot, "..", "..", "main.py"),
		"/etc/passwd",
		filepath.Join(testsRoot, "..", "outside.py"),
	}
	for _, target := range targets {
		result := store.Restore(backupPath, target)
		if result.Success {
			t.Errorf("restore to %s should have been rejected", target)
		}
	}
}

func TestStore_RestoreLatest(t *testing.T) {
	store, testsRoot := newTestStore(t)

	t.Run("no backups", func(t *testing.T) {
		result := store.RestoreLatest("test_users")
		if result.Success {
			t.Fatal("expected failure with no backups")
		}
		if !strings.Contains(result.Error, "No backups found") {
			t.Errorf("error should mention no backups, got %q", result.Error)
		}
	})

	t.Run("restores newest", func(t *testing.T) {
		original := writeTestFile(t, testsRoot, "test_users.py", "v1\n")
		if _, err := store.Create(original); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(original, []byte("v2\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Create(original); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(original, []byte("broken\n"), 0644); err != nil {
			t.Fatal(err)
		}

		result := store.RestoreLatest("test_users")
		if !result.Success {
			t.Fatalf("restore failed: %s", result.Error)
		}
		content, _ := os.ReadFile(original)
		if string(content) != "v2\n" {
			t.Errorf("expected newest backup content v2, got %q", content)
		}
	})
}

func TestStore_RestoreAllLatest(t *testing.T) {
	store, testsRoot := newTestStore(t)
	users := writeTestFile(t, testsRoot, "test_users.py", "u\n")
	posts := writeTestFile(t, testsRoot, "test_posts.py", "p\n")

	if _, err := store.Create(users); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(posts); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(users, []byte("broken\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(posts, []byte("broken\n"), 0644); err != nil {
		t.Fatal(err)
	}

	results := store.RestoreAllLatest()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for name, result := range results {
		if !result.Success {
			t.Errorf("restore of %s failed: %s", name, result.Error)
		}
	}

	content, _ := os.ReadFile(users)
	if string(content) != "u\n" {
		t.Error("test_users.py not restored")
	}
}
