package agent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"apiheal/internal/domain"
)

type fakeBackups struct {
	created []string
	path    string
	err     error
}

func (f *fakeBackups) Create(path string) (string, error) {
	f.created = append(f.created, path)
	if f.err != nil {
		return "", f.err
	}
	if f.path != "" {
		return f.path, nil
	}
	return path + ".backup", nil
}

type fakeRunner struct {
	result domain.SingleTestResult
	lastID string
}

func (f *fakeRunner) RunSingle(_ context.Context, testID string) domain.SingleTestResult {
	f.lastID = testID
	f.result.TestID = testID
	return f.result
}

func newTestToolset(t *testing.T) (*Toolset, string, *fakeBackups, *fakeRunner) {
	t.Helper()
	root := t.TempDir()
	testsRoot := filepath.Join(root, "tests", "api")
	if err := os.MkdirAll(testsRoot, 0755); err != nil {
		t.Fatal(err)
	}
	backups := &fakeBackups{}
	runner := &fakeRunner{}
	ts := NewToolset(testsRoot, backups, runner, "https://example.test", 5*time.Second)
	return ts, testsRoot, backups, runner
}

func decodeOutput(t *testing.T, inv Invocation) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(inv.Output), &out); err != nil {
		t.Fatalf("tool output is not valid JSON: %v\n%s", err, inv.Output)
	}
	return out
}

func TestToolset_ReadTestFile(t *testing.T) {
	ts, testsRoot, _, _ := newTestToolset(t)
	if err := os.WriteFile(filepath.Join(testsRoot, "test_users.py"), []byte("def test_a(): pass\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("reads by bare name", func(t *testing.T) {
		inv := ts.Execute(context.Background(), ToolCall{
			Name:  "read_test_file",
			Input: map[string]any{"file_path": "test_users.py"},
		})
		out := decodeOutput(t, inv)
		if out["success"] != true {
			t.Fatalf("expected success, got %v", out)
		}
		if out["content"] != "def test_a(): pass\n" {
			t.Errorf("unexpected content: %v", out["content"])
		}
	})

	t.Run("reads by project-relative path", func(t *testing.T) {
		inv := ts.Execute(context.Background(), ToolCall{
			Name:  "read_test_file",
			Input: map[string]any{"file_path": "tests/api/test_users.py"},
		})
		out := decodeOutput(t, inv)
		if out["success"] != true {
			t.Fatalf("expected success, got %v", out)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		inv := ts.Execute(context.Background(), ToolCall{
			Name:  "read_test_file",
			Input: map[string]any{"file_path": "test_missing.py"},
		})
		out := decodeOutput(t, inv)
		if out["success"] != false {
			t.Error("expected failure for missing file")
		}
		if inv.Err == nil {
			t.Error("invocation should flag the error")
		}
	})
}

func TestToolset_PathContainment(t *testing.T) {
	ts, testsRoot, _, _ := newTestToolset(t)

	escapes := []string{
		"../conftest.py",
		"../../main.py",
		"/etc/passwd",
		filepath.Join(testsRoot, "..", "..", "secrets.txt"),
	}
	for _, path := range escapes {
		t.Run(path, func(t *testing.T) {
			for _, tool := range []string{"read_test_file", "write_test_file"} {
				input := map[string]any{"file_path": path}
				if tool == "write_test_file" {
					input["content"] = "x"
				}
				inv := ts.Execute(context.Background(), ToolCall{Name: tool, Input: input})
				out := decodeOutput(t, inv)
				if out["success"] != false {
					t.Errorf("%s should reject %s", tool, path)
				}
			}
			// Rejected paths must not have been created.
			if _, err := os.Stat(filepath.Join(testsRoot, path)); err == nil {
				t.Errorf("file was created outside containment check: %s", path)
			}
		})
	}
}

func TestToolset_WriteTestFile(t *testing.T) {
	ts, testsRoot, backups, _ := newTestToolset(t)
	existing := filepath.Join(testsRoot, "test_users.py")
	if err := os.WriteFile(existing, []byte("old\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("backs up existing file before write", func(t *testing.T) {
		inv := ts.Execute(context.Background(), ToolCall{
			Name: "write_test_file",
			Input: map[string]any{
				"file_path": "test_users.py",
				"content":   "new\n",
			},
		})
		out := decodeOutput(t, inv)
		if out["success"] != true {
			t.Fatalf("write failed: %v", out)
		}
		if len(backups.created) != 1 || backups.created[0] != existing {
			t.Errorf("expected backup of %s, got %v", existing, backups.created)
		}
		if inv.BackupPath == "" {
			t.Error("invocation should carry the backup path")
		}
		content, _ := os.ReadFile(existing)
		if string(content) != "new\n" {
			t.Error("content not written")
		}
	})

	t.Run("no backup for new file", func(t *testing.T) {
		backups.created = nil
		inv := ts.Execute(context.Background(), ToolCall{
			Name: "write_test_file",
			Input: map[string]any{
				"file_path": "test_fresh.py",
				"content":   "def test_b(): pass\n",
			},
		})
		out := decodeOutput(t, inv)
		if out["success"] != true {
			t.Fatalf("write failed: %v", out)
		}
		if len(backups.created) != 0 {
			t.Error("new file should not be backed up")
		}
		if inv.BackupPath != "" {
			t.Error("no backup path expected for new file")
		}
	})
}

func TestToolset_RunSingleTest(t *testing.T) {
	ts, _, _, runner := newTestToolset(t)
	runner.result = domain.SingleTestResult{Passed: true, Output: "1 passed"}

	inv := ts.Execute(context.Background(), ToolCall{
		Name:  "run_single_test",
		Input: map[string]any{"test_id": "tests/api/test_users.py::test_a"},
	})
	out := decodeOutput(t, inv)
	if out["passed"] != true {
		t.Errorf("expected passed=true, got %v", out)
	}
	if runner.lastID != "tests/api/test_users.py::test_a" {
		t.Errorf("runner got wrong identity: %s", runner.lastID)
	}
}

func TestToolset_ListTestFiles(t *testing.T) {
	ts, testsRoot, _, _ := newTestToolset(t)
	for _, name := range []string{"test_users.py", "test_posts.py", "conftest.py", "helpers.py"} {
		if err := os.WriteFile(filepath.Join(testsRoot, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	inv := ts.Execute(context.Background(), ToolCall{Name: "list_test_files", Input: map[string]any{}})
	out := decodeOutput(t, inv)
	files, ok := out["files"].([]any)
	if !ok || len(files) != 2 {
		t.Fatalf("expected 2 test files, got %v", out["files"])
	}
	if files[0] != "test_posts.py" || files[1] != "test_users.py" {
		t.Errorf("expected sorted test files, got %v", files)
	}
}

func TestToolset_UnknownTool(t *testing.T) {
	ts, _, _, _ := newTestToolset(t)
	inv := ts.Execute(context.Background(), ToolCall{Name: "drop_database", Input: map[string]any{}})
	out := decodeOutput(t, inv)
	if out["success"] != false {
		t.Error("unknown tool must fail")
	}
	if inv.Err == nil {
		t.Error("unknown tool must flag an error")
	}
}
