package capture

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadExchangeLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test_users.jsonl")

	lines := `{"test_id":"tests/api/test_users.py::test_a","request_method":"GET","request_url":"https://api/users","response":{"status_code":200}}
not json at all
{"test_id":"tests/api/test_users.py::test_a","request_method":"GET","request_url":"https://api/users/1","response":{"status_code":404}}
{"request_method":"GET","request_url":"https://api/anonymous"}
`
	if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}

	exchanges := ReadExchangeLog(path)

	if len(exchanges) != 1 {
		t.Fatalf("expected 1 exchange, got %d", len(exchanges))
	}

	ex, ok := exchanges["tests/api/test_users.py::test_a"]
	if !ok {
		t.Fatal("expected exchange for test_a")
	}
	// Last entry per test wins.
	if ex.RequestURL != "https://api/users/1" {
		t.Errorf("request url = %s, want the last recorded call", ex.RequestURL)
	}
	if ex.Response == nil || ex.Response.StatusCode != 404 {
		t.Error("response of last recorded call not kept")
	}
}

func TestReadExchangeLog_MissingFile(t *testing.T) {
	exchanges := ReadExchangeLog(filepath.Join(t.TempDir(), "nope.jsonl"))
	if len(exchanges) != 0 {
		t.Errorf("expected empty map for missing file, got %d entries", len(exchanges))
	}
}
