package capture

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"apiheal/internal/domain"
	"apiheal/internal/parser"
)

func TestHook_Capture(t *testing.T) {
	dir := t.TempDir()
	hook := NewHook(dir)

	pf := parser.ParsedFailure{
		TestName:     "test_get_user_by_id",
		ErrorKind:    "AssertionError",
		ErrorMessage: "assert data['firstName'] == 'Leanne Graham'",
		Line:         23,
		Traceback:    "tests/api/test_users.py:23: AssertionError",
	}
	ex := &Exchange{
		TestID:        "tests/api/test_users.py::test_get_user_by_id",
		RequestMethod: "GET",
		RequestURL:    "https://jsonplaceholder.typicode.com/users/1",
		Response: &domain.APIResponse{
			StatusCode: 200,
			Body:       map[string]any{"name": "Leanne Graham"},
			URL:        "https://jsonplaceholder.typicode.com/users/1",
		},
	}

	captured, err := hook.Capture("tests/api/test_users.py", pf, ex)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if captured.RecordPath == "" {
		t.Fatal("expected a record path")
	}

	data, err := os.ReadFile(captured.RecordPath)
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}

	var record domain.FailureRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("record is not valid JSON: %v", err)
	}

	if record.TestID() != "tests/api/test_users.py::test_get_user_by_id" {
		t.Errorf("unexpected test identity: %s", record.TestID())
	}
	if record.Expected != "Leanne Graham" {
		t.Errorf("expected operand = %#v, want Leanne Graham", record.Expected)
	}
	if record.RequestMethod != "GET" {
		t.Errorf("request method = %s, want GET", record.RequestMethod)
	}
	if record.APIResponse == nil || record.APIResponse.StatusCode != 200 {
		t.Error("api response not captured")
	}
	if record.Timestamp == "" {
		t.Error("timestamp not set")
	}
}

func TestHook_CaptureWithoutExchange(t *testing.T) {
	dir := t.TempDir()
	hook := NewHook(dir)

	pf := parser.ParsedFailure{
		TestName:     "test_list",
		ErrorKind:    "AssertionError",
		ErrorMessage: "assert len(data) == 12",
	}

	captured, err := hook.Capture("tests/api/test_users.py", pf, nil)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	data, _ := os.ReadFile(captured.RecordPath)
	var record domain.FailureRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("record is not valid JSON: %v", err)
	}

	// Expected comes back as float64 after a JSON round trip.
	if record.Expected != float64(12) {
		t.Errorf("expected operand = %#v, want 12", record.Expected)
	}
	if record.APIResponse != nil {
		t.Error("api response should be absent without an exchange")
	}
}

func TestHook_RecordNameIsSanitized(t *testing.T) {
	hook := NewHook(t.TempDir())
	name := hook.recordName("tests/api/test_users.py", "test_get_user[1-Leanne]")
	if filepath.Base(name) != name {
		t.Errorf("record name contains path separators: %s", name)
	}
	for _, c := range []string{"[", "]", "/"} {
		if filepath.Base(name) != name || containsAny(name, c) {
			t.Errorf("record name %q still contains %q", name, c)
		}
	}
}

func containsAny(s, chars string) bool {
	for _, c := range chars {
		for _, r := range s {
			if r == c {
				return true
			}
		}
	}
	return false
}
